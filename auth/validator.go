package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// SessionValidator asks the server whether the current session is still valid.
type SessionValidator struct {
	endpoint string
	client   Doer
	tokens   *TokenStore

	// onUnauthorized runs when the server rejects the session.
	onUnauthorized func(ctx context.Context)
}

// NewSessionValidator creates a validator for endpoint.
func NewSessionValidator(endpoint string, client Doer, tokens *TokenStore, onUnauthorized func(ctx context.Context)) *SessionValidator {
	return &SessionValidator{
		endpoint:       endpoint,
		client:         client,
		tokens:         tokens,
		onUnauthorized: onUnauthorized,
	}
}

// CheckSession validates the session once. A rejected session triggers the
// unauthorized handler; transport and other HTTP errors are only reported.
func (v *SessionValidator) CheckSession(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: panic: %v", ErrSessionCheckFailed, rec)
		}
		if err != nil {
			log.Warn().Err(err).Msg("Session check did not complete")
		}
	}()

	token := v.tokens.Get()
	if token == "" {
		return ErrNoToken
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionCheckFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionCheckFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		v.reject(ctx)
		return fmt.Errorf("%w: session check returned status %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrSessionCheckFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionCheckFailed, err)
	}
	var status struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("%w: failed to parse response: %v", ErrSessionCheckFailed, err)
	}
	if !status.Valid {
		v.reject(ctx)
		return fmt.Errorf("%w: server reports session invalid", ErrUnauthorized)
	}

	log.Debug().Msg("Session is valid")
	return nil
}

func (v *SessionValidator) reject(ctx context.Context) {
	if v.onUnauthorized != nil {
		v.onUnauthorized(ctx)
	}
}

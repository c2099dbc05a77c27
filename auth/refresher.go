package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const refreshFlightKey = "refresh"

// RefreshResult is the outcome of a successful refresh.
type RefreshResult struct {
	Token   string
	User    *UserProfile
	Message string
}

type refreshResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token,omitempty"`
	User    *UserProfile `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Refresher calls the refresh endpoint. Concurrent callers share a single
// in-flight request and its result.
type Refresher struct {
	endpoint   string
	tokens     *TokenStore
	fetch      *RetryingFetch
	maxRetries int
	group      singleflight.Group

	// onRefreshed runs inside the flight after the new token has been stored.
	onRefreshed func(*RefreshResult)
}

// NewRefresher creates a Refresher posting to endpoint.
func NewRefresher(endpoint string, tokens *TokenStore, fetch *RetryingFetch, maxRetries int) *Refresher {
	return &Refresher{
		endpoint:   endpoint,
		tokens:     tokens,
		fetch:      fetch,
		maxRetries: maxRetries,
	}
}

// Refresh exchanges the current token for a new one, joining an already
// running refresh when there is one.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	ch := r.group.DoChan(refreshFlightKey, func() (interface{}, error) {
		// The flight outlives any single caller's context.
		return r.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			log.Debug().Msg("Joined in-flight token refresh")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*RefreshResult), nil
	}
}

func (r *Refresher) refresh(ctx context.Context) (*RefreshResult, error) {
	token := r.tokens.Get()
	if token == "" {
		return nil, ErrNoToken
	}
	remember := r.tokens.Remembered()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	log.Debug().Str("url", r.endpoint).Msg("Refreshing auth token")
	resp, err := r.fetch.FetchWithRetry(req, r.maxRetries)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read refresh response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: refresh returned status %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRefreshFailed, resp.StatusCode, string(body))
	}

	var result refreshResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrRefreshFailed, err)
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, result.Message)
	}

	out := &RefreshResult{Token: token, User: result.User, Message: result.Message}
	if result.Token != "" {
		out.Token = result.Token
		r.tokens.Set(result.Token, remember)
	}
	if result.User != nil {
		r.tokens.SetProfile(*result.User)
	}
	log.Info().Bool("remember", remember).Msg("Auth token refreshed")

	if r.onRefreshed != nil {
		r.onRefreshed(out)
	}
	return out, nil
}

package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRetryDelay is the fixed pause between attempts of FetchWithRetry.
const DefaultRetryDelay = time.Second

// RetryingFetch sends requests with a bounded number of retries on transport
// errors. Responses with error status codes are returned as-is, not retried.
type RetryingFetch struct {
	Client Doer
	Delay  time.Duration
}

// NewRetryingFetch wraps client with a fixed retry delay.
func NewRetryingFetch(client Doer, delay time.Duration) *RetryingFetch {
	return &RetryingFetch{Client: client, Delay: delay}
}

// FetchWithRetry sends req, retrying up to maxRetries times after a transport
// error. When the budget is spent the last error is returned.
func (f *RetryingFetch) FetchWithRetry(req *http.Request, maxRetries int) (*http.Response, error) {
	ctx := req.Context()
	attempt := req
	for {
		resp, err := f.Client.Do(attempt)
		if err == nil {
			return resp, nil
		}
		if maxRetries <= 0 || ctx.Err() != nil {
			return nil, err
		}
		log.Warn().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Int("retries_left", maxRetries).Msg("Request failed, retrying")
		maxRetries--

		timer := time.NewTimer(f.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}

		attempt, err = rewind(req)
		if err != nil {
			return nil, err
		}
	}
}

// rewind returns a copy of req with a fresh body so it can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("cannot retry %s %s: request body is not replayable", req.Method, req.URL)
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("failed to rewind request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

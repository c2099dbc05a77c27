package auth

import "errors"

var (
	// ErrNoToken is returned when an operation needs a stored token and there is none.
	ErrNoToken = errors.New("no auth token stored")
	// ErrUnauthorized marks a rejected session (401/403 or an explicit success=false).
	ErrUnauthorized = errors.New("session is not authorized")
	// ErrRefreshFailed marks any other refresh failure reported by the server.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrSessionCheckFailed marks a session check that failed for a non-auth reason.
	ErrSessionCheckFailed = errors.New("session check failed")
	// ErrInvalidCredentials is returned by Login when the server rejects the credentials.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

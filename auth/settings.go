package auth

import (
	"strings"
	"time"
)

// Settings configures endpoints and timing of the session manager.
type Settings struct {
	BaseURL string

	LoginRoute      string // console route users are sent to when the session ends
	LoginEndpoint   string
	LogoutEndpoint  string
	RefreshEndpoint string
	SessionEndpoint string

	RefreshMargin            time.Duration // refresh this long before expiry
	SessionCheckInterval     time.Duration
	TemporaryRefreshInterval time.Duration
	MaxRetries               int
	RetryDelay               time.Duration
	RequestTimeout           time.Duration

	PublicPaths []string // empty means DefaultPublicPaths
}

// DefaultSettings returns the settings used by the web console.
func DefaultSettings() Settings {
	return Settings{
		BaseURL:                  "http://localhost:3000",
		LoginRoute:               "/auth/login",
		LoginEndpoint:            "/api/auth/login",
		LogoutEndpoint:           "/api/auth/logout",
		RefreshEndpoint:          "/api/auth/refresh",
		SessionEndpoint:          "/api/auth/session",
		RefreshMargin:            5 * time.Minute,
		SessionCheckInterval:     5 * time.Minute,
		TemporaryRefreshInterval: 60 * time.Second,
		MaxRetries:               2,
		RetryDelay:               DefaultRetryDelay,
		RequestTimeout:           30 * time.Second,
	}
}

// endpoint joins the base URL with an API path.
func (s Settings) endpoint(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + path
}

func (s Settings) publicPaths() *PublicPaths {
	if len(s.PublicPaths) == 0 {
		return DefaultPublicPaths()
	}
	return NewPublicPaths(s.PublicPaths...)
}

package auth

import (
	"context"
	"net/http"
)

// Storage is a string key/value store backing the token store.
// Implementations log their own failures; callers never see storage errors.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string)
	RemoveItem(key string)
}

// Navigator exposes the current location of the console and moves it elsewhere.
type Navigator interface {
	Path() string
	Navigate(target string)
}

// Notifier shows short, non-blocking messages to the user.
type Notifier interface {
	Warn(message string)
}

// ProfileDisplay renders the cached user profile wherever it is visible.
type ProfileDisplay interface {
	ShowProfile(profile UserProfile)
}

// Doer sends a single HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenRefresher performs (or joins) a token refresh.
type TokenRefresher interface {
	Refresh(ctx context.Context) (*RefreshResult, error)
}

package auth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Middleware decorates a RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

// Chain wraps base with the given middlewares; the first one runs outermost.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// RequestID stamps an X-Request-ID header on requests that do not carry one.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("X-Request-ID") != "" {
				return next.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			clone.Header.Set("X-Request-ID", uuid.NewString())
			return next.RoundTrip(clone)
		})
	}
}

// InterceptorOptions configures the pre-flight refresh middleware.
type InterceptorOptions struct {
	Refresher   TokenRefresher
	Tokens      *TokenStore
	Paths       *PublicPaths
	RefreshPath string // requests to this path are never intercepted
}

// Interceptor refreshes the session before every request to a non-public
// path. A failed refresh is logged and the request is sent anyway.
func Interceptor(opts InterceptorOptions) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if opts.bypass(req) {
				return next.RoundTrip(req)
			}

			if _, err := opts.Refresher.Refresh(req.Context()); err != nil {
				if !errors.Is(err, ErrNoToken) {
					log.Warn().Err(err).Str("url", req.URL.String()).Msg("Pre-flight token refresh failed, sending request anyway")
				}
			}

			token := opts.Tokens.Get()
			if token == "" || req.Header.Get("Authorization") != "" {
				return next.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			clone.Header.Set("Authorization", "Bearer "+token)
			return next.RoundTrip(clone)
		})
	}
}

func (o InterceptorOptions) bypass(req *http.Request) bool {
	if req.URL.Path == o.RefreshPath {
		return true
	}
	return o.Paths.IsPublic(req.URL.Path)
}

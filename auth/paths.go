package auth

import "strings"

// PublicPaths is the static allowlist of routes that never require authentication.
type PublicPaths struct {
	prefixes []string
}

// DefaultPublicPaths returns the console's public routes.
func DefaultPublicPaths() *PublicPaths {
	return NewPublicPaths(
		"/auth/login",
		"/auth/signup",
		"/auth/forgot-password",
		"/auth/reset-password",
		"/auth/callback",
		"/auth/confirm",
		"/privacy",
		"/terms",
		"/",
	)
}

// NewPublicPaths builds a registry from the given path prefixes.
func NewPublicPaths(paths ...string) *PublicPaths {
	prefixes := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &PublicPaths{prefixes: prefixes}
}

// IsPublic reports whether path is an exact match or lies under a public prefix.
// The root "/" only ever matches exactly.
func (p *PublicPaths) IsPublic(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		path = "/"
	}
	for _, prefix := range p.prefixes {
		if path == prefix {
			return true
		}
		if prefix == "/" {
			continue
		}
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Paths returns a copy of the registered prefixes.
func (p *PublicPaths) Paths() []string {
	out := make([]string, len(p.prefixes))
	copy(out, p.prefixes)
	return out
}

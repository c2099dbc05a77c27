package auth

import (
	"net/url"

	"github.com/rs/zerolog/log"
)

// DefaultExpiredMessage is shown when a session ends without a specific reason.
const DefaultExpiredMessage = "Your session has expired due to inactivity. Please log in again."

// NavigationGuard sends the user to the login route, remembering where they were.
type NavigationGuard struct {
	nav        Navigator
	paths      *PublicPaths
	loginRoute string
}

// NewNavigationGuard creates a guard that redirects to loginRoute.
func NewNavigationGuard(nav Navigator, paths *PublicPaths, loginRoute string) *NavigationGuard {
	return &NavigationGuard{nav: nav, paths: paths, loginRoute: loginRoute}
}

// RedirectToLogin navigates to the login route and reports whether it did.
// Nothing happens while the current path is public.
func (g *NavigationGuard) RedirectToLogin(message string, sessionExpired bool) bool {
	current := g.nav.Path()
	if g.paths.IsPublic(current) {
		log.Debug().Str("path", current).Msg("Not redirecting from public path")
		return false
	}

	if message == "" && sessionExpired {
		message = DefaultExpiredMessage
	}
	target := LoginURL(g.loginRoute, current, message, sessionExpired)
	log.Info().Str("from", current).Str("to", target).Msg("Redirecting to login")
	g.nav.Navigate(target)
	return true
}

// LoginURL builds the login route carrying the return path and message.
func LoginURL(loginRoute, redirect, message string, sessionExpired bool) string {
	q := url.Values{}
	q.Set("redirect", redirect)
	if message != "" {
		q.Set("message", message)
	}
	if sessionExpired {
		q.Set("sessionExpired", "true")
	}
	return loginRoute + "?" + q.Encode()
}

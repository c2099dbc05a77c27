package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/habedi/waconsole/auth"
	"github.com/habedi/waconsole/config"
	"github.com/habedi/waconsole/db"
	"github.com/habedi/waconsole/pkg/clierr"
	"github.com/rs/zerolog/log"
)

// Console routes the commands act on. Protected commands run on the
// dashboard so an ended session redirects to the login route.
const (
	dashboardRoute = "/dashboard"
	loginRoute     = "/auth/login"
)

// consoleNavigator tracks the route of the running command. A redirect to the
// login route is reported on out and signalled on Redirected.
type consoleNavigator struct {
	mu       sync.Mutex
	path     string
	out      io.Writer
	redirect chan struct{}
	once     sync.Once
}

func newConsoleNavigator(path string, out io.Writer) *consoleNavigator {
	return &consoleNavigator{path: path, out: out, redirect: make(chan struct{})}
}

// moveTo changes the route without reporting a redirect.
func (n *consoleNavigator) moveTo(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
}

func (n *consoleNavigator) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *consoleNavigator) Navigate(target string) {
	u, err := url.Parse(target)
	if err != nil {
		log.Error().Err(err).Str("target", target).Msg("Ignoring malformed navigation target")
		return
	}
	n.mu.Lock()
	n.path = u.Path
	n.mu.Unlock()

	if msg := u.Query().Get("message"); msg != "" {
		fmt.Fprintln(n.out, msg)
	}
	fmt.Fprintln(n.out, "Run 'waconsole login' to sign in again.")
	n.once.Do(func() { close(n.redirect) })
}

// Redirected is closed on the first navigation.
func (n *consoleNavigator) Redirected() <-chan struct{} { return n.redirect }

type consoleNotifier struct{ out io.Writer }

func (c consoleNotifier) Warn(message string) { fmt.Fprintln(c.out, "Warning:", message) }

type consoleDisplay struct{ out io.Writer }

func (c consoleDisplay) ShowProfile(p auth.UserProfile) {
	fmt.Fprintln(c.out, "Signed in as", p.DisplayName())
}

// sessionOptions describe how a command wants its session manager wired.
type sessionOptions struct {
	path    string
	out     io.Writer
	errOut  io.Writer
	quietUI bool // profile updates are not printed
}

// newSession builds a session manager whose persistent storage is the local database.
func newSession(cfg *config.Config, opts sessionOptions) (*auth.Manager, *consoleNavigator, error) {
	gdb := db.GetDB()
	if gdb == nil {
		return nil, nil, clierr.New(clierr.Internal, "database is not initialized", nil)
	}
	nav := newConsoleNavigator(opts.path, opts.errOut)

	var display auth.ProfileDisplay = consoleDisplay{out: opts.out}
	if opts.quietUI {
		display = consoleDisplay{out: io.Discard}
	}

	m, err := auth.NewManager(auth.Options{
		Settings:   cfg.Auth,
		Persistent: auth.NewRepoStorage(db.NewKVRepository(gdb)),
		Session:    auth.NewMemoryStorage(),
		Navigator:  nav,
		Notifier:   consoleNotifier{out: opts.errOut},
		Display:    display,
	})
	if err != nil {
		return nil, nil, clierr.New(clierr.Internal, "failed to create session", err)
	}
	return m, nav, nil
}

func isAuthError(err error) bool {
	return errors.Is(err, auth.ErrNoToken) ||
		errors.Is(err, auth.ErrUnauthorized) ||
		errors.Is(err, auth.ErrInvalidCredentials)
}

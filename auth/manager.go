package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// TemporaryTokenWarning is shown when the session runs on a temporary token.
const TemporaryTokenWarning = "You are signed in with a temporary token. It will be refreshed every minute; please complete your account setup."

// Options holds the collaborators of a Manager. Only Settings and Navigator are required.
type Options struct {
	Settings   Settings
	Persistent Storage
	Session    Storage
	Navigator  Navigator
	Notifier   Notifier
	Display    ProfileDisplay
	Transport  http.RoundTripper
	Now        func() time.Time
}

// Manager runs the token lifecycle of one console session: it schedules
// refreshes, validates the session periodically and owns all timers.
type Manager struct {
	settings  Settings
	tokens    *TokenStore
	paths     *PublicPaths
	timers    *IntervalRegistry
	guard     *NavigationGuard
	refresher *Refresher
	validator *SessionValidator
	nav       Navigator
	notifier  Notifier
	display   ProfileDisplay
	plain     *http.Client // no pre-flight refresh
	client    *http.Client
	now       func() time.Time
}

// NewManager wires a Manager from opts.
func NewManager(opts Options) (*Manager, error) {
	if opts.Navigator == nil {
		return nil, fmt.Errorf("navigator is required")
	}
	if _, err := url.Parse(opts.Settings.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if opts.Persistent == nil {
		opts.Persistent = NewMemoryStorage()
	}
	if opts.Session == nil {
		opts.Session = NewMemoryStorage()
	}
	if opts.Notifier == nil {
		opts.Notifier = logNotifier{}
	}
	if opts.Display == nil {
		opts.Display = logDisplay{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	s := opts.Settings
	m := &Manager{
		settings: s,
		tokens:   NewTokenStore(opts.Persistent, opts.Session),
		paths:    s.publicPaths(),
		timers:   NewIntervalRegistry(),
		nav:      opts.Navigator,
		notifier: opts.Notifier,
		display:  opts.Display,
		now:      opts.Now,
	}
	m.guard = NewNavigationGuard(opts.Navigator, m.paths, s.LoginRoute)

	m.plain = &http.Client{
		Transport: Chain(opts.Transport, RequestID()),
		Jar:       jar,
		Timeout:   s.RequestTimeout,
	}

	m.refresher = NewRefresher(s.endpoint(s.RefreshEndpoint), m.tokens, NewRetryingFetch(m.plain, s.RetryDelay), s.MaxRetries)
	m.refresher.onRefreshed = m.refreshed
	m.validator = NewSessionValidator(s.endpoint(s.SessionEndpoint), m.plain, m.tokens, m.expire)

	m.client = &http.Client{
		Transport: Chain(opts.Transport, RequestID(), Interceptor(InterceptorOptions{
			Refresher:   m.refresher,
			Tokens:      m.tokens,
			Paths:       m.paths,
			RefreshPath: refreshPath(s),
		})),
		Jar:     jar,
		Timeout: s.RequestTimeout,
	}
	return m, nil
}

func refreshPath(s Settings) string {
	u, err := url.Parse(s.endpoint(s.RefreshEndpoint))
	if err != nil {
		return s.RefreshEndpoint
	}
	return u.Path
}

// Tokens returns the token store of the session.
func (m *Manager) Tokens() *TokenStore { return m.tokens }

// Timers returns the timer registry of the session.
func (m *Manager) Timers() *IntervalRegistry { return m.timers }

// Guard returns the navigation guard of the session.
func (m *Manager) Guard() *NavigationGuard { return m.guard }

// HTTPClient returns a client whose requests are pre-flighted by a token refresh.
func (m *Manager) HTTPClient() *http.Client { return m.client }

// Endpoint resolves an API path against the configured base URL.
func (m *Manager) Endpoint(path string) string { return m.settings.endpoint(path) }

// Status describes the current token without side effects.
type Status struct {
	State      SessionState
	ExpiresAt  time.Time
	Remembered bool
	Plan       TimerPlan
	Profile    *UserProfile
}

// Status classifies the stored token and reports the plan the scheduler would follow.
func (m *Manager) Status() Status {
	now := m.now()
	st := Status{Remembered: m.tokens.Remembered()}
	if p, ok := m.tokens.Profile(); ok {
		st.Profile = p
	}
	token := m.tokens.Get()
	if token == "" {
		return st
	}
	payload, _ := Decode(token)
	st.State = Classify(payload, now, m.settings.RefreshMargin)
	st.Plan = PlanFor(st.State, payload, now, m.settings)
	if payload != nil {
		st.ExpiresAt = payload.ExpiresAt
	}
	return st
}

// CheckAuthStatus inspects the stored token and schedules its refresh.
// Expired and expiring tokens are refreshed before any timer is armed.
func (m *Manager) CheckAuthStatus(ctx context.Context) {
	token := m.tokens.Get()
	if token == "" {
		log.Debug().Msg("No auth token stored, nothing to schedule")
		return
	}
	payload, ok := Decode(token)
	if !ok {
		log.Warn().Msg("Stored auth token is malformed, nothing to schedule")
		return
	}

	now := m.now()
	state := Classify(payload, now, m.settings.RefreshMargin)
	plan := PlanFor(state, payload, now, m.settings)
	log.Info().Str("state", state.String()).Time("expires_at", payload.ExpiresAt).Msg("Checked auth status")

	switch {
	case state == NoToken:
		return
	case plan.Warn:
		m.notifier.Warn(TemporaryTokenWarning)
		m.timers.Clear(PurposeTokenRefreshInterval)
		m.timers.Arm(plan.Purpose, m.temporaryTick, plan.Delay, true)
	case plan.RefreshNow:
		m.refreshOrExpire(ctx)
	case plan.Purpose != "":
		m.timers.Arm(plan.Purpose, m.scheduledTick, plan.Delay, false)
	}

	m.armSessionCheck()
}

// armSessionCheck starts the periodic validation unless the session already ended.
func (m *Manager) armSessionCheck() {
	if m.tokens.Get() == "" {
		return
	}
	m.timers.Arm(PurposeSessionCheck, func() {
		_ = m.validator.CheckSession(context.Background())
	}, m.settings.SessionCheckInterval, true)
}

// CheckSession runs one session validation now.
func (m *Manager) CheckSession(ctx context.Context) error {
	return m.validator.CheckSession(ctx)
}

// Refresh performs a coalesced refresh without any failure handling.
func (m *Manager) Refresh(ctx context.Context) (*RefreshResult, error) {
	return m.refresher.Refresh(ctx)
}

func (m *Manager) scheduledTick() {
	m.refreshOrExpire(context.Background())
}

// temporaryTick refreshes a temporary token. The recurring timer is stopped
// only when the server rejects the session; transient failures wait for the
// next tick.
func (m *Manager) temporaryTick() {
	if _, err := m.refresher.Refresh(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Temporary token refresh failed")
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNoToken) {
			m.timers.Clear(PurposeTokenRefresh)
			m.expire(context.Background())
		}
	}
}

// refreshOrExpire refreshes now and ends the session if the server rejects it.
// Other failures keep the session and retry after the temporary interval. A
// cancelled caller leaves the session untouched.
func (m *Manager) refreshOrExpire(ctx context.Context) bool {
	_, err := m.refresher.Refresh(ctx)
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Debug().Err(err).Msg("Token refresh abandoned by caller")
		return false
	}
	log.Warn().Err(err).Msg("Token refresh failed")
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNoToken) || m.tokenExpired() {
		m.expire(ctx)
		return false
	}
	m.timers.Arm(PurposeTokenRefreshInterval, m.scheduledTick, m.settings.TemporaryRefreshInterval, false)
	return false
}

func (m *Manager) tokenExpired() bool {
	payload, ok := Decode(m.tokens.Get())
	if !ok || payload.Temporary || payload.ExpiresAt.IsZero() {
		return false
	}
	return !payload.ExpiresAt.After(m.now())
}

// expire ends the session locally and sends the user to the login route.
func (m *Manager) expire(ctx context.Context) {
	m.Logout(ctx)
	m.guard.RedirectToLogin("", true)
}

// refreshed runs once per successful refresh call.
func (m *Manager) refreshed(res *RefreshResult) {
	if res.User != nil {
		m.display.ShowProfile(*res.User)
	}
	m.rearm()
}

// rearm schedules the next refresh for a freshly stored token. It never
// refreshes immediately, so a server handing out short-lived tokens cannot
// drive a refresh loop.
func (m *Manager) rearm() {
	payload, ok := Decode(m.tokens.Get())
	if !ok {
		return
	}
	now := m.now()
	state := Classify(payload, now, m.settings.RefreshMargin)
	switch state {
	case Temporary:
		m.timers.Clear(PurposeTokenRefreshInterval)
		if !m.timers.Active(PurposeTokenRefresh) {
			m.timers.Arm(PurposeTokenRefresh, m.temporaryTick, m.settings.TemporaryRefreshInterval, true)
		}
	case Stable:
		m.timers.Clear(PurposeTokenRefresh)
		plan := PlanFor(state, payload, now, m.settings)
		m.timers.Arm(plan.Purpose, m.scheduledTick, plan.Delay, false)
	case Expired, ExpiringSoon:
		m.timers.Clear(PurposeTokenRefresh)
		m.timers.Arm(PurposeTokenRefreshInterval, m.scheduledTick, m.settings.TemporaryRefreshInterval, false)
	}
}

// SetVisible reacts to the console being hidden or shown again. Hiding stops
// only the temporary-token refresh timer; the scheduled refresh of a regular
// token and the periodic session checks keep running.
func (m *Manager) SetVisible(visible bool) {
	if !visible {
		m.timers.Clear(PurposeTokenRefresh)
		return
	}
	m.CheckAuthStatus(context.Background())
}

// Stop cancels every timer of the session.
func (m *Manager) Stop() {
	m.timers.ClearAll()
	log.Debug().Msg("Session timers stopped")
}

type loginResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *UserProfile `json:"user,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Login authenticates with email and password, stores the token and
// schedules its refresh.
func (m *Manager) Login(ctx context.Context, email, password string, remember bool) (*UserProfile, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.settings.endpoint(m.settings.LoginEndpoint), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.plain.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrInvalidCredentials
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("login failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result loginResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}
	if !result.Success || result.Token == "" {
		if result.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, result.Message)
		}
		return nil, ErrInvalidCredentials
	}

	// A stale persistent token would shadow a new session-only one.
	m.tokens.Clear()
	m.tokens.Set(result.Token, remember)

	profile := UserProfile{Email: email}
	if result.User != nil {
		profile = *result.User
	}
	m.tokens.SetProfile(profile)
	m.display.ShowProfile(profile)
	log.Info().Bool("remember", remember).Msg("Logged in")

	m.CheckAuthStatus(ctx)
	return &profile, nil
}

// Logout tells the server the session is over and always clears local state.
func (m *Manager) Logout(ctx context.Context) {
	if token := m.tokens.Get(); token != "" {
		if err := m.postLogout(ctx, token); err != nil {
			log.Warn().Err(err).Msg("Server logout failed, clearing local session anyway")
		}
	}
	m.timers.Clear(PurposeTokenRefreshInterval)
	m.timers.Clear(PurposeTokenRefresh)
	m.timers.Clear(PurposeSessionCheck)
	m.tokens.Clear()
	log.Info().Msg("Local session cleared")
}

func (m *Manager) postLogout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.settings.endpoint(m.settings.LogoutEndpoint), http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := m.plain.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("logout returned status %d", resp.StatusCode)
	}
	return nil
}

type logNotifier struct{}

func (logNotifier) Warn(message string) { log.Warn().Msg(message) }

type logDisplay struct{}

func (logDisplay) ShowProfile(p UserProfile) {
	log.Info().Str("name", p.DisplayName()).Msg("Profile updated")
}

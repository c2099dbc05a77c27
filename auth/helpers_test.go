package auth

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// makeToken builds an unsigned three-part token carrying claims.
func makeToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".signature"
}

func tokenExpiringIn(t *testing.T, d time.Duration) string {
	return makeToken(t, map[string]interface{}{"sub": "u1", "exp": time.Now().Add(d).Unix()})
}

type fakeNavigator struct {
	mu     sync.Mutex
	path   string
	visits []string
}

func newFakeNavigator(path string) *fakeNavigator { return &fakeNavigator{path: path} }

func (n *fakeNavigator) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *fakeNavigator) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visits = append(n.visits, target)
	if i := strings.Index(target, "?"); i >= 0 {
		target = target[:i]
	}
	n.path = target
}

func (n *fakeNavigator) Visits() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.visits...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Warn(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeNotifier) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type fakeDisplay struct {
	mu       sync.Mutex
	profiles []UserProfile
}

func (f *fakeDisplay) ShowProfile(p UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, p)
}

func (f *fakeDisplay) Last() (UserProfile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.profiles) == 0 {
		return UserProfile{}, false
	}
	return f.profiles[len(f.profiles)-1], true
}

// fakeBackend emulates the console API.
type fakeBackend struct {
	mu sync.Mutex

	refreshCalls int
	sessionCalls int
	logoutCalls  int
	apiCalls     int
	order        []string

	refreshStatus int
	refreshBody   map[string]interface{}
	refreshGate   chan struct{}

	sessionStatus int
	sessionValid  bool

	loginStatus int
	loginBody   map[string]interface{}

	lastAPIAuth string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		refreshStatus: http.StatusOK,
		refreshBody:   map[string]interface{}{"success": true},
		sessionStatus: http.StatusOK,
		sessionValid:  true,
		loginStatus:   http.StatusOK,
	}
	server := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(server.Close)
	return b, server
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/auth/refresh":
		b.mu.Lock()
		b.refreshCalls++
		b.order = append(b.order, "refresh")
		gate := b.refreshGate
		status, body := b.refreshStatus, b.refreshBody
		b.mu.Unlock()
		if gate != nil {
			<-gate
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	case "/api/auth/session":
		b.mu.Lock()
		b.sessionCalls++
		status, valid := b.sessionStatus, b.sessionValid
		b.mu.Unlock()
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]bool{"valid": valid})
	case "/api/auth/logout":
		b.mu.Lock()
		b.logoutCalls++
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	case "/api/auth/login":
		b.mu.Lock()
		status, body := b.loginStatus, b.loginBody
		b.mu.Unlock()
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	default:
		b.mu.Lock()
		b.apiCalls++
		b.order = append(b.order, "api:"+r.URL.Path)
		b.lastAPIAuth = r.Header.Get("Authorization")
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) counts() (refresh, session, logout, api int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls, b.sessionCalls, b.logoutCalls, b.apiCalls
}

func (b *fakeBackend) callOrder() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.order...)
}

func testSettings(baseURL string) Settings {
	s := DefaultSettings()
	s.BaseURL = baseURL
	s.RetryDelay = 10 * time.Millisecond
	s.RequestTimeout = 5 * time.Second
	return s
}

type testSession struct {
	manager    *Manager
	backend    *fakeBackend
	nav        *fakeNavigator
	notifier   *fakeNotifier
	display    *fakeDisplay
	persistent *MemoryStorage
	session    *MemoryStorage
}

func newTestSession(t *testing.T, path string, tweak func(s *Settings)) *testSession {
	t.Helper()
	backend, server := newFakeBackend(t)
	settings := testSettings(server.URL)
	if tweak != nil {
		tweak(&settings)
	}
	ts := &testSession{
		backend:    backend,
		nav:        newFakeNavigator(path),
		notifier:   &fakeNotifier{},
		display:    &fakeDisplay{},
		persistent: NewMemoryStorage(),
		session:    NewMemoryStorage(),
	}
	m, err := NewManager(Options{
		Settings:   settings,
		Persistent: ts.persistent,
		Session:    ts.session,
		Navigator:  ts.nav,
		Notifier:   ts.notifier,
		Display:    ts.display,
	})
	require.NoError(t, err)
	t.Cleanup(m.Stop)
	ts.manager = m
	return ts
}

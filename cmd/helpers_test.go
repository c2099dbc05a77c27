package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/habedi/waconsole/auth"
	"github.com/habedi/waconsole/config"
	"github.com/habedi/waconsole/db"
	"github.com/stretchr/testify/require"
)

const testPassword = "secret"

func signedToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(ttl).Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

// consoleBackend is a minimal console API.
type consoleBackend struct {
	t  *testing.T
	mu sync.Mutex

	refreshCalls  int
	logoutCalls   int
	rejectSession bool
}

func newConsoleBackend(t *testing.T) (*consoleBackend, *httptest.Server) {
	t.Helper()
	b := &consoleBackend{t: t}
	server := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(server.Close)
	return b, server
}

func (b *consoleBackend) serve(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	authorized := strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ")

	switch r.URL.Path {
	case "/api/auth/login":
		var creds struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"token":   signedToken(b.t, time.Hour),
			"user":    auth.UserProfile{ID: "u1", Name: "Ana", Email: creds.Email},
		})
	case "/api/auth/refresh":
		b.mu.Lock()
		b.refreshCalls++
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "token": signedToken(b.t, time.Hour)})
	case "/api/auth/session":
		b.mu.Lock()
		reject := b.rejectSession
		b.mu.Unlock()
		if reject || !authorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"valid":true}`))
	case "/api/auth/logout":
		b.mu.Lock()
		b.logoutCalls++
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	case "/api/profile":
		if !authorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"plan":"pro"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}
}

func (b *consoleBackend) refreshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

// setupTestDB points the global database at a fresh file for the test.
func setupTestDB(t *testing.T) {
	t.Helper()
	db.Path = filepath.Join(t.TempDir(), "storage.db")
	require.NoError(t, db.InitDB())
	t.Cleanup(func() {
		_ = db.CloseDB()
		db.Db = nil
	})
}

func testConfig(baseURL string) *config.Config {
	s := auth.DefaultSettings()
	s.BaseURL = baseURL
	s.RetryDelay = 10 * time.Millisecond
	s.RequestTimeout = 5 * time.Second
	return &config.Config{DBPath: db.Path, Auth: s}
}

func stubPassword(t *testing.T, password string) {
	t.Helper()
	orig := readPassword
	readPassword = func() ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { readPassword = orig })
}

func runCommand(ctx context.Context, cfg *config.Config, stdin string, args ...string) (string, error) {
	root := createRootCmd(cfg)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return buf.String(), err
}

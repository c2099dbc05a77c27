package auth

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRefresher(t *testing.T) (*Refresher, *TokenStore, *fakeBackend) {
	t.Helper()
	backend, server := newFakeBackend(t)
	tokens := NewTokenStore(NewMemoryStorage(), NewMemoryStorage())
	fetch := NewRetryingFetch(server.Client(), 5*time.Millisecond)
	return NewRefresher(server.URL+"/api/auth/refresh", tokens, fetch, 2), tokens, backend
}

func TestRefresher_StoresNewTokenAndProfile(t *testing.T) {
	r, tokens, backend := newTestRefresher(t)
	tokens.Set("old", true)
	backend.set(func(b *fakeBackend) {
		b.refreshBody = map[string]interface{}{
			"success": true,
			"token":   "new",
			"user":    map[string]string{"name": "Ana", "email": "ana@example.com"},
		}
	})

	res, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", res.Token)
	assert.Equal(t, "new", tokens.Get())
	assert.True(t, tokens.Remembered())

	p, ok := tokens.Profile()
	require.True(t, ok)
	assert.Equal(t, "Ana", p.Name)
}

func TestRefresher_KeepsSessionOnlyTokenInSessionStorage(t *testing.T) {
	r, tokens, backend := newTestRefresher(t)
	tokens.Set("old", false)
	backend.set(func(b *fakeBackend) {
		b.refreshBody = map[string]interface{}{"success": true, "token": "new"}
	})

	_, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", tokens.Get())
	assert.False(t, tokens.Remembered())
}

func TestRefresher_KeepsTokenWhenServerSendsNone(t *testing.T) {
	r, tokens, _ := newTestRefresher(t)
	tokens.Set("cookie-backed", true)

	res, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cookie-backed", res.Token)
	assert.Equal(t, "cookie-backed", tokens.Get())
}

func TestRefresher_Failures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   map[string]interface{}
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, map[string]interface{}{"success": false}, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, map[string]interface{}{}, ErrUnauthorized},
		{"success false", http.StatusOK, map[string]interface{}{"success": false, "message": "revoked"}, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, map[string]interface{}{}, ErrRefreshFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, tokens, backend := newTestRefresher(t)
			tokens.Set("old", true)
			backend.set(func(b *fakeBackend) {
				b.refreshStatus = tc.status
				b.refreshBody = tc.body
			})

			_, err := r.Refresh(context.Background())
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, "old", tokens.Get())
			refresh, _, _, _ := backend.counts()
			assert.Equal(t, 1, refresh, "HTTP errors are not retried")
		})
	}
}

func TestRefresher_NoToken(t *testing.T) {
	r, _, backend := newTestRefresher(t)
	_, err := r.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	refresh, _, _, _ := backend.counts()
	assert.Equal(t, 0, refresh)
}

func TestRefresher_CoalescesConcurrentCalls(t *testing.T) {
	r, tokens, backend := newTestRefresher(t)
	tokens.Set("old", true)
	gate := make(chan struct{})
	backend.set(func(b *fakeBackend) {
		b.refreshGate = gate
		b.refreshBody = map[string]interface{}{"success": true, "token": "new"}
	})

	var refreshed int
	var mu sync.Mutex
	r.onRefreshed = func(*RefreshResult) {
		mu.Lock()
		refreshed++
		mu.Unlock()
	}

	const callers = 3
	var wg sync.WaitGroup
	results := make([]*RefreshResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Refresh(context.Background())
		}(i)
	}

	// Let every caller join the flight before the server answers.
	assert.Eventually(t, func() bool {
		refresh, _, _, _ := backend.counts()
		return refresh == 1
	}, eventually, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	close(gate)
	wg.Wait()

	refresh, _, _, _ := backend.counts()
	assert.Equal(t, 1, refresh)
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new", results[i].Token)
	}
	assert.Equal(t, 1, refreshed)
}

func TestRefresher_CallerContextDoesNotCancelFlight(t *testing.T) {
	r, tokens, backend := newTestRefresher(t)
	tokens.Set("old", true)
	gate := make(chan struct{})
	backend.set(func(b *fakeBackend) {
		b.refreshGate = gate
		b.refreshBody = map[string]interface{}{"success": true, "token": "new"}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Refresh(ctx)
		done <- err
	}()
	assert.Eventually(t, func() bool {
		refresh, _, _, _ := backend.counts()
		return refresh == 1
	}, eventually, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(gate)
	assert.Eventually(t, func() bool { return tokens.Get() == "new" }, eventually, 5*time.Millisecond)
}

package auth

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Purpose identifies a timer in the IntervalRegistry.
type Purpose string

const (
	PurposeTokenRefresh         Purpose = "tokenRefresh"         // recurring refresh of a temporary token
	PurposeSessionCheck         Purpose = "sessionCheck"         // periodic server-side session validation
	PurposeTokenRefreshInterval Purpose = "tokenRefreshInterval" // one-shot refresh ahead of expiry
)

type timerHandle struct {
	stop      chan struct{}
	once      sync.Once
	delay     time.Duration
	recurring bool
}

func (h *timerHandle) cancel() { h.once.Do(func() { close(h.stop) }) }

// IntervalRegistry owns every background timer of a session so they can all
// be cancelled together. A purpose maps to at most one live timer.
type IntervalRegistry struct {
	mu      sync.Mutex
	handles map[Purpose]*timerHandle
}

// NewIntervalRegistry returns an empty registry.
func NewIntervalRegistry() *IntervalRegistry {
	return &IntervalRegistry{handles: make(map[Purpose]*timerHandle)}
}

// Arm starts a timer for purpose, replacing any timer already armed for it.
// One-shot timers fire once after delay; recurring timers fire every delay,
// the first time after one full delay. Runs of the same timer never overlap.
func (r *IntervalRegistry) Arm(purpose Purpose, fn func(), delay time.Duration, recurring bool) {
	if recurring && delay <= 0 {
		log.Error().Str("purpose", string(purpose)).Dur("delay", delay).Msg("Refusing to arm recurring timer without a positive interval")
		return
	}
	h := &timerHandle{stop: make(chan struct{}), delay: delay, recurring: recurring}

	r.mu.Lock()
	if old, ok := r.handles[purpose]; ok {
		old.cancel()
	}
	r.handles[purpose] = h
	r.mu.Unlock()

	log.Debug().Str("purpose", string(purpose)).Dur("delay", delay).Bool("recurring", recurring).Msg("Timer armed")

	if recurring {
		go r.runRecurring(purpose, h, fn)
	} else {
		go r.runOnce(purpose, h, fn)
	}
}

func (r *IntervalRegistry) runOnce(purpose Purpose, h *timerHandle, fn func()) {
	timer := time.NewTimer(h.delay)
	defer timer.Stop()
	select {
	case <-h.stop:
		return
	case <-timer.C:
	}
	r.release(purpose, h)
	safeCall(purpose, fn)
}

func (r *IntervalRegistry) runRecurring(purpose Purpose, h *timerHandle, fn func()) {
	ticker := time.NewTicker(h.delay)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			safeCall(purpose, fn)
		}
	}
}

// release drops h from the table if it is still the live handle for purpose.
func (r *IntervalRegistry) release(purpose Purpose, h *timerHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handles[purpose] == h {
		delete(r.handles, purpose)
	}
}

// safeCall keeps a panicking callback from killing its timer loop.
func safeCall(purpose Purpose, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("purpose", string(purpose)).Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("Timer callback panicked")
		}
	}()
	fn()
}

// Clear cancels the timer armed for purpose, if any.
func (r *IntervalRegistry) Clear(purpose Purpose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[purpose]; ok {
		h.cancel()
		delete(r.handles, purpose)
		log.Debug().Str("purpose", string(purpose)).Msg("Timer cleared")
	}
}

// ClearAll cancels every armed timer.
func (r *IntervalRegistry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for purpose, h := range r.handles {
		h.cancel()
		delete(r.handles, purpose)
	}
}

// Active reports whether a timer is armed for purpose.
func (r *IntervalRegistry) Active(purpose Purpose) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[purpose]
	return ok
}

// Delay returns the delay the timer for purpose was armed with.
func (r *IntervalRegistry) Delay(purpose Purpose) (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[purpose]
	if !ok {
		return 0, false
	}
	return h.delay, true
}

// Recurring reports whether the timer for purpose repeats.
func (r *IntervalRegistry) Recurring(purpose Purpose) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[purpose]
	return ok && h.recurring
}

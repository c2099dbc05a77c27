package auth

import "time"

// SessionState is derived from the stored token and the current time.
// It is never persisted.
type SessionState int

const (
	NoToken SessionState = iota
	Temporary
	Expired
	ExpiringSoon
	Stable
)

func (s SessionState) String() string {
	switch s {
	case NoToken:
		return "no-token"
	case Temporary:
		return "temporary"
	case Expired:
		return "expired"
	case ExpiringSoon:
		return "expiring-soon"
	case Stable:
		return "stable"
	default:
		return "unknown"
	}
}

// Classify maps a decoded payload to a session state. A nil payload, or one
// without an expiry that is not temporary, is treated as NoToken.
func Classify(p *Payload, now time.Time, margin time.Duration) SessionState {
	if p == nil {
		return NoToken
	}
	if p.Temporary {
		return Temporary
	}
	if p.ExpiresAt.IsZero() {
		return NoToken
	}
	remaining := p.ExpiresAt.Sub(now)
	switch {
	case remaining <= 0:
		return Expired
	case remaining < margin:
		return ExpiringSoon
	default:
		return Stable
	}
}

// TimerPlan is what the scheduler should do for a given state.
type TimerPlan struct {
	RefreshNow bool
	Warn       bool
	Purpose    Purpose // empty when no refresh timer is needed
	Delay      time.Duration
	Recurring  bool
}

// PlanFor turns a session state into a timer plan.
func PlanFor(state SessionState, p *Payload, now time.Time, s Settings) TimerPlan {
	switch state {
	case Temporary:
		return TimerPlan{
			Warn:      true,
			Purpose:   PurposeTokenRefresh,
			Delay:     s.TemporaryRefreshInterval,
			Recurring: true,
		}
	case Expired, ExpiringSoon:
		return TimerPlan{RefreshNow: true}
	case Stable:
		return TimerPlan{
			Purpose: PurposeTokenRefreshInterval,
			Delay:   p.ExpiresAt.Sub(now) - s.RefreshMargin,
		}
	default:
		return TimerPlan{}
	}
}

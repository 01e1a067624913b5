package correction

import (
	"sync"
	"time"
)

// RateGate admits at most one remote call at a time and spaces successive
// calls by a cooldown. The cooldown is measured from the moment a call was
// admitted. Callers that are refused fall back to local correction instead
// of waiting.
type RateGate struct {
	now func() time.Time

	mu       sync.Mutex
	cooldown time.Duration
	busy     bool
	used     bool
	last     time.Time
}

// NewRateGate creates a gate with the given cooldown. A nil now selects
// time.Now.
func NewRateGate(cooldown time.Duration, now func() time.Time) *RateGate {
	if now == nil {
		now = time.Now
	}
	return &RateGate{now: now, cooldown: cooldown}
}

// TryAcquire admits a call if none is in flight and the cooldown has passed
// since the last admitted one. The returned release must be called when the
// call (including its retries) is over; calling it more than once is safe.
func (g *RateGate) TryAcquire() (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.busy || (g.used && now.Sub(g.last) < g.cooldown) {
		return nil, false
	}
	g.busy = true
	g.used = true
	g.last = now
	return sync.OnceFunc(func() {
		g.mu.Lock()
		g.busy = false
		g.mu.Unlock()
	}), true
}

// SetCooldown changes the cooldown for subsequent calls.
func (g *RateGate) SetCooldown(d time.Duration) {
	g.mu.Lock()
	g.cooldown = d
	g.mu.Unlock()
}

package scram

import (
	"sync"
	"time"
)

// Lockout counts failed authorization attempts in a fixed window.
// Once the count reaches max, arming stays locked until the window rolls.
type Lockout struct {
	max    int
	window time.Duration

	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// NewLockout creates a Lockout allowing max failures per window.
// Non-positive max or window disables the lockout entirely.
func NewLockout(max int, window time.Duration) *Lockout {
	return &Lockout{max: max, window: window}
}

// RecordFailure counts one failed attempt at the given instant.
// Returns true when this failure is the one that trips the lockout.
func (lk *Lockout) RecordFailure(now time.Time) bool {
	if lk == nil || lk.max <= 0 || lk.window <= 0 {
		return false
	}
	lk.mu.Lock()
	defer lk.mu.Unlock()

	lk.roll(now)
	lk.count++
	return lk.count == lk.max
}

// Locked reports whether arming is currently locked out.
func (lk *Lockout) Locked(now time.Time) bool {
	if lk == nil || lk.max <= 0 || lk.window <= 0 {
		return false
	}
	lk.mu.Lock()
	defer lk.mu.Unlock()

	lk.roll(now)
	return lk.count >= lk.max
}

// Remaining returns how long until the current window rolls over.
func (lk *Lockout) Remaining(now time.Time) time.Duration {
	if lk == nil || lk.window <= 0 {
		return 0
	}
	lk.mu.Lock()
	defer lk.mu.Unlock()

	if lk.windowStart.IsZero() {
		return 0
	}
	rem := lk.window - now.Sub(lk.windowStart)
	if rem < 0 {
		return 0
	}
	return rem
}

// roll resets counters when the window has expired. Caller holds lk.mu.
func (lk *Lockout) roll(now time.Time) {
	if lk.windowStart.IsZero() || now.Sub(lk.windowStart) >= lk.window {
		lk.windowStart = now
		lk.count = 0
	}
}

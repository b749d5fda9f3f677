// Package friction gates a caller-supplied action behind a dwell timer
// and, for destructive actions, a second confirming press with its own
// timeout. Speed is negligence: nothing fires before the review time has
// elapsed, and nothing fires twice at once.
package friction

import (
	"context"
	"sync"
	"time"

	"github.com/ppiankov/chainboard/internal/dwell"
	"github.com/ppiankov/chainboard/internal/tier"
)

// DefaultConfirmTimeout bounds how long a pending confirmation stays
// armed before it reverts. A stale confirm must never be triggerable by
// an unrelated later press.
const DefaultConfirmTimeout = 3 * time.Second

// PressResult describes what a single press did.
type PressResult string

const (
	PressIgnored    PressResult = "ignored"    // dwell unsatisfied, already executing, or gate closed
	PressConfirming PressResult = "confirming" // first press armed the confirmation step
	PressExecuted   PressResult = "executed"   // the protected action ran (its error is returned alongside)
)

// State is the gate's observable state plus the dwell snapshot beneath it.
type State struct {
	Confirming bool
	Executing  bool
	Dwell      dwell.Snapshot
}

// Options configures a Gate. Action is required.
type Options struct {
	Tier           tier.Tier
	CustomDwell    time.Duration
	Action         func(context.Context) error
	RequireConfirm bool
	ConfirmTimeout time.Duration // DefaultConfirmTimeout when <= 0
	OnChange       func(State)   // fired after confirming/executing transitions, outside the gate lock
	OnSatisfied    func()
	Interval       time.Duration
	Deferred       bool
	Clock          dwell.Clock
}

// Gate owns one dwell timer and one protected action. One gate per
// control; gates are never shared.
type Gate struct {
	timer          *dwell.Timer
	action         func(context.Context) error
	requireConfirm bool
	confirmTimeout time.Duration
	onChange       func(State)
	clock          dwell.Clock

	mu            sync.Mutex
	confirming    bool
	executing     bool
	confirmGen    uint64
	confirmCancel chan struct{}
	closed        bool
}

// NewGate builds a gate and starts its dwell timer unless opts.Deferred.
func NewGate(opts Options) *Gate {
	g := &Gate{
		action:         opts.Action,
		requireConfirm: opts.RequireConfirm,
		confirmTimeout: opts.ConfirmTimeout,
		onChange:       opts.OnChange,
		clock:          opts.Clock,
	}
	if g.confirmTimeout <= 0 {
		g.confirmTimeout = DefaultConfirmTimeout
	}
	if g.clock == nil {
		g.clock = dwell.SystemClock{}
	}
	g.timer = dwell.New(dwell.Options{
		Tier:        opts.Tier,
		CustomDwell: opts.CustomDwell,
		Deferred:    opts.Deferred,
		OnSatisfied: opts.OnSatisfied,
		Interval:    opts.Interval,
		Clock:       g.clock,
	})
	return g
}

// Press runs the click state machine, in order: unsatisfied or executing
// presses are dropped; with confirmation required, the first press arms
// the confirm step; otherwise the action runs to completion. The action's
// error is returned untouched, never retried or interpreted, and the gate
// always returns to a clean state after one attempt.
func (g *Gate) Press(ctx context.Context) (PressResult, error) {
	satisfied := g.timer.Satisfied()

	g.mu.Lock()
	if g.closed || g.executing || !satisfied {
		g.mu.Unlock()
		return PressIgnored, nil
	}

	if g.requireConfirm && !g.confirming {
		g.confirming = true
		g.confirmGen++
		gen := g.confirmGen
		cancel := make(chan struct{})
		g.confirmCancel = cancel
		expired := g.clock.After(g.confirmTimeout) // armed before Press returns
		g.mu.Unlock()
		go g.expireConfirm(gen, expired, cancel)
		g.notify()
		return PressConfirming, nil
	}

	g.executing = true
	g.stopConfirmTimerLocked() // the pending confirm is consumed by this press
	g.mu.Unlock()
	g.notify()

	err := g.action(ctx)

	g.mu.Lock()
	g.executing = false
	g.confirming = false
	g.mu.Unlock()
	g.notify()
	return PressExecuted, err
}

// State samples the dwell timer and returns the combined gate state.
func (g *Gate) State() State {
	snap := g.timer.Snapshot()
	g.mu.Lock()
	s := State{Confirming: g.confirming, Executing: g.executing, Dwell: snap}
	g.mu.Unlock()
	return s
}

// Satisfied reports whether the dwell requirement has been met.
func (g *Gate) Satisfied() bool { return g.timer.Satisfied() }

// Rearm restarts the review clock from zero and drops any pending
// confirmation. Use when the governed inputs change.
func (g *Gate) Rearm() {
	g.clearConfirm()
	g.timer.Start()
}

// Reset returns the gate to zero: timer cleared, confirmation dropped.
func (g *Gate) Reset() {
	g.clearConfirm()
	g.timer.Reset()
}

// Pause freezes the review clock; Resume continues it.
func (g *Gate) Pause()  { g.timer.Pause() }
func (g *Gate) Resume() { g.timer.Resume() }

// SetVisible forwards a host visibility signal to the dwell timer.
func (g *Gate) SetVisible(visible bool) { g.timer.SetVisible(visible) }

// Bind consumes a visibility stream until it closes or the gate closes.
func (g *Gate) Bind(visible <-chan bool) { g.timer.Bind(visible) }

// Close tears the gate down: confirm timer cancelled, dwell timer closed.
// Presses after Close are ignored.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.confirming = false
	g.stopConfirmTimerLocked()
	g.mu.Unlock()
	g.timer.Close()
}

// expireConfirm reverts a confirmation that was not followed by a second
// press in time. The generation guard keeps a stale expiry from touching
// a newer confirm cycle.
func (g *Gate) expireConfirm(gen uint64, expired <-chan time.Time, cancel chan struct{}) {
	select {
	case <-expired:
		g.mu.Lock()
		if g.closed || g.confirmGen != gen || !g.confirming || g.executing {
			g.mu.Unlock()
			return
		}
		g.confirming = false
		g.confirmCancel = nil
		g.mu.Unlock()
		g.notify()
	case <-cancel:
	}
}

func (g *Gate) clearConfirm() {
	g.mu.Lock()
	g.confirming = false
	g.stopConfirmTimerLocked()
	g.mu.Unlock()
}

func (g *Gate) stopConfirmTimerLocked() {
	if g.confirmCancel != nil {
		close(g.confirmCancel)
		g.confirmCancel = nil
	}
}

func (g *Gate) notify() {
	if g.onChange != nil {
		g.onChange(g.State())
	}
}

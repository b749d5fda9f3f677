// Package dwell implements the review-time gate at the core of the
// operator console: a timer that must accumulate a tier-derived minimum
// of running time before a governed action may proceed. The timer owns
// no rendering; hosts read Snapshot for display and may feed it a
// visibility stream so off-screen controls stop accruing review time.
package dwell

import (
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/chainboard/internal/tier"
)

// DefaultInterval is the sampling period while the timer runs.
const DefaultInterval = 100 * time.Millisecond

// Options configures a Timer. Tier is required; everything else has a
// working default.
type Options struct {
	Tier        tier.Tier
	CustomDwell time.Duration // overrides the tier table; clamped to tier.DwellFloor
	Deferred    bool          // when true the timer waits for Start instead of running on construction
	OnSatisfied func()        // fired exactly once per arm cycle, outside the timer lock
	Interval    time.Duration // sampling period, DefaultInterval when <= 0
	Clock       Clock         // SystemClock when nil
}

// Timer enforces a minimum elapsed running time before Satisfied flips.
// One instance guards one control; instances are never shared.
type Timer struct {
	clock    Clock
	interval time.Duration
	required time.Duration
	onSat    func()

	mu        sync.Mutex
	accum     time.Duration // running time banked across pauses
	runStart  time.Time     // start of the current run segment
	running   bool
	satisfied bool
	closed    bool
	stop      chan struct{} // closes when the current sampling loop must exit
	done      chan struct{} // closes once, on Close
}

// Snapshot is the read-only derived state of a Timer at one instant.
type Snapshot struct {
	Elapsed   time.Duration
	Required  time.Duration
	Remaining time.Duration
	Progress  float64 // 0..100
	Satisfied bool
	Running   bool
	Display   string // "Ready" once satisfied, else remaining seconds like "2.5s"
}

// New builds a Timer and, unless opts.Deferred, starts it immediately.
// Malformed dwell configuration clamps to the floor rather than erroring:
// this gates review time, it is not safety plumbing.
func New(opts Options) *Timer {
	t := &Timer{
		clock:    opts.Clock,
		interval: opts.Interval,
		required: tier.RequiredDwell(opts.Tier, opts.CustomDwell),
		onSat:    opts.OnSatisfied,
		done:     make(chan struct{}),
	}
	if t.clock == nil {
		t.clock = SystemClock{}
	}
	if t.interval <= 0 {
		t.interval = DefaultInterval
	}
	if !opts.Deferred {
		t.Start()
	}
	return t
}

// Required returns the effective dwell after tier lookup and floor clamp.
func (t *Timer) Required() time.Duration { return t.required }

// Start arms the timer from zero: elapsed cleared, satisfied cleared, a
// fresh run segment begins. Safe in any phase; calling while running
// restarts from zero, which is how callers re-arm when the governed
// inputs change.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.stopRunLocked()
	t.accum = 0
	t.satisfied = false
	t.runStart = t.clock.Now()
	t.running = true
	t.startRunLocked()
	t.mu.Unlock()
}

// Pause freezes elapsed at its current value and stops sampling.
// No-op unless running.
func (t *Timer) Pause() {
	t.mu.Lock()
	if t.closed || !t.running {
		t.mu.Unlock()
		return
	}
	t.accum += t.clock.Now().Sub(t.runStart)
	t.running = false
	t.stopRunLocked()
	t.mu.Unlock()
}

// Resume continues a paused timer; banked elapsed time carries over.
// No-op while running or once satisfied (nothing left to resume toward).
func (t *Timer) Resume() {
	t.mu.Lock()
	if t.closed || t.running || t.satisfied {
		t.mu.Unlock()
		return
	}
	t.runStart = t.clock.Now()
	t.running = true
	t.startRunLocked()
	t.mu.Unlock()
}

// Reset returns the timer to zero, not running, not satisfied,
// unconditionally. Use when the governed context changes and the review
// clock must restart.
func (t *Timer) Reset() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.stopRunLocked()
	t.accum = 0
	t.satisfied = false
	t.running = false
	t.mu.Unlock()
}

// Close stops sampling permanently. Further operations are no-ops.
// Every constructed Timer must be closed; a sampling goroutine alive
// after Close is a leak.
func (t *Timer) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	if t.running {
		t.accum += t.clock.Now().Sub(t.runStart)
		t.running = false
	}
	t.stopRunLocked()
	close(t.done)
	t.mu.Unlock()
}

// SetVisible drives pause/resume from a host visibility signal: an
// invisible control must not accrue review time in the background.
func (t *Timer) SetVisible(visible bool) {
	if visible {
		t.Resume()
	} else {
		t.Pause()
	}
}

// Bind consumes a visibility stream until the channel closes or the
// timer is closed.
func (t *Timer) Bind(visible <-chan bool) {
	go func() {
		for {
			select {
			case <-t.done:
				return
			case v, ok := <-visible:
				if !ok {
					return
				}
				t.SetVisible(v)
			}
		}
	}()
}

// Satisfied reports whether the dwell requirement has been met, sampling
// the clock first so callers never observe a stale false.
func (t *Timer) Satisfied() bool {
	return t.Snapshot().Satisfied
}

// Snapshot samples the clock and returns derived state. The sample may
// itself cross the threshold, in which case the satisfaction callback
// fires here rather than on the next tick.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	fire := t.sampleLocked()
	elapsed := t.accum
	if t.running && !t.closed {
		elapsed += t.clock.Now().Sub(t.runStart)
	}
	s := Snapshot{
		Elapsed:   elapsed,
		Required:  t.required,
		Satisfied: t.satisfied,
		Running:   t.running,
	}
	t.mu.Unlock()
	if fire {
		t.fireSatisfied()
	}

	if rem := s.Required - s.Elapsed; rem > 0 {
		s.Remaining = rem
	}
	s.Progress = float64(s.Elapsed) / float64(s.Required) * 100
	if s.Progress > 100 {
		s.Progress = 100
	}
	if s.Satisfied {
		s.Display = "Ready"
	} else {
		s.Display = fmt.Sprintf("%.1fs", s.Remaining.Seconds())
	}
	return s
}

// startRunLocked launches the sampling loop for the current run segment.
func (t *Timer) startRunLocked() {
	stop := make(chan struct{})
	t.stop = stop
	go t.run(stop)
}

// stopRunLocked ends the current sampling loop, if any.
func (t *Timer) stopRunLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

func (t *Timer) run(stop chan struct{}) {
	tk := t.clock.NewTicker(t.interval)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C():
			t.mu.Lock()
			fire := t.sampleLocked()
			t.mu.Unlock()
			if fire {
				t.fireSatisfied()
			}
		}
	}
}

// sampleLocked checks the threshold and performs the single false→true
// satisfied transition for this arm cycle. Returns true when the caller
// must fire the satisfaction callback after releasing the lock. The
// satisfied flag is cleared only by Start/Reset, so a callback that
// immediately re-arms begins a new cycle and cannot double-fire the old
// one.
func (t *Timer) sampleLocked() bool {
	if t.closed || !t.running || t.satisfied {
		return false
	}
	elapsed := t.accum + t.clock.Now().Sub(t.runStart)
	if elapsed < t.required {
		return false
	}
	t.satisfied = true
	t.stopRunLocked()
	return t.onSat != nil
}

func (t *Timer) fireSatisfied() {
	t.onSat()
}

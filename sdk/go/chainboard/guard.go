package chainboard

import (
	"context"
	"time"

	"github.com/ppiankov/chainboard/internal/dwell"
	"github.com/ppiankov/chainboard/internal/friction"
	"github.com/ppiankov/chainboard/internal/tier"
)

// Tier classifies a guarded action's criticality; higher tiers demand
// longer mandatory review.
type Tier = tier.Tier

const (
	TierLaw         = tier.Law
	TierPolicy      = tier.Policy
	TierGuidance    = tier.Guidance
	TierOperational = tier.Operational
)

// PressResult describes what a single Press did.
type PressResult = friction.PressResult

const (
	PressIgnored    = friction.PressIgnored
	PressConfirming = friction.PressConfirming
	PressExecuted   = friction.PressExecuted
)

// GuardState is the guard's observable state plus the dwell snapshot
// beneath it.
type GuardState = friction.State

// DwellSnapshot is the read-only dwell view inside GuardState.
type DwellSnapshot = dwell.Snapshot

// GuardConfig configures a Guard. Action is required; everything else
// has working defaults. A zero Tier gets the 500ms dwell floor.
type GuardConfig struct {
	Tier           Tier
	CustomDwell    time.Duration // overrides the tier dwell, clamped to the floor
	Action         func(context.Context) error
	RequireConfirm bool
	ConfirmTimeout time.Duration // window for the second press, default 3s
	OnChange       func(GuardState)
	OnSatisfied    func()
	Interval       time.Duration // dwell sampling period
}

// Guard gates one host action behind the console's friction semantics:
// a tiered dwell that only accrues while the control is visible, then
// optionally a confirming second press. One guard per control; guards
// are never shared.
type Guard struct {
	gate *friction.Gate
}

// NewGuard builds a guard and starts its review clock.
func NewGuard(cfg GuardConfig) *Guard {
	return newGuard(cfg, nil)
}

func newGuard(cfg GuardConfig, clock dwell.Clock) *Guard {
	return &Guard{gate: friction.NewGate(friction.Options{
		Tier:           cfg.Tier,
		CustomDwell:    cfg.CustomDwell,
		Action:         cfg.Action,
		RequireConfirm: cfg.RequireConfirm,
		ConfirmTimeout: cfg.ConfirmTimeout,
		OnChange:       cfg.OnChange,
		OnSatisfied:    cfg.OnSatisfied,
		Interval:       cfg.Interval,
		Clock:          clock,
	})}
}

// Press runs the click state machine: presses before the dwell elapses
// are ignored, the first press after it arms the confirmation step when
// one is required, and the press after that runs the action. The
// action's error is returned untouched.
func (g *Guard) Press(ctx context.Context) (PressResult, error) {
	return g.gate.Press(ctx)
}

// State samples the guard.
func (g *Guard) State() GuardState { return g.gate.State() }

// Satisfied reports whether the review time has elapsed.
func (g *Guard) Satisfied() bool { return g.gate.Satisfied() }

// Bind consumes a visibility stream from the host UI until the stream
// closes or the guard does. Hidden controls do not accrue review time.
func (g *Guard) Bind(visible <-chan bool) { g.gate.Bind(visible) }

// SetVisible applies a single visibility change.
func (g *Guard) SetVisible(visible bool) { g.gate.SetVisible(visible) }

// Rearm restarts the review clock from zero and drops any pending
// confirmation. Use when the governed inputs change.
func (g *Guard) Rearm() { g.gate.Rearm() }

// Pause freezes the review clock; Resume continues it.
func (g *Guard) Pause()  { g.gate.Pause() }
func (g *Guard) Resume() { g.gate.Resume() }

// Close releases the guard's timers. Presses after Close are ignored.
func (g *Guard) Close() { g.gate.Close() }

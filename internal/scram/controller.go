package scram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ppiankov/chainboard/internal/dwell"
	"github.com/ppiankov/chainboard/internal/friction"
	"github.com/ppiankov/chainboard/internal/ledger"
	"github.com/ppiankov/chainboard/internal/model"
	"github.com/ppiankov/chainboard/internal/tier"
)

// Sentinel errors callers branch on.
var (
	ErrNotAuthorized = errors.New("scram: not authorized")
	ErrLockedOut     = errors.New("scram: arming locked out")
	ErrCoolingDown   = errors.New("scram: cooling down")
)

const (
	defaultCooldown      = 60 * time.Second
	defaultMaxAttempts   = 3
	defaultLockoutWindow = 5 * time.Minute
)

// Recorder receives operator-ledger entries. *ledger.Log satisfies it.
type Recorder interface {
	Append(entry ledger.Entry) error
}

// State is the controller's observable state. Dwell and confirm fields
// reflect the engage gate of the current arm cycle.
type State struct {
	Phase             model.SwitchPhase
	Scope             model.Scope
	Auth              model.AuthLevel // effective level, including elevation
	Elevated          bool
	ArmedAt           time.Time
	EngagedAt         time.Time
	CooldownRemaining time.Duration
	LockoutRemaining  time.Duration // zero when arming is not locked
	Confirming        bool
	Executing         bool
	Dwell             dwell.Snapshot
}

// View renders the state as the displayed kill-switch section.
func (s State) View() model.KillSwitchState {
	v := model.KillSwitchState{
		Phase: s.Phase,
		Scope: s.Scope,
		Auth:  s.Auth,
	}
	if !s.ArmedAt.IsZero() {
		at := s.ArmedAt
		v.ArmedAt = &at
	}
	if !s.EngagedAt.IsZero() {
		at := s.EngagedAt
		v.EngagedAt = &at
	}
	v.CooldownRemainingMS = s.CooldownRemaining.Milliseconds()
	return v
}

// Options configures a Controller.
type Options struct {
	Auth           model.AuthLevel // operator's base authorization
	Actor          string          // label for ledger lines, default "operator"
	CustomDwell    time.Duration   // engage dwell override, 0 = LAW default
	ConfirmTimeout time.Duration
	Cooldown       time.Duration
	MaxAttempts    int
	LockoutWindow  time.Duration
	Ledger         Recorder // nil = transitions are not recorded
	Overrides      *Store   // nil = no break-glass elevation
	OnChange       func(State)
	Interval       time.Duration // dwell sampling interval passthrough
	Clock          dwell.Clock
}

// Controller drives the kill-switch state machine:
// DISARMED -(Arm)-> ARMED -(Engage)-> ENGAGED -(Disarm)-> COOLDOWN -> DISARMED.
// Engage passes through a LAW-tier friction gate with a confirmation step;
// arming is guarded by authorization level, break-glass overrides, and a
// failed-attempt lockout.
type Controller struct {
	actor          string
	baseAuth       model.AuthLevel
	customDwell    time.Duration
	confirmTimeout time.Duration
	cooldown       time.Duration
	interval       time.Duration
	clock          dwell.Clock
	rec            Recorder
	overrides      *Store
	lockout        *Lockout
	onChange       func(State)

	mu          sync.Mutex
	phase       model.SwitchPhase
	scope       model.Scope
	elevated    bool
	armedAt     time.Time
	engagedAt   time.Time
	cooldownEnd time.Time
	cooldownGen uint64
	gate        *friction.Gate
	closed      bool
	done        chan struct{}
}

// New creates a Controller in DISARMED phase.
func New(opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = dwell.SystemClock{}
	}
	if opts.Actor == "" {
		opts.Actor = "operator"
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.LockoutWindow <= 0 {
		opts.LockoutWindow = defaultLockoutWindow
	}
	if opts.Auth == "" {
		opts.Auth = model.AuthUnauthorized
	}

	return &Controller{
		actor:          opts.Actor,
		baseAuth:       opts.Auth,
		customDwell:    opts.CustomDwell,
		confirmTimeout: opts.ConfirmTimeout,
		cooldown:       opts.Cooldown,
		interval:       opts.Interval,
		clock:          opts.Clock,
		rec:            opts.Ledger,
		overrides:      opts.Overrides,
		lockout:        NewLockout(opts.MaxAttempts, opts.LockoutWindow),
		onChange:       opts.OnChange,
		phase:          model.SwitchDisarmed,
		done:           make(chan struct{}),
	}
}

// Arm transitions DISARMED -> ARMED for the given scope and starts the
// engage gate's LAW-tier dwell clock. Requires ARM_ONLY or better; an
// active break-glass token elevates the whole cycle to FULL_ACCESS.
func (c *Controller) Arm(scope model.Scope) error {
	now := c.clock.Now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("scram: controller closed")
	}
	switch c.phase {
	case model.SwitchCooldown:
		c.mu.Unlock()
		return ErrCoolingDown
	case model.SwitchArmed, model.SwitchEngaged:
		c.mu.Unlock()
		return fmt.Errorf("scram: already armed")
	}
	c.mu.Unlock()

	if c.lockout.Locked(now) {
		return ErrLockedOut
	}

	adm := CheckAuthority(c.baseAuth, model.AuthArmOnly, c.overrides)
	if !adm.Allowed {
		c.recordAuthFailure(now, "arm", scope, adm.Reason)
		return fmt.Errorf("%w: %s", ErrNotAuthorized, adm.Reason)
	}

	gate := friction.NewGate(friction.Options{
		Tier:           tier.Law,
		CustomDwell:    c.customDwell,
		Action:         c.engageAction,
		RequireConfirm: true,
		ConfirmTimeout: c.confirmTimeout,
		OnChange:       func(friction.State) { c.notify() },
		OnSatisfied:    c.notify,
		Interval:       c.interval,
		Clock:          c.clock,
	})

	c.mu.Lock()
	if c.closed || c.phase != model.SwitchDisarmed {
		c.mu.Unlock()
		gate.Close()
		return fmt.Errorf("scram: already armed")
	}
	c.phase = model.SwitchArmed
	c.scope = scope
	c.armedAt = now
	c.engagedAt = time.Time{}
	c.elevated = adm.Elevated
	c.gate = gate
	c.mu.Unlock()

	if adm.Elevated {
		c.append(ledger.Entry{
			Category: ledger.CategoryOverrideConsumed,
			Summary:  fmt.Sprintf("break-glass override consumed for arm %s", scope),
			Details:  map[string]any{"token_id": adm.TokenID, "scope": string(scope)},
		})
	}
	c.append(ledger.Entry{
		Category: ledger.CategoryScramArmed,
		Summary:  fmt.Sprintf("kill switch armed for %s", scope),
		Details:  map[string]any{"scope": string(scope), "auth": string(c.effectiveAuth())},
	})
	c.notify()
	return nil
}

// Engage presses the engage gate. The first press after the dwell is
// satisfied arms the confirmation step; the second press within the
// confirm window executes the engagement. Requires FULL_ACCESS.
func (c *Controller) Engage(ctx context.Context) (friction.PressResult, error) {
	now := c.clock.Now()

	c.mu.Lock()
	if c.closed || c.phase != model.SwitchArmed || c.gate == nil {
		c.mu.Unlock()
		return friction.PressIgnored, fmt.Errorf("scram: not armed")
	}
	base := c.baseAuth
	if c.elevated {
		base = model.AuthFullAccess
	}
	scope := c.scope
	gate := c.gate
	c.mu.Unlock()

	adm := CheckAuthority(base, model.AuthFullAccess, c.overrides)
	if !adm.Allowed {
		c.recordAuthFailure(now, "engage", scope, adm.Reason)
		return friction.PressIgnored, fmt.Errorf("%w: %s", ErrNotAuthorized, adm.Reason)
	}
	if adm.Elevated {
		c.mu.Lock()
		c.elevated = true
		c.mu.Unlock()
		c.append(ledger.Entry{
			Category: ledger.CategoryOverrideConsumed,
			Summary:  fmt.Sprintf("break-glass override consumed for engage %s", scope),
			Details:  map[string]any{"token_id": adm.TokenID, "scope": string(scope)},
		})
	}

	return gate.Press(ctx)
}

// Disarm cancels an armed cycle, or moves an engaged switch into cooldown.
// The cooldown must expire on its own; disarming during it returns
// ErrCoolingDown.
func (c *Controller) Disarm() error {
	c.mu.Lock()
	switch c.phase {
	case model.SwitchArmed:
		gate := c.gate
		c.gate = nil
		scope := c.scope
		c.phase = model.SwitchDisarmed
		c.elevated = false
		c.mu.Unlock()

		if gate != nil {
			gate.Close()
		}
		c.append(ledger.Entry{
			Category: ledger.CategoryScramCancelled,
			Summary:  fmt.Sprintf("arm cancelled for %s", scope),
			Details:  map[string]any{"scope": string(scope)},
		})
		c.notify()
		return nil

	case model.SwitchEngaged:
		now := c.clock.Now()
		gate := c.gate
		c.gate = nil
		scope := c.scope
		c.phase = model.SwitchCooldown
		c.cooldownEnd = now.Add(c.cooldown)
		c.cooldownGen++
		gen := c.cooldownGen
		expired := c.clock.After(c.cooldown)
		c.mu.Unlock()

		if gate != nil {
			gate.Close()
		}
		go c.finishCooldown(gen, expired)
		c.append(ledger.Entry{
			Category: ledger.CategoryScramDisarmed,
			Summary:  fmt.Sprintf("disarm requested for %s, cooldown started", scope),
			Details:  map[string]any{"scope": string(scope), "cooldown_ms": c.cooldown.Milliseconds()},
		})
		c.notify()
		return nil

	case model.SwitchCooldown:
		c.mu.Unlock()
		return ErrCoolingDown

	default:
		c.mu.Unlock()
		return fmt.Errorf("scram: not armed")
	}
}

// State returns the controller's observable state.
func (c *Controller) State() State {
	now := c.clock.Now()

	c.mu.Lock()
	st := State{
		Phase:     c.phase,
		Scope:     c.scope,
		Auth:      c.baseAuth,
		Elevated:  c.elevated,
		ArmedAt:   c.armedAt,
		EngagedAt: c.engagedAt,
	}
	if c.elevated {
		st.Auth = model.AuthFullAccess
	}
	if c.phase == model.SwitchCooldown {
		if rem := c.cooldownEnd.Sub(now); rem > 0 {
			st.CooldownRemaining = rem
		}
	}
	gate := c.gate
	c.mu.Unlock()

	if c.lockout.Locked(now) {
		st.LockoutRemaining = c.lockout.Remaining(now)
	}

	if gate != nil {
		gs := gate.State()
		st.Confirming = gs.Confirming
		st.Executing = gs.Executing
		st.Dwell = gs.Dwell
	}
	return st
}

// SetVisible pauses the engage dwell clock when the kill-switch panel is
// hidden and resumes it when shown.
func (c *Controller) SetVisible(visible bool) {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		gate.SetVisible(visible)
	}
}

// Close tears the controller down: the engage gate and any pending
// cooldown timer are released. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	gate := c.gate
	c.gate = nil
	close(c.done)
	c.mu.Unlock()

	if gate != nil {
		gate.Close()
	}
}

// engageAction is the protected action behind the friction gate.
func (c *Controller) engageAction(context.Context) error {
	c.mu.Lock()
	if c.closed || c.phase != model.SwitchArmed {
		c.mu.Unlock()
		return fmt.Errorf("scram: not armed")
	}
	c.phase = model.SwitchEngaged
	c.engagedAt = c.clock.Now()
	scope := c.scope
	auth := c.effectiveAuthLocked()
	c.mu.Unlock()

	c.append(ledger.Entry{
		Category: ledger.CategoryScramEngaged,
		Summary:  fmt.Sprintf("kill switch ENGAGED for %s", scope),
		Details:  map[string]any{"scope": string(scope), "auth": string(auth)},
	})
	return nil
}

func (c *Controller) finishCooldown(gen uint64, expired <-chan time.Time) {
	select {
	case <-expired:
	case <-c.done:
		return
	}

	c.mu.Lock()
	if c.closed || gen != c.cooldownGen || c.phase != model.SwitchCooldown {
		c.mu.Unlock()
		return
	}
	c.phase = model.SwitchDisarmed
	c.scope = ""
	c.elevated = false
	c.armedAt = time.Time{}
	c.engagedAt = time.Time{}
	c.mu.Unlock()
	c.notify()
}

// recordAuthFailure counts a failed authorization attempt and writes a
// lockout entry when this failure trips the lockout.
func (c *Controller) recordAuthFailure(now time.Time, op string, scope model.Scope, reason string) {
	if c.lockout.RecordFailure(now) {
		c.append(ledger.Entry{
			Category: ledger.CategoryLockout,
			Summary:  fmt.Sprintf("arming locked out after failed %s", op),
			Details: map[string]any{
				"op":     op,
				"scope":  string(scope),
				"reason": reason,
			},
		})
	}
}

func (c *Controller) effectiveAuth() model.AuthLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effectiveAuthLocked()
}

func (c *Controller) effectiveAuthLocked() model.AuthLevel {
	if c.elevated {
		return model.AuthFullAccess
	}
	return c.baseAuth
}

// append writes a ledger entry. A failing ledger must not block the kill
// switch, so append errors are reported to stderr and dropped.
func (c *Controller) append(e ledger.Entry) {
	if c.rec == nil {
		return
	}
	e.Actor = c.actor
	if e.Tier == "" {
		e.Tier = string(tier.Law)
	}
	if err := c.rec.Append(e); err != nil {
		fmt.Fprintf(os.Stderr, "scram: ledger append failed: %v\n", err)
	}
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.State())
}

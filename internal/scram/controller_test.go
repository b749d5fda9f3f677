package scram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ppiankov/chainboard/internal/dwell"
	"github.com/ppiankov/chainboard/internal/friction"
	"github.com/ppiankov/chainboard/internal/ledger"
	"github.com/ppiankov/chainboard/internal/model"
)

// memRecorder collects ledger entries in memory.
type memRecorder struct {
	mu      sync.Mutex
	entries []ledger.Entry
}

func (r *memRecorder) Append(e ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memRecorder) categories() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Category
	}
	return out
}

func (r *memRecorder) count(category string) int {
	n := 0
	for _, c := range r.categories() {
		if c == category {
			n++
		}
	}
	return n
}

// testController builds a controller on a fake clock with a sampling
// interval that never fires in fake time, so dwell state is sampled
// inline by Press and State calls.
func testController(t *testing.T, opts Options) (*Controller, *dwell.FakeClock, *memRecorder) {
	t.Helper()
	fc := dwell.NewFakeClock()
	rec := &memRecorder{}
	opts.Clock = fc
	if opts.Interval == 0 {
		opts.Interval = time.Hour
	}
	if opts.Ledger == nil {
		opts.Ledger = rec
	}
	c := New(opts)
	t.Cleanup(c.Close)
	return c, fc, rec
}

func waitState(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("state not reached in time")
}

// engage walks an armed controller through the press-confirm-press flow.
func engage(t *testing.T, c *Controller, fc *dwell.FakeClock) {
	t.Helper()
	fc.Advance(5 * time.Second) // LAW dwell
	if res, err := c.Engage(context.Background()); err != nil || res != friction.PressConfirming {
		t.Fatalf("first engage press: res=%s err=%v, want confirming", res, err)
	}
	if res, err := c.Engage(context.Background()); err != nil || res != friction.PressExecuted {
		t.Fatalf("second engage press: res=%s err=%v, want executed", res, err)
	}
}

func TestArmRequiresAuthorization(t *testing.T) {
	c, _, rec := testController(t, Options{Auth: model.AuthUnauthorized})

	err := c.Arm(model.ScopeTrading)
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("Arm: %v, want ErrNotAuthorized", err)
	}
	if got := c.State().Phase; got != model.SwitchDisarmed {
		t.Fatalf("phase after denied arm = %s, want DISARMED", got)
	}
	if rec.count(ledger.CategoryScramArmed) != 0 {
		t.Fatal("denied arm must not be recorded as armed")
	}
}

func TestArmTransitionsAndRecords(t *testing.T) {
	c, _, rec := testController(t, Options{Auth: model.AuthArmOnly})

	if err := c.Arm(model.ScopeNetwork); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	st := c.State()
	if st.Phase != model.SwitchArmed || st.Scope != model.ScopeNetwork {
		t.Fatalf("state after arm = %+v", st)
	}
	if st.ArmedAt.IsZero() {
		t.Fatal("ArmedAt not set")
	}
	if st.Dwell.Satisfied {
		t.Fatal("engage dwell must start unsatisfied")
	}
	if rec.count(ledger.CategoryScramArmed) != 1 {
		t.Fatalf("ledger categories = %v, want one scram_armed", rec.categories())
	}

	if err := c.Arm(model.ScopeTotal); err == nil {
		t.Fatal("double arm must fail")
	}
}

func TestEngagePressBeforeDwellIgnored(t *testing.T) {
	c, fc, _ := testController(t, Options{Auth: model.AuthFullAccess})
	if err := c.Arm(model.ScopeTrading); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	fc.Advance(4 * time.Second) // below the 5s LAW dwell
	res, err := c.Engage(context.Background())
	if err != nil || res != friction.PressIgnored {
		t.Fatalf("early press: res=%s err=%v, want ignored", res, err)
	}
	if got := c.State().Phase; got != model.SwitchArmed {
		t.Fatalf("phase = %s, want still ARMED", got)
	}
}

func TestFullEngageCycle(t *testing.T) {
	c, fc, rec := testController(t, Options{Auth: model.AuthFullAccess})
	if err := c.Arm(model.ScopeTrading); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	engage(t, c, fc)

	st := c.State()
	if st.Phase != model.SwitchEngaged {
		t.Fatalf("phase = %s, want ENGAGED", st.Phase)
	}
	if st.EngagedAt.IsZero() {
		t.Fatal("EngagedAt not set")
	}
	want := []string{ledger.CategoryScramArmed, ledger.CategoryScramEngaged}
	got := rec.categories()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("ledger categories = %v, want %v", got, want)
	}
}

func TestEngageRequiresFullAccess(t *testing.T) {
	c, fc, _ := testController(t, Options{Auth: model.AuthArmOnly})
	if err := c.Arm(model.ScopeTrading); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	fc.Advance(5 * time.Second)
	res, err := c.Engage(context.Background())
	if !errors.Is(err, ErrNotAuthorized) || res != friction.PressIgnored {
		t.Fatalf("engage at ARM_ONLY: res=%s err=%v, want ignored with ErrNotAuthorized", res, err)
	}
	if got := c.State().Phase; got != model.SwitchArmed {
		t.Fatalf("phase = %s, want still ARMED", got)
	}
}

func TestOverrideElevatesEngage(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.CreateToken("bridge halted, operator needs stop authority", 0); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	c, fc, rec := testController(t, Options{Auth: model.AuthArmOnly, Overrides: store})

	if err := c.Arm(model.ScopeTrading); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	engage(t, c, fc) // first press consumes the token, second rides the elevation

	if got := c.State().Phase; got != model.SwitchEngaged {
		t.Fatalf("phase = %s, want ENGAGED", got)
	}
	if c.State().Auth != model.AuthFullAccess {
		t.Fatal("elevation must be visible in the effective auth level")
	}
	if rec.count(ledger.CategoryOverrideConsumed) != 1 {
		t.Fatalf("ledger categories = %v, want exactly one override_consumed", rec.categories())
	}
	if store.FindActive() != nil {
		t.Fatal("token must be consumed")
	}
}

func TestOverrideAtArmCoversWholeCycle(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.CreateToken("unattended console, emergency access", 0); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	c, fc, rec := testController(t, Options{Auth: model.AuthUnauthorized, Overrides: store})

	if err := c.Arm(model.ScopeTotal); err != nil {
		t.Fatalf("Arm with override: %v", err)
	}
	if !c.State().Elevated {
		t.Fatal("arm through an override must mark the cycle elevated")
	}
	engage(t, c, fc) // no second token needed

	if rec.count(ledger.CategoryOverrideConsumed) != 1 {
		t.Fatalf("ledger categories = %v, want one override_consumed", rec.categories())
	}

	// Elevation ends with the cycle: a later arm needs a fresh token.
	if err := c.Disarm(); err != nil {
		t.Fatalf("Disarm: %v", err)
	}
	fc.Advance(2 * time.Minute) // cooldown
	waitState(t, func() bool { return c.State().Phase == model.SwitchDisarmed })
	if err := c.Arm(model.ScopeTotal); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("second cycle arm: %v, want ErrNotAuthorized", err)
	}
}

func TestArmLockoutAfterRepeatedFailures(t *testing.T) {
	c, fc, rec := testController(t, Options{
		Auth:          model.AuthUnauthorized,
		MaxAttempts:   3,
		LockoutWindow: 5 * time.Minute,
	})

	for i := 0; i < 3; i++ {
		if err := c.Arm(model.ScopeTrading); !errors.Is(err, ErrNotAuthorized) {
			t.Fatalf("arm attempt %d: %v, want ErrNotAuthorized", i, err)
		}
	}
	if err := c.Arm(model.ScopeTrading); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("arm while locked: %v, want ErrLockedOut", err)
	}
	if rec.count(ledger.CategoryLockout) != 1 {
		t.Fatalf("ledger categories = %v, want exactly one lockout", rec.categories())
	}
	if c.State().LockoutRemaining == 0 {
		t.Fatal("locked state must expose remaining lockout time")
	}

	fc.Advance(5 * time.Minute)
	if err := c.Arm(model.ScopeTrading); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("arm after window rolls: %v, want plain ErrNotAuthorized", err)
	}
}

func TestDisarmFromArmedCancels(t *testing.T) {
	c, _, rec := testController(t, Options{Auth: model.AuthArmOnly})
	if err := c.Arm(model.ScopeShadow); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	if err := c.Disarm(); err != nil {
		t.Fatalf("Disarm: %v", err)
	}
	st := c.State()
	if st.Phase != model.SwitchDisarmed || st.Confirming || st.Dwell.Running {
		t.Fatalf("state after cancel = %+v, want clean DISARMED", st)
	}
	if rec.count(ledger.CategoryScramCancelled) != 1 {
		t.Fatalf("ledger categories = %v, want one scram_cancelled", rec.categories())
	}
	if rec.count(ledger.CategoryScramDisarmed) != 0 {
		t.Fatal("cancelling an armed switch must not record a cooldown disarm")
	}
}

func TestDisarmFromEngagedStartsCooldown(t *testing.T) {
	c, fc, rec := testController(t, Options{
		Auth:     model.AuthFullAccess,
		Cooldown: 45 * time.Second,
	})
	if err := c.Arm(model.ScopeTrading); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	engage(t, c, fc)

	if err := c.Disarm(); err != nil {
		t.Fatalf("Disarm: %v", err)
	}
	st := c.State()
	if st.Phase != model.SwitchCooldown {
		t.Fatalf("phase = %s, want COOLDOWN", st.Phase)
	}
	if st.CooldownRemaining != 45*time.Second {
		t.Fatalf("CooldownRemaining = %s, want 45s", st.CooldownRemaining)
	}
	if err := c.Disarm(); !errors.Is(err, ErrCoolingDown) {
		t.Fatalf("second disarm: %v, want ErrCoolingDown", err)
	}
	if err := c.Arm(model.ScopeTrading); !errors.Is(err, ErrCoolingDown) {
		t.Fatalf("arm during cooldown: %v, want ErrCoolingDown", err)
	}
	if rec.count(ledger.CategoryScramDisarmed) != 1 {
		t.Fatalf("ledger categories = %v, want one scram_disarmed", rec.categories())
	}

	fc.Advance(45 * time.Second)
	waitState(t, func() bool { return c.State().Phase == model.SwitchDisarmed })

	// A fresh cycle is possible once the cooldown has expired.
	if err := c.Arm(model.ScopeNetwork); err != nil {
		t.Fatalf("arm after cooldown: %v", err)
	}
}

func TestStateViewMapping(t *testing.T) {
	c, fc, _ := testController(t, Options{Auth: model.AuthFullAccess})
	if err := c.Arm(model.ScopeTrading); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	engage(t, c, fc)

	v := c.State().View()
	if v.Phase != model.SwitchEngaged || v.Scope != model.ScopeTrading {
		t.Fatalf("view = %+v", v)
	}
	if v.ArmedAt == nil || v.EngagedAt == nil {
		t.Fatal("view must carry armed and engaged timestamps")
	}
	if v.Auth != model.AuthFullAccess {
		t.Fatalf("view auth = %s, want FULL_ACCESS", v.Auth)
	}
}

func TestOnChangeObservesTransitions(t *testing.T) {
	var mu sync.Mutex
	var phases []model.SwitchPhase
	opts := Options{
		Auth: model.AuthFullAccess,
		OnChange: func(s State) {
			mu.Lock()
			phases = append(phases, s.Phase)
			mu.Unlock()
		},
	}
	c, fc, _ := testController(t, opts)

	if err := c.Arm(model.ScopeTrading); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	engage(t, c, fc)

	mu.Lock()
	defer mu.Unlock()
	if len(phases) == 0 {
		t.Fatal("OnChange never fired")
	}
	if phases[0] != model.SwitchArmed {
		t.Fatalf("first notification phase = %s, want ARMED", phases[0])
	}
	if phases[len(phases)-1] != model.SwitchEngaged {
		t.Fatalf("last notification phase = %s, want ENGAGED", phases[len(phases)-1])
	}
}

func TestCloseReleasesCooldownAndGate(t *testing.T) {
	defer goleak.VerifyNone(t)

	fc := dwell.NewFakeClock()
	c := New(Options{
		Auth:     model.AuthFullAccess,
		Clock:    fc,
		Interval: time.Hour,
		Cooldown: time.Minute,
	})
	if err := c.Arm(model.ScopeTrading); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	engage(t, c, fc)
	if err := c.Disarm(); err != nil {
		t.Fatalf("Disarm: %v", err)
	}

	c.Close()
	if err := c.Arm(model.ScopeTrading); err == nil {
		t.Fatal("arm after Close must fail")
	}
	c.Close() // idempotent
}

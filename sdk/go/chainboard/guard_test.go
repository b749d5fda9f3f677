package chainboard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/ppiankov/chainboard/internal/dwell"
)

// testGuard builds a guard on a fake clock with a sampling ticker that
// never fires in fake time, so dwell state is sampled inside Press and
// State calls.
func testGuard(t *testing.T, cfg GuardConfig) (*Guard, *dwell.FakeClock) {
	t.Helper()
	fc := dwell.NewFakeClock()
	if cfg.Interval == 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Tier == "" && cfg.CustomDwell == 0 {
		cfg.Tier = TierOperational
		cfg.CustomDwell = 500 * time.Millisecond
	}
	g := newGuard(cfg, fc)
	t.Cleanup(g.Close)
	return g, fc
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestGuardPressBeforeDwellIgnored(t *testing.T) {
	var calls atomic.Int64
	g, fc := testGuard(t, GuardConfig{
		Tier:   TierLaw,
		Action: func(context.Context) error { calls.Add(1); return nil },
	})

	fc.Advance(4 * time.Second) // below the 5s LAW dwell
	res, err := g.Press(context.Background())
	if err != nil || res != PressIgnored {
		t.Fatalf("press before dwell: res=%s err=%v, want ignored", res, err)
	}
	if calls.Load() != 0 {
		t.Fatalf("action invoked %d times before dwell satisfied", calls.Load())
	}
	if g.Satisfied() {
		t.Fatal("guard satisfied before the review time elapsed")
	}
}

func TestGuardPressAfterDwellExecutes(t *testing.T) {
	var calls atomic.Int64
	g, fc := testGuard(t, GuardConfig{
		Action: func(context.Context) error { calls.Add(1); return nil },
	})

	fc.Advance(500 * time.Millisecond)
	res, err := g.Press(context.Background())
	if err != nil || res != PressExecuted {
		t.Fatalf("res=%s err=%v, want executed", res, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("action calls = %d, want 1", calls.Load())
	}
}

func TestGuardConfirmFlow(t *testing.T) {
	var calls atomic.Int64
	g, fc := testGuard(t, GuardConfig{
		RequireConfirm: true,
		ConfirmTimeout: 10 * time.Second,
		Action:         func(context.Context) error { calls.Add(1); return nil },
	})

	fc.Advance(500 * time.Millisecond)

	res, err := g.Press(context.Background())
	if err != nil || res != PressConfirming {
		t.Fatalf("first press: res=%s err=%v, want confirming", res, err)
	}
	if s := g.State(); !s.Confirming {
		t.Fatalf("state after first press %+v, want confirming", s)
	}
	if calls.Load() != 0 {
		t.Fatal("action ran on the arming press")
	}

	res, err = g.Press(context.Background())
	if err != nil || res != PressExecuted {
		t.Fatalf("second press: res=%s err=%v, want executed", res, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("action calls = %d, want 1", calls.Load())
	}
}

func TestGuardConfirmExpires(t *testing.T) {
	g, fc := testGuard(t, GuardConfig{
		RequireConfirm: true,
		ConfirmTimeout: 2 * time.Second,
		Action:         func(context.Context) error { return nil },
	})

	fc.Advance(500 * time.Millisecond)
	if res, _ := g.Press(context.Background()); res != PressConfirming {
		t.Fatalf("first press result %s, want confirming", res)
	}

	fc.Advance(2500 * time.Millisecond)
	waitUntil(t, func() bool { return !g.State().Confirming })

	// The next press arms a fresh confirmation, it does not execute.
	if res, _ := g.Press(context.Background()); res != PressConfirming {
		t.Fatalf("press after expiry result %s, want confirming", res)
	}
}

func TestGuardActionErrorReturned(t *testing.T) {
	boom := errors.New("halt rejected upstream")
	g, fc := testGuard(t, GuardConfig{
		Action: func(context.Context) error { return boom },
	})

	fc.Advance(500 * time.Millisecond)
	res, err := g.Press(context.Background())
	if res != PressExecuted || !errors.Is(err, boom) {
		t.Fatalf("res=%s err=%v, want executed with the action's error", res, err)
	}

	// A failed action leaves the guard clean and re-pressable.
	if s := g.State(); s.Executing || s.Confirming {
		t.Fatalf("state after failure %+v, want clean", s)
	}
	if res, _ := g.Press(context.Background()); res != PressExecuted {
		t.Fatalf("retry result %s, want executed", res)
	}
}

func TestGuardBindVisibility(t *testing.T) {
	defer goleak.VerifyNone(t)

	fc := dwell.NewFakeClock()
	g := newGuard(GuardConfig{
		CustomDwell: time.Second,
		Interval:    time.Hour,
		Action:      func(context.Context) error { return nil },
	}, fc)
	defer g.Close()

	visible := make(chan bool)
	g.Bind(visible)

	visible <- false
	waitUntil(t, func() bool { return !g.State().Dwell.Running })

	// Hidden time must not count toward the dwell.
	fc.Advance(5 * time.Second)
	if g.Satisfied() {
		t.Fatal("dwell accrued while hidden")
	}

	visible <- true
	waitUntil(t, func() bool { return g.State().Dwell.Running })
	fc.Advance(1100 * time.Millisecond)
	if !g.Satisfied() {
		t.Fatal("dwell did not accrue after the control became visible")
	}

	close(visible)
}

func TestGuardCloseIgnoresPress(t *testing.T) {
	defer goleak.VerifyNone(t)

	fc := dwell.NewFakeClock()
	var calls atomic.Int64
	g := newGuard(GuardConfig{
		CustomDwell: 500 * time.Millisecond,
		Interval:    time.Hour,
		Action:      func(context.Context) error { calls.Add(1); return nil },
	}, fc)

	fc.Advance(500 * time.Millisecond)
	g.Close()
	g.Close() // idempotent

	res, err := g.Press(context.Background())
	if err != nil || res != PressIgnored {
		t.Fatalf("press after close: res=%s err=%v, want ignored", res, err)
	}
	if calls.Load() != 0 {
		t.Fatal("action ran after Close")
	}
}

func TestGuardOnChangeObservesConfirm(t *testing.T) {
	var confirmSeen atomic.Bool
	g, fc := testGuard(t, GuardConfig{
		RequireConfirm: true,
		ConfirmTimeout: 10 * time.Second,
		Action:         func(context.Context) error { return nil },
		OnChange: func(s GuardState) {
			if s.Confirming {
				confirmSeen.Store(true)
			}
		},
	})

	fc.Advance(500 * time.Millisecond)
	if res, _ := g.Press(context.Background()); res != PressConfirming {
		t.Fatal("expected confirming press")
	}
	if !confirmSeen.Load() {
		t.Fatal("OnChange never observed the confirming state")
	}
}

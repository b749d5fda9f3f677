package dwell

import "time"

// Clock is the time source for dwell timers. Production code uses
// SystemClock; tests drive a FakeClock so no test sleeps for correctness.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
	// After returns a channel that delivers one instant once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// Ticker abstracts time.Ticker so a fake clock can fire it manually.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// SystemClock is the wall-clock Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return systemTicker{time.NewTicker(d)}
}

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

type systemTicker struct{ t *time.Ticker }

func (s systemTicker) C() <-chan time.Time { return s.t.C }
func (s systemTicker) Stop()               { s.t.Stop() }

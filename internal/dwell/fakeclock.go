package dwell

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock for tests. Advance moves time
// forward and fires any due tickers and After waiters. It lives outside
// the test files so friction, scram and console tests can reuse it.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	target  time.Time
	period  time.Duration // 0 for one-shot
	ch      chan time.Time
	stopped bool
}

// NewFakeClock starts at a fixed epoch so test output is reproducible.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and delivers ticks to due waiters.
// Ticker deliveries coalesce missed periods the way time.Ticker does.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, w := range c.waiters {
		if w.stopped || c.now.Before(w.target) {
			continue
		}
		if w.period > 0 {
			w.target = c.now.Add(w.period)
		} else {
			w.stopped = true
		}
		select {
		case w.ch <- c.now:
		default:
		}
	}
}

func (c *FakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &fakeWaiter{target: c.now.Add(d), period: d, ch: make(chan time.Time, 1)}
	c.waiters = append(c.waiters, w)
	return fakeTicker{c: c, w: w}
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &fakeWaiter{target: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.waiters = append(c.waiters, w)
	return w.ch
}

// Armed reports how many waiters (tickers plus pending Afters) are live.
func (c *FakeClock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}

// BlockUntil waits until at least n waiters are armed. Used by tests to
// let a freshly started sampling goroutine register its ticker before
// the clock is advanced.
func (c *FakeClock) BlockUntil(n int) {
	for c.Armed() < n {
		time.Sleep(time.Millisecond)
	}
}

type fakeTicker struct {
	c *FakeClock
	w *fakeWaiter
}

func (t fakeTicker) C() <-chan time.Time { return t.w.ch }

func (t fakeTicker) Stop() {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.w.stopped = true
}

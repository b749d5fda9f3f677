// Package monitor is the board watchdog. It evaluates staleness and
// governance rules over each snapshot the console receives and raises
// webhook alerts through the alert dispatcher. A finding stays active
// until its rule observes the condition resolved, so a persisting
// violation alerts exactly once.
package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/ppiankov/chainboard/internal/alert"
	"github.com/ppiankov/chainboard/internal/dwell"
	"github.com/ppiankov/chainboard/internal/model"
	"github.com/ppiankov/chainboard/internal/registry"
)

// Alert is an active finding with its rule type and first-seen instant.
type Alert struct {
	Type     string
	Subject  string
	Detail   string
	Severity string
	Since    time.Time
}

// Config wires the watchdog.
type Config struct {
	Registry       *registry.Registry
	FeedStaleAfter time.Duration // 0 uses DefaultFeedStale
	Rules          []Rule        // nil uses DefaultRules
	Dispatcher     *alert.Dispatcher
	OnAlert        func(Alert) // optional, called synchronously from Observe
	Clock          dwell.Clock // SystemClock when nil
}

// Monitor tracks active findings across snapshots.
type Monitor struct {
	rules      []Rule
	dispatcher *alert.Dispatcher
	onAlert    func(Alert)
	clock      dwell.Clock

	mu     sync.Mutex
	active map[string]Alert // keyed by type|subject
	fired  int
}

// New creates a Monitor.
func New(cfg Config) *Monitor {
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules(cfg.Registry, cfg.FeedStaleAfter)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = dwell.SystemClock{}
	}
	return &Monitor{
		rules:      rules,
		dispatcher: cfg.Dispatcher,
		onAlert:    cfg.OnAlert,
		clock:      clock,
		active:     make(map[string]Alert),
	}
}

// Observe evaluates all rules against the snapshot. Call it on every
// refresh tick, re-passing the previous snapshot when no new one
// arrived, so the feed-staleness rule sees time advance after the feed
// goes quiet. New findings dispatch an alert event; findings whose
// condition has resolved are cleared and will alert again if they trip
// later.
func (m *Monitor) Observe(snap model.BoardSnapshot) {
	now := m.clock.Now()
	var fired []Alert

	m.mu.Lock()
	for _, rule := range m.rules {
		findings, ok := rule.Check(snap, now)
		if !ok {
			continue
		}
		current := make(map[string]bool, len(findings))
		for _, f := range findings {
			key := rule.Type + "|" + f.Subject
			current[key] = true
			if _, seen := m.active[key]; seen {
				continue
			}
			a := Alert{
				Type:     rule.Type,
				Subject:  f.Subject,
				Detail:   f.Detail,
				Severity: f.Severity,
				Since:    now,
			}
			m.active[key] = a
			fired = append(fired, a)
		}
		for key, a := range m.active {
			if a.Type == rule.Type && !current[key] {
				delete(m.active, key)
			}
		}
	}
	m.fired += len(fired)
	m.mu.Unlock()

	for _, a := range fired {
		m.dispatch(a, now)
	}
}

// Active returns the current findings, ordered by type then subject.
func (m *Monitor) Active() []Alert {
	m.mu.Lock()
	out := make([]Alert, 0, len(m.active))
	for _, a := range m.active {
		out = append(out, a)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}

// FiredCount returns how many alerts have been raised since creation.
func (m *Monitor) FiredCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fired
}

func (m *Monitor) dispatch(a Alert, now time.Time) {
	if m.onAlert != nil {
		m.onAlert(a)
	}
	if m.dispatcher == nil {
		return
	}
	m.dispatcher.Dispatch(alert.Event{
		Timestamp: now.UTC().Format(time.RFC3339),
		Type:      a.Type,
		Subject:   a.Subject,
		Detail:    a.Detail,
		Severity:  a.Severity,
	})
}

package alert

import (
	"fmt"
	"os"
)

// Dispatcher fans out alert events to matching webhook configurations.
type Dispatcher struct {
	configs []Config
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []Config) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to all webhooks whose Events list matches.
// Delivery runs in goroutines and never blocks the caller. Failures are
// reported to stderr; the console keeps rendering regardless.
func (d *Dispatcher) Dispatch(event Event) {
	for _, cfg := range d.configs {
		if matches(cfg.Events, event) {
			go func(cfg Config) {
				if err := Send(cfg, event); err != nil {
					fmt.Fprintf(os.Stderr, "alert: %s delivery failed: %v\n", event.Type, err)
				}
			}(cfg)
		}
	}
}

func matches(events []string, event Event) bool {
	for _, e := range events {
		if e == "*" || e == event.Type {
			return true
		}
	}
	return false
}

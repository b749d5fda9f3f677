package monitor

import (
	"fmt"
	"time"

	"github.com/ppiankov/chainboard/internal/alert"
	"github.com/ppiankov/chainboard/internal/model"
	"github.com/ppiankov/chainboard/internal/registry"
)

// heartbeatGrace is how many expected heartbeat intervals an agent may
// miss before its lane counts as stale.
const heartbeatGrace = 3

// DefaultFeedStale is the snapshot age past which the feed itself is
// considered dead.
const DefaultFeedStale = 15 * time.Second

// Finding is one subject currently in violation of a rule.
type Finding struct {
	Subject  string // agent GID, invariant ID, kill-switch scope, or "feed"
	Detail   string
	Severity string // "warning" or "critical"
}

// Rule is one watchdog check over a board snapshot.
type Rule struct {
	// Type is the alert event type this rule raises. The watchdog tracks
	// one active finding per (Type, Subject).
	Type string
	// Check reports current violations. ok=false means the snapshot did
	// not carry the data this rule needs; active findings are kept rather
	// than resolved, so an API outage never clears a live alert.
	Check func(snap model.BoardSnapshot, now time.Time) (findings []Finding, ok bool)
}

// DefaultRules returns the built-in watchdog rules.
func DefaultRules(reg *registry.Registry, feedStaleAfter time.Duration) []Rule {
	if feedStaleAfter <= 0 {
		feedStaleAfter = DefaultFeedStale
	}
	return []Rule{
		StaleAgents(reg),
		MissingAgents(reg),
		StaleFeed(feedStaleAfter),
		FailingInvariants(),
		EngagedKillSwitch(),
	}
}

// StaleAgents flags lanes whose last heartbeat is older than three
// expected intervals. Lanes that never reported a heartbeat are skipped;
// the grid already renders those as unknown.
func StaleAgents(reg *registry.Registry) Rule {
	if reg == nil {
		reg = registry.New(nil)
	}
	return Rule{
		Type: alert.EventAgentStale,
		Check: func(snap model.BoardSnapshot, now time.Time) ([]Finding, bool) {
			if !snap.Available.Agents {
				return nil, false
			}
			var out []Finding
			for _, tile := range snap.Agents {
				if tile.LastHeartbeat.IsZero() {
					continue
				}
				budget := heartbeatGrace * reg.ExpectedHeartbeat(tile.GID)
				age := now.Sub(tile.LastHeartbeat)
				if age <= budget {
					continue
				}
				out = append(out, Finding{
					Subject:  tile.GID,
					Detail:   fmt.Sprintf("%s (%s) last heartbeat %s ago, budget %s", tile.Name, tile.Lane, age.Round(time.Second), budget),
					Severity: "warning",
				})
			}
			return out, true
		},
	}
}

// MissingAgents flags registered agents with no tile in the snapshot at
// all. Distinct from staleness: a stale lane still reports, a missing
// one vanished from the board.
func MissingAgents(reg *registry.Registry) Rule {
	if reg == nil {
		reg = registry.New(nil)
	}
	return Rule{
		Type: alert.EventAgentMissing,
		Check: func(snap model.BoardSnapshot, now time.Time) ([]Finding, bool) {
			if !snap.Available.Agents {
				return nil, false
			}
			var out []Finding
			for _, gid := range reg.Missing(snap.Agents) {
				detail := "registered agent absent from the board"
				if p := reg.Lookup(gid); p != nil && p.Name != "" {
					detail = fmt.Sprintf("%s (%s) registered but absent from the board", p.Name, p.Lane)
				}
				out = append(out, Finding{
					Subject:  gid,
					Detail:   detail,
					Severity: "warning",
				})
			}
			return out, true
		},
	}
}

// StaleFeed flags the board when its snapshot is older than the
// threshold. This is the rule that fires when the feed stops delivering
// entirely, so callers must keep observing the last snapshot on a tick.
func StaleFeed(after time.Duration) Rule {
	return Rule{
		Type: alert.EventFeedStale,
		Check: func(snap model.BoardSnapshot, now time.Time) ([]Finding, bool) {
			if snap.FetchedAt.IsZero() {
				return nil, false
			}
			age := now.Sub(snap.FetchedAt)
			if age <= after {
				return nil, true
			}
			return []Finding{{
				Subject:  "feed",
				Detail:   fmt.Sprintf("last snapshot %s old, threshold %s", age.Round(time.Second), after),
				Severity: "warning",
			}}, true
		},
	}
}

// FailingInvariants flags every governance invariant in FAILING state.
func FailingInvariants() Rule {
	return Rule{
		Type: alert.EventInvariantFailing,
		Check: func(snap model.BoardSnapshot, now time.Time) ([]Finding, bool) {
			if !snap.Available.Rail {
				return nil, false
			}
			var out []Finding
			for _, inv := range snap.Rail.Invariants {
				if inv.State != model.InvFailing {
					continue
				}
				detail := inv.Detail
				if detail == "" {
					detail = inv.Name
				}
				out = append(out, Finding{
					Subject:  inv.ID,
					Detail:   detail,
					Severity: "critical",
				})
			}
			return out, true
		},
	}
}

// EngagedKillSwitch flags an engaged kill switch until it leaves the
// ENGAGED phase.
func EngagedKillSwitch() Rule {
	return Rule{
		Type: alert.EventKillSwitchEngaged,
		Check: func(snap model.BoardSnapshot, now time.Time) ([]Finding, bool) {
			if !snap.Available.KillSwitch {
				return nil, false
			}
			if snap.KillSwitch.Phase != model.SwitchEngaged {
				return nil, true
			}
			scope := string(snap.KillSwitch.Scope)
			if scope == "" {
				scope = string(model.ScopeShadow)
			}
			return []Finding{{
				Subject:  scope,
				Detail:   "kill switch ENGAGED, scope " + scope,
				Severity: "critical",
			}}, true
		},
	}
}

// Package registry tracks the agents the console expects to see. Tiles
// for unregistered GIDs render with an UNREGISTERED badge and the
// watchdog treats a registered agent's missing heartbeat as staleness.
package registry

import (
	"sort"
	"time"

	"github.com/ppiankov/chainboard/internal/model"
)

// DefaultHeartbeat is the expected heartbeat interval when a profile
// does not set one.
const DefaultHeartbeat = 30 * time.Second

// AgentProfile declares what the console knows about one agent.
type AgentProfile struct {
	Lane             string `yaml:"lane" json:"lane"`
	Name             string `yaml:"name" json:"name"`
	HeartbeatSeconds int    `yaml:"heartbeat_seconds" json:"heartbeat_seconds"`
}

// Registry maps agent GIDs to their profiles.
type Registry struct {
	agents map[string]*AgentProfile
}

// New creates a Registry from a config agents map.
func New(agents map[string]*AgentProfile) *Registry {
	if agents == nil {
		agents = make(map[string]*AgentProfile)
	}
	return &Registry{agents: agents}
}

// Lookup returns the profile for the given GID, or nil if not found.
func (r *Registry) Lookup(gid string) *AgentProfile {
	return r.agents[gid]
}

// IsRegistered returns true if the GID exists in the registry.
func (r *Registry) IsRegistered(gid string) bool {
	_, ok := r.agents[gid]
	return ok
}

// Len returns how many agents are registered.
func (r *Registry) Len() int { return len(r.agents) }

// ExpectedHeartbeat returns the heartbeat interval for a GID, falling
// back to DefaultHeartbeat for unknown agents or unset profiles.
func (r *Registry) ExpectedHeartbeat(gid string) time.Duration {
	p := r.agents[gid]
	if p == nil || p.HeartbeatSeconds <= 0 {
		return DefaultHeartbeat
	}
	return time.Duration(p.HeartbeatSeconds) * time.Second
}

// Unregistered returns the GIDs in the tiles that the registry does not
// know, in tile order.
func (r *Registry) Unregistered(tiles []model.AgentTile) []string {
	var out []string
	for _, t := range tiles {
		if !r.IsRegistered(t.GID) {
			out = append(out, t.GID)
		}
	}
	return out
}

// Missing returns registered GIDs that have no tile in the snapshot:
// agents the board should show but does not.
func (r *Registry) Missing(tiles []model.AgentTile) []string {
	seen := make(map[string]bool, len(tiles))
	for _, t := range tiles {
		seen[t.GID] = true
	}
	var out []string
	for gid := range r.agents {
		if !seen[gid] {
			out = append(out, gid)
		}
	}
	sort.Strings(out)
	return out
}

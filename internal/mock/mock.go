// Package mock provides a deterministic board fixture: no backend, no
// network, stable IDs, and a scenario that advances one step at a time
// so the console can demo live updates. The kill-switch section is
// injectable so the local controller's state shows up on the board.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/chainboard/internal/model"
)

// DefaultInterval is the scenario step period for the Snapshots stream.
const DefaultInterval = 2 * time.Second

// roster is the demo lane roster, GID order fixed.
var roster = []struct {
	gid  string
	lane string
	name string
}{
	{"GID-00", "TEAL", "BENSON"},
	{"GID-01", "BLUE", "CODY"},
	{"GID-05", "WHITE", "PAX"},
	{"GID-06", "DARK RED", "SAM"},
	{"GID-07", "ORANGE", "DAN"},
	{"GID-08", "PURPLE", "ALEX"},
}

// Options seed a Provider. Zero values take defaults.
type Options struct {
	Base     time.Time     // scenario epoch, default now
	Interval time.Duration // Snapshots step period
}

// Provider generates board snapshots from a scripted scenario.
type Provider struct {
	interval time.Duration

	mu         sync.Mutex
	base       time.Time
	step       int
	killSwitch model.KillSwitchState
}

// NewProvider creates a provider at scenario step zero.
func NewProvider(opts Options) *Provider {
	if opts.Base.IsZero() {
		opts.Base = time.Now().UTC()
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Provider{
		interval:   opts.Interval,
		base:       opts.Base,
		killSwitch: model.KillSwitchState{Phase: model.SwitchDisarmed, Auth: model.AuthArmOnly},
	}
}

// Advance moves the scenario one step forward.
func (p *Provider) Advance() {
	p.mu.Lock()
	p.step++
	p.mu.Unlock()
}

// SetKillSwitch overlays the displayed kill-switch section, so a local
// controller's transitions are reflected on the mock board.
func (p *Provider) SetKillSwitch(ks model.KillSwitchState) {
	p.mu.Lock()
	p.killSwitch = ks
	p.mu.Unlock()
}

// Board renders the snapshot for the current step.
func (p *Provider) Board() model.BoardSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.base.Add(time.Duration(p.step) * 2 * time.Second)
	engaged := p.killSwitch.Phase == model.SwitchEngaged

	snap := model.BoardSnapshot{
		FetchedAt:  now,
		Agents:     p.agentsLocked(now, engaged),
		Rail:       p.railLocked(engaged),
		KillSwitch: p.killSwitch,
		Ledger:     p.ledgerLocked(now),
		Available:  model.SectionFlags{Agents: true, Decisions: true, Rail: true, KillSwitch: true, Ledger: true},
	}
	snap.PDOs, snap.BERs = p.decisionsLocked()
	model.SortTiles(snap.Agents)
	return snap
}

// Snapshots steps the scenario on a ticker and delivers each board.
func (p *Provider) Snapshots(ctx context.Context) <-chan model.BoardSnapshot {
	out := make(chan model.BoardSnapshot, 1)
	go func() {
		defer close(out)

		send := func() {
			select {
			case out <- p.Board():
			case <-ctx.Done():
			}
		}

		send()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Advance()
				send()
			}
		}
	}()
	return out
}

func (p *Provider) agentsLocked(now time.Time, engaged bool) []model.AgentTile {
	tiles := make([]model.AgentTile, 0, len(roster))
	for i, m := range roster {
		tile := model.AgentTile{
			GID:            m.gid,
			Lane:           m.lane,
			Name:           m.name,
			Health:         model.Healthy,
			ExecState:      model.ExecIdle,
			ActiveTasks:    (p.step + i) % 3,
			CompletedTasks: p.step + i*2,
			LastHeartbeat:  now,
		}
		if m.gid == "GID-00" || m.gid == "GID-01" {
			tile.ExecState = model.ExecExecuting
		}
		// PAX drops a few heartbeats every fifth cycle.
		if m.gid == "GID-05" && p.step%5 >= 3 {
			tile.Health = model.Degraded
			tile.LastHeartbeat = now.Add(-45 * time.Second)
		}
		if engaged {
			tile.ExecState = model.ExecHalted
		}
		tiles = append(tiles, tile)
	}
	return tiles
}

func (p *Provider) decisionsLocked() ([]model.PDOCard, []model.BERCard) {
	var pdos []model.PDOCard
	var bers []model.BERCard

	// Three payments, staggered two steps apart, each advancing one WRAP
	// stage per step. The third rejects at validation.
	for i := 0; i < 3; i++ {
		born := i * 2
		if p.step < born {
			continue
		}
		progress := p.step - born
		if progress > len(model.WRAPStages) {
			progress = len(model.WRAPStages)
		}
		state := model.SettlementPending
		if i == 2 && progress >= 2 {
			progress = 2
			state = model.SettlementRejected
		} else if progress == len(model.WRAPStages) {
			state = model.SettlementSettled
		}

		at := p.base.Add(time.Duration(born) * 2 * time.Second)
		pdo := model.PDOCard{
			PDOID:       fmt.Sprintf("PDO-%04d", i+1),
			PACID:       "PAC-BENSON-P21-C",
			AgentGID:    roster[(i+1)%len(roster)].gid,
			AmountMinor: int64(125000 + i*50375),
			Currency:    "USD",
			State:       state,
			WRAP:        wrapProgress(progress, at),
			At:          at,
		}
		pdos = append(pdos, pdo)

		if state == model.SettlementSettled {
			bers = append(bers, model.BERCard{
				BERID:        fmt.Sprintf("BER-%04d", i+1),
				PACID:        pdo.PACID,
				Verdict:      model.VerdictPass,
				AnomalyCount: 0,
				EvidenceHash: fmt.Sprintf("sha256:%064x", 7919*(i+1)),
				At:           at.Add(8 * time.Second),
			})
		}
		if state == model.SettlementRejected {
			bers = append(bers, model.BERCard{
				BERID:        fmt.Sprintf("BER-%04d", i+1),
				PACID:        pdo.PACID,
				Verdict:      model.VerdictFail,
				AnomalyCount: 3,
				EvidenceHash: fmt.Sprintf("sha256:%064x", 104729*(i+1)),
				At:           at.Add(4 * time.Second),
			})
		}
	}
	return pdos, bers
}

func (p *Provider) railLocked(engaged bool) model.GovernanceRail {
	invs := []model.InvariantStatus{
		{ID: "S-INV", Name: "Security", State: model.InvPassing},
		{ID: "M-INV", Name: "Mutation", State: model.InvWarning, Detail: "2 mandates near expiry"},
		{ID: "X-INV", Name: "Execution", State: model.InvPassing},
		{ID: "T-INV", Name: "Trust", State: model.InvPassing},
		{ID: "A-INV", Name: "Audit", State: model.InvPassing},
		{ID: "F-INV", Name: "Financial", State: model.InvPassing},
		{ID: "C-INV", Name: "Compliance", State: model.InvPassing},
	}
	if engaged {
		invs[2].State = model.InvFailing
		invs[2].Detail = "execution halted by operator"
	}
	return model.GovernanceRail{Invariants: invs, Overall: model.RailOverall(invs)}
}

func (p *Provider) ledgerLocked(now time.Time) []model.LedgerEntryView {
	categories := []struct {
		category string
		summary  string
	}{
		{"pdo_created", "PDO-0001 created"},
		{"wrap_advanced", "PDO-0001 validated"},
		{"pdo_created", "PDO-0002 created"},
		{"wrap_advanced", "PDO-0001 executed"},
		{"pdo_settled", "PDO-0001 settled"},
		{"pdo_created", "PDO-0003 created"},
		{"wrap_advanced", "PDO-0002 validated"},
		{"pdo_rejected", "PDO-0003 rejected at validation"},
	}

	count := 3 + p.step
	if count > len(categories) {
		count = len(categories)
	}
	entries := make([]model.LedgerEntryView, 0, count)
	for seq := 1; seq <= count; seq++ {
		c := categories[seq-1]
		entries = append(entries, model.LedgerEntryView{
			Sequence:  uint64(seq),
			EntryHash: fmt.Sprintf("sha256:%064x", uint64(seq)*2654435761),
			PrevHash:  fmt.Sprintf("sha256:%064x", uint64(seq-1)*2654435761),
			Category:  c.category,
			Summary:   c.summary,
			At:        now.Add(time.Duration(seq-count) * 15 * time.Second),
		})
	}
	return entries
}

// wrapProgress marks the first done stages of the WRAP pipeline complete.
func wrapProgress(done int, start time.Time) model.WRAPProgress {
	stages := make([]model.StageMark, len(model.WRAPStages))
	for i, name := range model.WRAPStages {
		mark := model.StageMark{Stage: name, Done: i < done}
		if mark.Done {
			at := start.Add(time.Duration(i) * 30 * time.Second)
			mark.At = &at
		}
		stages[i] = mark
	}
	return model.WRAPProgress{Stages: stages}
}

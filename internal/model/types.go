// Package model holds the read-only view types the operator console
// renders: agent lane tiles, the PDO/BER decision stream, the governance
// rail, kill-switch state and server ledger entries. The console displays
// these verbatim; it never computes or verifies them.
package model

import (
	"sort"
	"time"
)

// Health classifies an agent lane's liveness.
type Health string

const (
	Healthy  Health = "HEALTHY"
	Degraded Health = "DEGRADED"
	Critical Health = "CRITICAL"
	Offline  Health = "OFFLINE"
)

// HealthRank maps health to a comparable integer, worst highest.
var HealthRank = map[Health]int{
	Healthy:  0,
	Degraded: 1,
	Critical: 2,
	Offline:  3,
}

// ExecState is what an agent lane is currently doing.
type ExecState string

const (
	ExecIdle      ExecState = "IDLE"
	ExecExecuting ExecState = "EXECUTING"
	ExecBlocked   ExecState = "BLOCKED"
	ExecHalted    ExecState = "HALTED"
)

// AgentTile is one lane in the agent grid.
type AgentTile struct {
	GID            string    `json:"gid"`
	Lane           string    `json:"lane"`
	Name           string    `json:"name"`
	Health         Health    `json:"health"`
	ExecState      ExecState `json:"execution_state"`
	ActiveTasks    int       `json:"active_tasks"`
	CompletedTasks int       `json:"completed_tasks"`
	LastHeartbeat  time.Time `json:"last_heartbeat"`
}

// SettlementState of a payment/disbursement outcome.
type SettlementState string

const (
	SettlementPending  SettlementState = "PENDING"
	SettlementSettled  SettlementState = "SETTLED"
	SettlementRejected SettlementState = "REJECTED"
	SettlementFrozen   SettlementState = "FROZEN"
)

// WRAP pipeline stages, in order.
const (
	StageReceived  = "WRAP_RECEIVED"
	StageValidated = "WRAP_VALIDATED"
	StageExecuted  = "WRAP_EXECUTED"
	StageSettled   = "WRAP_SETTLED"
)

// WRAPStages lists the pipeline stages in display order.
var WRAPStages = []string{StageReceived, StageValidated, StageExecuted, StageSettled}

// StageMark is one completed-or-not step of the WRAP pipeline.
type StageMark struct {
	Stage string     `json:"stage"`
	Done  bool       `json:"done"`
	At    *time.Time `json:"at,omitempty"`
}

// WRAPProgress is the staged progress of one payment through the pipeline.
type WRAPProgress struct {
	Stages []StageMark `json:"stages"`
}

// DoneCount returns how many stages are complete.
func (w WRAPProgress) DoneCount() int {
	n := 0
	for _, s := range w.Stages {
		if s.Done {
			n++
		}
	}
	return n
}

// PDOCard is one payment/disbursement outcome in the decision stream.
type PDOCard struct {
	PDOID       string          `json:"pdo_id"`
	PACID       string          `json:"pac_id"`
	AgentGID    string          `json:"agent_gid"`
	AmountMinor int64           `json:"amount_minor"`
	Currency    string          `json:"currency"`
	State       SettlementState `json:"settlement_state"`
	WRAP        WRAPProgress    `json:"wrap"`
	At          time.Time       `json:"at"`
}

// Verdict of a bounded execution report.
type Verdict string

const (
	VerdictPass         Verdict = "PASS"
	VerdictFail         Verdict = "FAIL"
	VerdictInconclusive Verdict = "INCONCLUSIVE"
)

// BERCard is one bounded execution report in the decision stream.
type BERCard struct {
	BERID        string    `json:"ber_id"`
	PACID        string    `json:"pac_id"`
	Verdict      Verdict   `json:"verdict"`
	AnomalyCount int       `json:"anomaly_count"`
	EvidenceHash string    `json:"evidence_hash"`
	At           time.Time `json:"at"`
}

// InvariantState of one governance invariant.
type InvariantState string

const (
	InvPassing InvariantState = "PASSING"
	InvWarning InvariantState = "WARNING"
	InvFailing InvariantState = "FAILING"
)

// InvariantStatus is one row of the governance rail.
// Known IDs: S-INV, M-INV, X-INV, T-INV, A-INV, F-INV, C-INV.
type InvariantStatus struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	State  InvariantState `json:"state"`
	Detail string         `json:"detail,omitempty"`
}

// GovernanceRail is the ordered invariant column with its worst state.
type GovernanceRail struct {
	Invariants []InvariantStatus `json:"invariants"`
	Overall    InvariantState    `json:"overall"`
}

// RailOverall returns the worst state among the invariants.
func RailOverall(invs []InvariantStatus) InvariantState {
	overall := InvPassing
	for _, inv := range invs {
		switch inv.State {
		case InvFailing:
			return InvFailing
		case InvWarning:
			overall = InvWarning
		}
	}
	return overall
}

// SwitchPhase of the kill switch.
type SwitchPhase string

const (
	SwitchDisarmed SwitchPhase = "DISARMED"
	SwitchArmed    SwitchPhase = "ARMED"
	SwitchEngaged  SwitchPhase = "ENGAGED"
	SwitchCooldown SwitchPhase = "COOLDOWN"
)

// Scope selects what an engagement halts.
type Scope string

const (
	ScopeShadow  Scope = "SHADOW"
	ScopeTrading Scope = "TRADING"
	ScopeNetwork Scope = "NETWORK"
	ScopeTotal   Scope = "TOTAL"
)

// ParseScope maps a scope name to a Scope, defaulting to SHADOW for
// anything unknown (the least destructive interpretation).
func ParseScope(s string) Scope {
	switch Scope(s) {
	case ScopeShadow, ScopeTrading, ScopeNetwork, ScopeTotal:
		return Scope(s)
	default:
		return ScopeShadow
	}
}

// AuthLevel of the current operator toward the kill switch.
type AuthLevel string

const (
	AuthUnauthorized AuthLevel = "UNAUTHORIZED"
	AuthArmOnly      AuthLevel = "ARM_ONLY"
	AuthFullAccess   AuthLevel = "FULL_ACCESS"
)

// AuthRank orders authorization levels. Unknown levels rank below
// UNAUTHORIZED so a garbled level never grants anything.
var AuthRank = map[AuthLevel]int{
	AuthUnauthorized: 0,
	AuthArmOnly:      1,
	AuthFullAccess:   2,
}

// Allows reports whether the level grants at least the required level.
func (l AuthLevel) Allows(required AuthLevel) bool {
	lr, ok := AuthRank[l]
	if !ok {
		return false
	}
	return lr >= AuthRank[required]
}

// ParseAuthLevel maps a level name to an AuthLevel. Fail closed:
// unknown names parse as UNAUTHORIZED.
func ParseAuthLevel(s string) AuthLevel {
	switch AuthLevel(s) {
	case AuthArmOnly, AuthFullAccess:
		return AuthLevel(s)
	default:
		return AuthUnauthorized
	}
}

// KillSwitchState is the displayed state of the execution kill switch.
type KillSwitchState struct {
	Phase               SwitchPhase `json:"phase"`
	Scope               Scope       `json:"scope,omitempty"`
	Auth                AuthLevel   `json:"auth_level"`
	ArmedAt             *time.Time  `json:"armed_at,omitempty"`
	EngagedAt           *time.Time  `json:"engaged_at,omitempty"`
	CooldownRemainingMS int64       `json:"cooldown_remaining_ms,omitempty"`
}

// LedgerEntryView is one displayed entry of the server's tamper-evident
// ledger. Hashes are precomputed server-side and shown as-is.
type LedgerEntryView struct {
	Sequence  uint64    `json:"sequence_number"`
	EntryHash string    `json:"entry_hash"`
	PrevHash  string    `json:"previous_hash"`
	Category  string    `json:"category"`
	Summary   string    `json:"summary"`
	At        time.Time `json:"at"`
}

// SectionFlags records which board sections fetched successfully. A failed
// section renders as UNAVAILABLE, never as stale data.
type SectionFlags struct {
	Agents     bool `json:"agents"`
	Decisions  bool `json:"decisions"`
	Rail       bool `json:"rail"`
	KillSwitch bool `json:"kill_switch"`
	Ledger     bool `json:"ledger"`
}

// AllOK reports whether every section is available.
func (f SectionFlags) AllOK() bool {
	return f.Agents && f.Decisions && f.Rail && f.KillSwitch && f.Ledger
}

// BoardSnapshot is the composite state the console renders.
type BoardSnapshot struct {
	FetchedAt  time.Time         `json:"fetched_at"`
	Agents     []AgentTile       `json:"agents"`
	PDOs       []PDOCard         `json:"pdos"`
	BERs       []BERCard         `json:"bers"`
	Rail       GovernanceRail    `json:"rail"`
	KillSwitch KillSwitchState   `json:"kill_switch"`
	Ledger     []LedgerEntryView `json:"ledger"`
	Available  SectionFlags      `json:"available"`
}

// SortTiles orders lane tiles by lane then GID for stable rendering.
func SortTiles(tiles []AgentTile) {
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].Lane != tiles[j].Lane {
			return tiles[i].Lane < tiles[j].Lane
		}
		return tiles[i].GID < tiles[j].GID
	})
}

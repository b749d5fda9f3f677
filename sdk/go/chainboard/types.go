package chainboard

import (
	"github.com/ppiankov/chainboard/internal/client"
	"github.com/ppiankov/chainboard/internal/model"
)

// View types are aliased straight from the console's display model; the
// SDK adds no interpretation of its own.
type (
	Board       = model.BoardSnapshot
	Agent       = model.AgentTile
	PDO         = model.PDOCard
	BER         = model.BERCard
	Rail        = model.GovernanceRail
	Invariant   = model.InvariantStatus
	KillSwitch  = model.KillSwitchState
	LedgerEntry = model.LedgerEntryView
)

// Health classifies an agent lane's liveness.
type Health = model.Health

const (
	Healthy  = model.Healthy
	Degraded = model.Degraded
	Critical = model.Critical
	Offline  = model.Offline
)

// InvariantState of one governance invariant.
type InvariantState = model.InvariantState

const (
	InvPassing = model.InvPassing
	InvWarning = model.InvWarning
	InvFailing = model.InvFailing
)

// SwitchPhase of the execution kill switch.
type SwitchPhase = model.SwitchPhase

const (
	SwitchDisarmed = model.SwitchDisarmed
	SwitchArmed    = model.SwitchArmed
	SwitchEngaged  = model.SwitchEngaged
	SwitchCooldown = model.SwitchCooldown
)

// ErrReadOnly is returned by the transport guard for any non-GET
// request.
var ErrReadOnly = client.ErrReadOnly

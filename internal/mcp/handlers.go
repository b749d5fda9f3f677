package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/chainboard/internal/model"
	"github.com/ppiankov/chainboard/internal/runbook"
)

// --- Input/Output types ---

// BoardInput is empty, the board tool takes no parameters.
type BoardInput struct{}

// BoardOutput carries the whole snapshot. Degraded is set when one or
// more sections failed to fetch; check the board's availability flags.
type BoardOutput struct {
	Board    model.BoardSnapshot `json:"board"`
	Degraded bool                `json:"degraded,omitempty"`
}

// AgentInput selects one agent lane.
type AgentInput struct {
	GID string `json:"gid" jsonschema:"agent GID, e.g. GID-03"`
}

// AgentOutput is the selected lane tile.
type AgentOutput struct {
	Agent model.AgentTile `json:"agent"`
}

// InvariantInput selects one governance invariant.
type InvariantInput struct {
	ID string `json:"id" jsonschema:"invariant ID, short or full form (x or X-INV)"`
}

// InvariantStep is one read-only check of the invariant's runbook.
type InvariantStep struct {
	Check   string `json:"check"`
	Purpose string `json:"purpose,omitempty"`
}

// InvariantOutput pairs the invariant's live state with its runbook.
type InvariantOutput struct {
	Invariant model.InvariantStatus `json:"invariant"`
	Runbook   string                `json:"runbook"`
	Source    string                `json:"runbook_source"`
	Steps     []InvariantStep       `json:"steps"`
}

// LedgerTailInput bounds and filters the ledger fetch.
type LedgerTailInput struct {
	Limit    int    `json:"limit,omitempty" jsonschema:"max entries to fetch, default 20"`
	Category string `json:"category,omitempty" jsonschema:"keep only entries of this category, applied to the fetched window"`
}

// LedgerTailOutput lists the matching entries, oldest first.
type LedgerTailOutput struct {
	Entries []model.LedgerEntryView `json:"entries"`
}

// --- Handlers ---

func (s *Server) handleBoard(ctx context.Context, req *mcpsdk.CallToolRequest, input BoardInput) (*mcpsdk.CallToolResult, BoardOutput, error) {
	snap, err := s.api.FetchBoard(ctx)
	if err != nil {
		s.logger.Warn("board fetch degraded", zap.Error(err))
	}
	return nil, BoardOutput{Board: snap, Degraded: err != nil}, nil
}

func (s *Server) handleAgent(ctx context.Context, req *mcpsdk.CallToolRequest, input AgentInput) (*mcpsdk.CallToolResult, AgentOutput, error) {
	tiles, err := s.api.Agents(ctx)
	if err != nil {
		return nil, AgentOutput{}, err
	}

	want := strings.ToUpper(strings.TrimSpace(input.GID))
	known := make([]string, 0, len(tiles))
	for _, tile := range tiles {
		if tile.GID == want {
			return nil, AgentOutput{Agent: tile}, nil
		}
		known = append(known, tile.GID)
	}
	return nil, AgentOutput{}, fmt.Errorf("unknown agent %q, have %s", input.GID, strings.Join(known, ", "))
}

func (s *Server) handleInvariant(ctx context.Context, req *mcpsdk.CallToolRequest, input InvariantInput) (*mcpsdk.CallToolResult, InvariantOutput, error) {
	id := runbook.Normalize(input.ID)
	if id == "" {
		return nil, InvariantOutput{}, fmt.Errorf("missing invariant id")
	}

	rail, err := s.api.Rail(ctx)
	if err != nil {
		return nil, InvariantOutput{}, err
	}

	var out InvariantOutput
	found := false
	for _, inv := range rail.Invariants {
		if inv.ID == id {
			out.Invariant = inv
			found = true
			break
		}
	}
	if !found {
		return nil, InvariantOutput{}, fmt.Errorf("invariant %s not on the rail", id)
	}

	rb := runbook.Lookup(s.runbookDir, id)
	out.Runbook = rb.Name
	out.Source = rb.Source
	for _, step := range rb.Steps {
		out.Steps = append(out.Steps, InvariantStep{Check: step.Check, Purpose: step.Purpose})
	}
	return nil, out, nil
}

func (s *Server) handleLedgerTail(ctx context.Context, req *mcpsdk.CallToolRequest, input LedgerTailInput) (*mcpsdk.CallToolResult, LedgerTailOutput, error) {
	entries, err := s.api.Ledger(ctx, input.Limit)
	if err != nil {
		return nil, LedgerTailOutput{}, err
	}

	if cat := strings.TrimSpace(input.Category); cat != "" {
		kept := make([]model.LedgerEntryView, 0, len(entries))
		for _, e := range entries {
			if e.Category == cat {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	return nil, LedgerTailOutput{Entries: entries}, nil
}

package ledger

import (
	"path/filepath"
	"testing"
	"time"
)

// writeTestLedger creates a temp ledger with known entries for testing.
func writeTestLedger(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "operator.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	base := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Timestamp: base.Format(TimestampFormat), Category: CategoryConsoleStarted, Actor: "operator", Summary: "console started"},
		{Timestamp: base.Add(2 * time.Second).Format(TimestampFormat), Category: CategoryScramArmed, Actor: "operator", Tier: "LAW", Summary: "armed for TRADING"},
		{Timestamp: base.Add(4 * time.Second).Format(TimestampFormat), Category: CategoryScramCancelled, Actor: "operator", Tier: "LAW", Summary: "arm cancelled"},
		{Timestamp: base.Add(6 * time.Second).Format(TimestampFormat), Category: CategoryScramArmed, Actor: "ops-2", Tier: "LAW", Summary: "armed for TOTAL"},
		{Timestamp: base.Add(8 * time.Second).Format(TimestampFormat), Category: CategoryOverrideConsumed, Actor: "ops-2", Summary: "break-glass override consumed"},
		{Timestamp: base.Add(10 * time.Second).Format(TimestampFormat), Category: CategoryScramEngaged, Actor: "ops-2", Tier: "LAW", Summary: "ENGAGED for TOTAL"},
	}

	for _, e := range entries {
		if err := log.Append(e); err != nil {
			t.Fatal(err)
		}
	}

	return path
}

func TestReplayFiltersByCategory(t *testing.T) {
	path := writeTestLedger(t)

	result, err := Replay(path, Filter{Category: CategoryScramArmed})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Entries) != 2 {
		t.Errorf("expected 2 armed entries, got %d", len(result.Entries))
	}
	for _, e := range result.Entries {
		if e.Category != CategoryScramArmed {
			t.Errorf("unexpected category: %s", e.Category)
		}
	}
}

func TestReplayFiltersByActor(t *testing.T) {
	path := writeTestLedger(t)

	result, err := Replay(path, Filter{Actor: "ops-2"})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Entries) != 3 {
		t.Errorf("expected 3 entries for ops-2, got %d", len(result.Entries))
	}
	for _, e := range result.Entries {
		if e.Actor != "ops-2" {
			t.Errorf("unexpected actor: %s", e.Actor)
		}
	}
}

func TestReplaySinceBound(t *testing.T) {
	path := writeTestLedger(t)

	since := time.Date(2026, 1, 15, 14, 0, 5, 0, time.UTC)
	result, err := Replay(path, Filter{Since: since})
	if err != nil {
		t.Fatal(err)
	}

	// Entries at 14:00:06, 14:00:08, 14:00:10
	if len(result.Entries) != 3 {
		t.Errorf("expected 3 entries after since filter, got %d", len(result.Entries))
	}
}

func TestReplayLimitKeepsTail(t *testing.T) {
	path := writeTestLedger(t)

	result, err := Replay(path, Filter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries with limit, got %d", len(result.Entries))
	}
	// Tail means the newest entries
	if result.Entries[0].Category != CategoryOverrideConsumed {
		t.Errorf("expected override entry first in tail, got %s", result.Entries[0].Category)
	}
	if result.Entries[1].Category != CategoryScramEngaged {
		t.Errorf("expected engaged entry last in tail, got %s", result.Entries[1].Category)
	}
}

func TestReplaySummaryCounts(t *testing.T) {
	path := writeTestLedger(t)

	result, err := Replay(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}

	s := result.Summary
	if s.Total != 6 {
		t.Errorf("expected total 6, got %d", s.Total)
	}
	if s.ArmCount != 2 {
		t.Errorf("expected 2 arms, got %d", s.ArmCount)
	}
	if s.EngageCount != 1 {
		t.Errorf("expected 1 engage, got %d", s.EngageCount)
	}
	if s.OverrideCount != 1 {
		t.Errorf("expected 1 override, got %d", s.OverrideCount)
	}
	if s.FirstTimestamp != "2026-01-15T14:00:00.000Z" {
		t.Errorf("unexpected first timestamp: %s", s.FirstTimestamp)
	}
	if s.LastTimestamp != "2026-01-15T14:00:10.000Z" {
		t.Errorf("unexpected last timestamp: %s", s.LastTimestamp)
	}
}

func TestReplayMissingFileErrors(t *testing.T) {
	_, err := Replay("/nonexistent/operator.jsonl", Filter{})
	if err == nil {
		t.Error("expected error for missing ledger")
	}
}

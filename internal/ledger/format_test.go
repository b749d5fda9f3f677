package ledger

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatTimelineHeaderAndSummary(t *testing.T) {
	path := writeTestLedger(t)
	result, err := Replay(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	if !strings.Contains(out, "Operator ledger") {
		t.Error("expected header line")
	}
	if !strings.Contains(out, "Summary:") {
		t.Error("expected summary line")
	}
	if !strings.Contains(out, "6 entries") {
		t.Errorf("expected '6 entries' in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "2 arm") {
		t.Errorf("expected '2 arm' in summary, got:\n%s", out)
	}
	if !strings.Contains(out, "1 engage") {
		t.Errorf("expected '1 engage' in summary, got:\n%s", out)
	}
}

func TestFormatTimelineEntryColumns(t *testing.T) {
	path := writeTestLedger(t)
	result, err := Replay(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	if !strings.Contains(out, "#1") {
		t.Error("expected sequence column")
	}
	if !strings.Contains(out, "SCRAM_ARMED") {
		t.Error("expected SCRAM_ARMED category")
	}
	if !strings.Contains(out, "SCRAM_ENGAGED") {
		t.Error("expected SCRAM_ENGAGED category")
	}
	if !strings.Contains(out, "ops-2") {
		t.Error("expected actor column")
	}
	if !strings.Contains(out, "[override]") {
		t.Error("expected [override] tag")
	}
}

func TestFormatJSONValid(t *testing.T) {
	path := writeTestLedger(t)
	result, err := Replay(path, Filter{Category: CategoryScramArmed})
	if err != nil {
		t.Fatal(err)
	}

	jsonStr, err := FormatJSON(result)
	if err != nil {
		t.Fatal(err)
	}

	// Should unmarshal back to a Result
	var parsed Result
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		t.Fatalf("JSON output not valid: %v", err)
	}
	if len(parsed.Entries) != 2 {
		t.Errorf("expected 2 entries in JSON, got %d", len(parsed.Entries))
	}
	if parsed.Summary.Total != 2 {
		t.Errorf("expected total 2 in JSON summary, got %d", parsed.Summary.Total)
	}
}

func TestFormatTimelineEmptyEntries(t *testing.T) {
	out := FormatTimeline(&Result{})
	if !strings.Contains(out, "No ledger entries found") {
		t.Errorf("expected empty message, got:\n%s", out)
	}
}

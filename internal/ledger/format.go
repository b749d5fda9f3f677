package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a replay Result as a human-readable text timeline.
func FormatTimeline(result *Result) string {
	if len(result.Entries) == 0 {
		return "No ledger entries found.\n"
	}

	var b strings.Builder

	// Header
	first := result.Summary.FirstTimestamp
	last := result.Summary.LastTimestamp
	b.WriteString(fmt.Sprintf("Operator ledger | %s–%s UTC\n", formatDateRange(first), formatTimeOnly(last)))
	b.WriteString(separator + "\n")

	// Entries
	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		seq := fmt.Sprintf("#%d", e.Seq)
		category := strings.ToUpper(e.Category)
		actor := truncate(e.Actor, 12)
		summary := truncate(e.Summary, 40)

		tag := ""
		if e.Category == CategoryOverrideConsumed {
			tag = "  [override]"
		}

		b.WriteString(fmt.Sprintf("%-10s %-6s %-18s %-13s %-40s%s\n",
			ts, seq, category, actor, summary, tag))
	}

	// Footer
	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a replay Result as indented JSON.
func FormatJSON(result *Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s Summary) string {
	parts := []string{fmt.Sprintf("%d entries", s.Total)}
	if s.ArmCount > 0 {
		parts = append(parts, fmt.Sprintf("%d arm", s.ArmCount))
	}
	if s.EngageCount > 0 {
		parts = append(parts, fmt.Sprintf("%d engage", s.EngageCount))
	}
	if s.OverrideCount > 0 {
		parts = append(parts, fmt.Sprintf("%d override", s.OverrideCount))
	}
	if s.LockoutCount > 0 {
		parts = append(parts, fmt.Sprintf("%d lockout", s.LockoutCount))
	}

	return fmt.Sprintf("Summary: %s\n", strings.Join(parts, ", "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

package ledger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TimestampFormat is the layout used in ledger entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Filter holds filtering criteria for ledger replay.
type Filter struct {
	Category string    // empty = all categories
	Actor    string    // empty = all actors
	Since    time.Time // zero value = no lower bound
	Limit    int       // keep only the last N matching entries; 0 = all
}

// Summary holds category counts and metadata for a replayed ledger.
type Summary struct {
	Total          int    `json:"total"`
	ArmCount       int    `json:"arm_count"`
	EngageCount    int    `json:"engage_count"`
	OverrideCount  int    `json:"override_count"`
	LockoutCount   int    `json:"lockout_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
}

// Result holds filtered entries and summary for a ledger replay.
type Result struct {
	Entries []Entry `json:"entries"`
	Summary Summary `json:"summary"`
}

// Replay reads the ledger and returns entries matching the filter.
func Replay(path string, filter Filter) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	result := &Result{}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}

		if filter.Category != "" && entry.Category != filter.Category {
			continue
		}
		if filter.Actor != "" && entry.Actor != filter.Actor {
			continue
		}
		if !filter.Since.IsZero() {
			ts, err := time.Parse(TimestampFormat, entry.Timestamp)
			if err != nil {
				continue // skip unparseable timestamps
			}
			if ts.Before(filter.Since) {
				continue
			}
		}

		result.Entries = append(result.Entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	if filter.Limit > 0 && len(result.Entries) > filter.Limit {
		result.Entries = result.Entries[len(result.Entries)-filter.Limit:]
	}

	for _, entry := range result.Entries {
		updateSummary(&result.Summary, entry)
	}

	return result, nil
}

func updateSummary(s *Summary, entry Entry) {
	s.Total++

	switch entry.Category {
	case CategoryScramArmed:
		s.ArmCount++
	case CategoryScramEngaged:
		s.EngageCount++
	case CategoryOverrideConsumed:
		s.OverrideCount++
	case CategoryLockout:
		s.LockoutCount++
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}

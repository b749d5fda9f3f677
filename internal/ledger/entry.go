package ledger

// Categories recorded in the operator ledger.
const (
	CategoryConsoleStarted   = "console_started"
	CategoryScramArmed       = "scram_armed"
	CategoryScramEngaged     = "scram_engaged"
	CategoryScramDisarmed    = "scram_disarmed"
	CategoryScramCancelled   = "scram_cancelled"
	CategoryOverrideConsumed = "override_consumed"
	CategoryLockout          = "lockout"
)

// Entry is one line in the hash-chained JSONL operator ledger.
// Seq is 1-based and contiguous; the chain hashes raw line bytes, so
// entries are tamper-evident regardless of field layout.
type Entry struct {
	Timestamp string         `json:"ts"`
	EventID   string         `json:"event_id"`
	Seq       int            `json:"seq"`
	Category  string         `json:"category"`
	Actor     string         `json:"actor"`
	Tier      string         `json:"tier,omitempty"`
	Summary   string         `json:"summary"`
	Details   map[string]any `json:"details,omitempty"`
	PrevHash  string         `json:"prev_hash"`
}

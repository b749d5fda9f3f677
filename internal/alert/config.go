package alert

// Event types the watchdog can raise.
const (
	EventInvariantFailing  = "invariant_failing"
	EventKillSwitchEngaged = "killswitch_engaged"
	EventAgentStale        = "agent_stale"
	EventAgentMissing      = "agent_missing"
	EventFeedStale         = "feed_stale"
)

// Config defines a webhook alert destination.
type Config struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // event types, or ["*"] for all
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Subject   string `json:"subject"` // invariant ID, agent GID, or kill-switch scope
	Detail    string `json:"detail"`
	Severity  string `json:"severity"` // "info", "warning", "critical"
}

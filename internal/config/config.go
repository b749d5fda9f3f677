package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/chainboard/internal/alert"
	"github.com/ppiankov/chainboard/internal/registry"
)

// APIConfig points the console at an operator console API server.
type APIConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// Timeout returns the per-request timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// FeedConfig tails a directory of JSONL board snapshot files.
type FeedConfig struct {
	Dir    string `yaml:"dir"`
	PollMS int    `yaml:"poll_ms"`
}

// PollInterval returns the fallback polling interval as a duration.
func (c FeedConfig) PollInterval() time.Duration {
	return time.Duration(c.PollMS) * time.Millisecond
}

// ScramConfig tunes the kill-switch controller.
type ScramConfig struct {
	ConfirmTimeoutMS     int    `yaml:"confirm_timeout_ms"`
	CooldownSeconds      int    `yaml:"cooldown_seconds"`
	MaxArmAttempts       int    `yaml:"max_arm_attempts"`
	LockoutWindowSeconds int    `yaml:"lockout_window_seconds"`
	OverrideDir          string `yaml:"override_dir"`
}

// ConfirmTimeout returns the engage confirmation window as a duration.
func (c ScramConfig) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutMS) * time.Millisecond
}

// Cooldown returns the post-engage cooldown as a duration.
func (c ScramConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// LockoutWindow returns the failed-attempt counting window as a duration.
func (c ScramConfig) LockoutWindow() time.Duration {
	return time.Duration(c.LockoutWindowSeconds) * time.Second
}

// StoreConfig locates the snapshot history database.
type StoreConfig struct {
	Path string `yaml:"path"`
	Keep int    `yaml:"keep"`
}

// LedgerConfig locates the operator ledger file.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls the console's file logger.
type LogConfig struct {
	File  string `yaml:"file"`
	Debug bool   `yaml:"debug"`
}

// ConsoleConfig tunes the TUI refresh loop.
type ConsoleConfig struct {
	RefreshMS int `yaml:"refresh_ms"`
}

// Refresh returns the board refresh interval as a duration.
func (c ConsoleConfig) Refresh() time.Duration {
	return time.Duration(c.RefreshMS) * time.Millisecond
}

// Config holds all chainboard settings.
type Config struct {
	API     APIConfig                         `yaml:"api"`
	Feed    FeedConfig                        `yaml:"feed"`
	Tiers   map[string]int                    `yaml:"tiers"` // per-tier dwell override, milliseconds
	Scram   ScramConfig                       `yaml:"scram"`
	Alerts  []alert.Config                    `yaml:"alerts"`
	Agents  map[string]*registry.AgentProfile `yaml:"agents"`
	Store   StoreConfig                       `yaml:"store"`
	Ledger  LedgerConfig                      `yaml:"ledger"`
	Log     LogConfig                         `yaml:"log"`
	Console ConsoleConfig                     `yaml:"console"`
}

// DwellOverrideMS returns the configured dwell override for a tier name in
// milliseconds, or 0 when the tier uses its built-in default.
func (c *Config) DwellOverrideMS(tierName string) time.Duration {
	if c == nil || c.Tiers == nil {
		return 0
	}
	ms, ok := c.Tiers[tierName]
	if !ok || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// DefaultDir returns the chainboard state directory (~/.chainboard).
// Falls back to the current directory when the home dir is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chainboard"
	}
	return filepath.Join(home, ".chainboard")
}

// LedgerFile resolves the operator ledger path, defaulting under DefaultDir.
func (c *Config) LedgerFile() string {
	if c != nil && c.Ledger.Path != "" {
		return c.Ledger.Path
	}
	return filepath.Join(DefaultDir(), "operator.jsonl")
}

// StoreFile resolves the history database path, defaulting under DefaultDir.
func (c *Config) StoreFile() string {
	if c != nil && c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(DefaultDir(), "history.db")
}

// OverrideStoreDir resolves the break-glass token store directory.
func (c *Config) OverrideStoreDir() string {
	if c != nil && c.Scram.OverrideDir != "" {
		return c.Scram.OverrideDir
	}
	return filepath.Join(DefaultDir(), "overrides")
}

// LogFile resolves the console log path, defaulting under DefaultDir.
func (c *Config) LogFile() string {
	if c != nil && c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(DefaultDir(), "console.log")
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "http://127.0.0.1:8600",
			TimeoutMS: 5000,
		},
		Feed: FeedConfig{
			PollMS: 2000,
		},
		Tiers: map[string]int{},
		Scram: ScramConfig{
			ConfirmTimeoutMS:     3000,
			CooldownSeconds:      60,
			MaxArmAttempts:       3,
			LockoutWindowSeconds: 300,
		},
		Agents: map[string]*registry.AgentProfile{
			"GID-00": {Lane: "TEAL", Name: "BENSON", HeartbeatSeconds: 30},
			"GID-01": {Lane: "BLUE", Name: "CODY", HeartbeatSeconds: 30},
			"GID-05": {Lane: "WHITE", Name: "PAX", HeartbeatSeconds: 30},
			"GID-06": {Lane: "DARK RED", Name: "SAM", HeartbeatSeconds: 30},
			"GID-07": {Lane: "ORANGE", Name: "DAN", HeartbeatSeconds: 30},
			"GID-08": {Lane: "PURPLE", Name: "ALEX", HeartbeatSeconds: 30},
		},
		Store: StoreConfig{
			Keep: 500,
		},
		Console: ConsoleConfig{
			RefreshMS: 2000,
		},
	}
}

// LoadConfig loads configuration from a YAML file.
// Empty path falls back to ~/.chainboard/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(DefaultDir(), "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithHash loads configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = filepath.Join(DefaultDir(), "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return DefaultConfig(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, hash, nil
}

// DefaultConfigYAML returns a commented YAML string for init-config.
func DefaultConfigYAML() string {
	return `# chainboard configuration
# Generated by: chainboard init-config

# Operator console API server (used unless --mock or --feed-dir is given).
api:
  base_url: http://127.0.0.1:8600
  timeout_ms: 5000

# JSONL snapshot feed directory. Leave dir empty to use the API.
# poll_ms is the fallback poll interval when inotify is unavailable.
feed:
  dir: ""
  poll_ms: 2000

# Dwell overrides per governance tier, in milliseconds.
# Values below the 500ms floor are raised to it. Omitted tiers use the
# built-in table (LAW=5000, POLICY=3000, GUIDANCE=2000, OPERATIONAL=1000).
tiers: {}
#  LAW: 8000

# Kill-switch controller.
# confirm_timeout_ms: window for the second engage press
# cooldown_seconds: hold time after engage before disarm
# max_arm_attempts / lockout_window_seconds: failed-authorization lockout
scram:
  confirm_timeout_ms: 3000
  cooldown_seconds: 60
  max_arm_attempts: 3
  lockout_window_seconds: 300
  override_dir: ""

# Webhook alert destinations.
# format: generic | slack | pagerduty
# events: event types, or ["*"] for all
#   invariant_failing, killswitch_engaged, agent_stale, agent_missing, feed_stale
alerts: []
#  - url: https://hooks.slack.com/services/XXX
#    format: slack
#    events: ["killswitch_engaged", "invariant_failing"]

# Known agents (GID -> lane, name, expected heartbeat).
# Agents reporting without an entry here render as UNREGISTERED.
agents:
  GID-00: {lane: TEAL, name: BENSON, heartbeat_seconds: 30}
  GID-01: {lane: BLUE, name: CODY, heartbeat_seconds: 30}
  GID-05: {lane: WHITE, name: PAX, heartbeat_seconds: 30}
  GID-06: {lane: "DARK RED", name: SAM, heartbeat_seconds: 30}
  GID-07: {lane: ORANGE, name: DAN, heartbeat_seconds: 30}
  GID-08: {lane: PURPLE, name: ALEX, heartbeat_seconds: 30}

# Snapshot history database (SQLite). keep bounds retained rows.
store:
  path: ""
  keep: 500

# Operator ledger (hash-chained JSONL).
ledger:
  path: ""

# Console log file and debug level (the TUI owns the terminal, so
# diagnostics go to a file while it runs).
log:
  file: ""
  debug: false

# Board refresh interval.
console:
  refresh_ms: 2000
`
}

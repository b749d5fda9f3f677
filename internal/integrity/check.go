// Package integrity verifies the console binary at startup. The
// expected hash is embedded at build time via ldflags; when the running
// binary does not match, a tamper event is recorded and the console
// refuses to start. A console that cannot vouch for itself must not
// render governance state.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/chainboard/internal/alert"
)

// ExpectedHash is set at build time via:
//
//	-ldflags "-X github.com/ppiankov/chainboard/internal/integrity.ExpectedHash=<sha256hex>"
//
// When empty (dev builds), verification falls back to a checksum file.
var ExpectedHash string

// TamperLogDir is where tamper events are written.
// Defaults to /var/log/chainboard. Override for testing.
var TamperLogDir = "/var/log/chainboard"

// ChecksumPaths are checked in order for a sha256 checksum file holding
// a single hex-encoded SHA-256 digest. Override for testing.
var ChecksumPaths = []string{
	"/etc/chainboard/binary.sha256",
	"$HOME/.chainboard/binary.sha256",
}

// TamperEvent records a binary integrity violation.
type TamperEvent struct {
	Timestamp    string `json:"timestamp"`
	Binary       string `json:"binary"`
	ExpectedHash string `json:"expected_hash"`
	ActualHash   string `json:"actual_hash"`
	Hostname     string `json:"hostname"`
	Type         string `json:"type"`
}

// Verify checks that the running binary matches ExpectedHash, falling
// back to the checksum file when the build carries no hash. Returns nil
// when verification passes or no expected hash is available (dev mode).
// On mismatch, a tamper event is written before the error returns.
func Verify() error {
	expected := ExpectedHash
	if expected == "" {
		expected = loadChecksumFile()
	}
	if expected == "" {
		fmt.Fprintf(os.Stderr, "integrity: WARNING no build-time hash or checksum file found (dev build, integrity check skipped)\n")
		return nil
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("integrity: cannot resolve executable path: %w", err)
	}

	actual, err := hashFile(exePath)
	if err != nil {
		return fmt.Errorf("integrity: cannot hash binary: %w", err)
	}

	if actual == expected {
		fmt.Fprintf(os.Stderr, "integrity: binary checksum verified (%s...%s)\n",
			actual[:8], actual[len(actual)-8:])
		return nil
	}

	event := TamperEvent{
		Timestamp:    time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Binary:       exePath,
		ExpectedHash: expected,
		ActualHash:   actual,
		Type:         "binary_tamper",
	}
	event.Hostname, _ = os.Hostname()

	writeTamperEvent(event)

	return fmt.Errorf("integrity: binary checksum mismatch (expected %s, got %s)", expected, actual)
}

// HashSelf returns the SHA-256 hex digest of the running binary.
// Used by `chainboard checksum` to produce the checksum file.
func HashSelf() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("integrity: cannot resolve executable path: %w", err)
	}
	return hashFile(exePath)
}

// loadChecksumFile reads the expected hash from the first readable
// checksum file. Returns empty when none is found.
func loadChecksumFile() string {
	for _, p := range ChecksumPaths {
		path := os.ExpandEnv(p)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		hash := strings.TrimSpace(string(data))
		if len(hash) == 64 && isHex(hash) {
			return hash
		}
	}
	return ""
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeTamperEvent appends the event to the tamper log, prints it to
// stderr for the journal, and fires configured webhooks.
func writeTamperEvent(event TamperEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		return
	}

	logPath := filepath.Join(TamperLogDir, "tamper.jsonl")
	if err := os.MkdirAll(TamperLogDir, 0o700); err == nil {
		if f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600); err == nil {
			f.Write(append(line, '\n'))
			f.Sync()
			f.Close()
		}
	}

	fmt.Fprintf(os.Stderr, "TAMPER ALERT: %s\n", string(line))

	dispatchTamperAlert(event)
}

// dispatchTamperAlert fires the event at every configured webhook that
// subscribes to binary_tamper. It parses only the alerts section of
// config.yaml since this runs before full config init, and sends
// synchronously because the process is about to exit.
func dispatchTamperAlert(event TamperEvent) {
	configs := loadAlertConfigs()
	if len(configs) == 0 {
		return
	}

	ev := alert.Event{
		Timestamp: event.Timestamp,
		Type:      "binary_tamper",
		Subject:   event.Binary,
		Detail:    fmt.Sprintf("binary checksum mismatch: expected %s, got %s", event.ExpectedHash, event.ActualHash),
		Severity:  "critical",
	}
	for _, cfg := range configs {
		for _, e := range cfg.Events {
			if e == "*" || e == "binary_tamper" {
				if err := alert.Send(cfg, ev); err != nil {
					fmt.Fprintf(os.Stderr, "TAMPER ALERT webhook failed: %v\n", err)
				}
				break
			}
		}
	}
}

type configAlerts struct {
	Alerts []alert.Config `yaml:"alerts"`
}

// loadAlertConfigs reads just the alerts section from config.yaml.
func loadAlertConfigs() []alert.Config {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(home, ".chainboard", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var ca configAlerts
	if err := yaml.Unmarshal(data, &ca); err != nil {
		return nil
	}
	return ca.Alerts
}

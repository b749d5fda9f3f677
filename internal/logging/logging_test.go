package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestFileLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "console.log")

	logger, err := NewFileLogger(path, false)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Info("board refreshed", zap.Int("agents", 6))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"board refreshed"`) {
		t.Errorf("log file missing message: %s", out)
	}
	if !strings.Contains(out, `"agents":6`) {
		t.Errorf("log file missing field: %s", out)
	}
}

func TestDebugLevelGating(t *testing.T) {
	dir := t.TempDir()

	quiet := filepath.Join(dir, "quiet.log")
	logger, err := NewFileLogger(quiet, false)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Debug("hidden")
	_ = logger.Sync()

	data, _ := os.ReadFile(quiet)
	if strings.Contains(string(data), "hidden") {
		t.Error("debug line written at info level")
	}

	loud := filepath.Join(dir, "loud.log")
	logger, err = NewFileLogger(loud, true)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Debug("visible")
	_ = logger.Sync()

	data, err = os.ReadFile(loud)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "visible") {
		t.Error("debug line missing with debug enabled")
	}
}

package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInitConfig_CreatesLayout(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	initForce = false

	if err := runInitConfig(nil, nil); err != nil {
		t.Fatalf("runInitConfig failed: %v", err)
	}

	stateDir := filepath.Join(tmpDir, ".chainboard")

	for _, sub := range []string{"runbooks", "overrides"} {
		if _, err := os.Stat(filepath.Join(stateDir, sub)); err != nil {
			t.Errorf("%s directory not created", sub)
		}
	}

	cfgPath := filepath.Join(stateDir, "config.yaml")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}
	for _, section := range []string{"api:", "scram:", "agents:", "alerts:"} {
		if !strings.Contains(string(data), section) {
			t.Errorf("config.yaml missing %s section", section)
		}
	}
}

func TestRunInitConfig_NoOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	stateDir := filepath.Join(tmpDir, ".chainboard")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatal(err)
	}

	sentinel := "# sentinel content\n"
	cfgPath := filepath.Join(stateDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	initForce = false

	if err := runInitConfig(nil, nil); err != nil {
		t.Fatalf("runInitConfig failed: %v", err)
	}

	data, _ := os.ReadFile(cfgPath)
	if string(data) != sentinel {
		t.Error("config.yaml was overwritten without --force")
	}
}

func TestRunInitConfig_ForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	stateDir := filepath.Join(tmpDir, ".chainboard")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatal(err)
	}

	sentinel := "# sentinel content\n"
	cfgPath := filepath.Join(stateDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	initForce = true
	defer func() { initForce = false }()

	if err := runInitConfig(nil, nil); err != nil {
		t.Fatalf("runInitConfig failed: %v", err)
	}

	data, _ := os.ReadFile(cfgPath)
	if string(data) == sentinel {
		t.Error("config.yaml was NOT overwritten with --force")
	}
}

func TestWriteIfMissing(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.txt")

	// First write should succeed.
	initForce = false
	wrote, err := writeIfMissing(path, "hello")
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if !wrote {
		t.Error("first write should return true")
	}

	// Second write without force should skip.
	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if wrote {
		t.Error("second write should return false without force")
	}

	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Errorf("content changed without force: %q", string(data))
	}

	// With force, should overwrite.
	initForce = true
	defer func() { initForce = false }()
	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("force write failed: %v", err)
	}
	if !wrote {
		t.Error("force write should return true")
	}
	data, _ = os.ReadFile(path)
	if string(data) != "world" {
		t.Errorf("force write didn't overwrite: %q", string(data))
	}
}

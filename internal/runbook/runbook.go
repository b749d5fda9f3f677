// Package runbook serves investigation checklists for governance
// invariants. Every step is a read-only check; runbooks tell the
// operator where to look, never what to mutate.
package runbook

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step is a single read-only check with its purpose.
type Step struct {
	Check   string `yaml:"check"`
	Purpose string `yaml:"purpose"`
}

// Runbook is a named checklist for one invariant class.
type Runbook struct {
	Name      string `yaml:"name"`
	Invariant string `yaml:"invariant"`
	Steps     []Step `yaml:"steps"`
	Source    string `yaml:"-"` // "built-in" or the override file path
}

// Parse decodes and validates runbook YAML.
func Parse(data []byte) (*Runbook, error) {
	var rb Runbook
	if err := yaml.Unmarshal(data, &rb); err != nil {
		return nil, fmt.Errorf("invalid runbook YAML: %w", err)
	}
	if rb.Name == "" {
		return nil, fmt.Errorf("runbook has no name")
	}
	if len(rb.Steps) == 0 {
		return nil, fmt.Errorf("runbook %q has no steps", rb.Name)
	}
	for i, s := range rb.Steps {
		if s.Check == "" {
			return nil, fmt.Errorf("runbook %q step %d has no check", rb.Name, i+1)
		}
	}
	return &rb, nil
}

// Normalize maps operator input to a canonical invariant ID: "x" and
// "x-inv" both become "X-INV".
func Normalize(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	if !strings.HasSuffix(id, "-INV") {
		id += "-INV"
	}
	return id
}

// Lookup resolves a runbook for an invariant ID. A file named after the
// lowercased ID in overrideDir wins; otherwise the embedded runbook for
// that ID; otherwise the generic fallback. Lookup never returns nil.
func Lookup(overrideDir, id string) *Runbook {
	id = Normalize(id)

	if overrideDir != "" && id != "" {
		path := filepath.Join(overrideDir, strings.ToLower(id)+".yaml")
		if data, err := os.ReadFile(path); err == nil {
			if rb, err := Parse(data); err == nil {
				rb.Source = path
				return rb
			}
		}
	}

	if rb, err := loadBuiltin(strings.ToLower(id)); err == nil {
		return rb
	}
	rb, err := loadBuiltin("generic")
	if err != nil {
		// The generic runbook is embedded; a failure here is a build
		// defect, not a runtime condition.
		panic(fmt.Sprintf("runbook: embedded generic runbook: %v", err))
	}
	if id != "" {
		rb.Invariant = id
	}
	return rb
}

// Get returns the built-in runbook for an invariant ID, falling back to
// the generic checklist for unknown IDs.
func Get(id string) *Runbook {
	return Lookup("", id)
}

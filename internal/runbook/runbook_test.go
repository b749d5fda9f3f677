package runbook

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var invariantIDs = []string{"S-INV", "M-INV", "X-INV", "T-INV", "A-INV", "F-INV", "C-INV"}

func TestGetKnownInvariants(t *testing.T) {
	for _, id := range invariantIDs {
		rb := Get(id)
		if rb.Invariant != id {
			t.Errorf("Get(%q) invariant = %q, want %q", id, rb.Invariant, id)
		}
		if len(rb.Steps) < 4 {
			t.Errorf("%s runbook has %d steps, want at least 4", id, len(rb.Steps))
		}
		if rb.Source != "built-in" {
			t.Errorf("%s runbook source = %q, want built-in", id, rb.Source)
		}
	}
}

func TestGetAcceptsShortAndLowercaseIDs(t *testing.T) {
	for _, id := range []string{"X-INV", "x-inv", "x", "X"} {
		rb := Get(id)
		if rb.Invariant != "X-INV" {
			t.Errorf("Get(%q) invariant = %q, want X-INV", id, rb.Invariant)
		}
	}
}

func TestGetUnknownFallsToGeneric(t *testing.T) {
	rb := Get("Z-INV")
	if !strings.HasPrefix(rb.Name, "Generic") {
		t.Errorf("unknown ID should fall back to generic, got %q", rb.Name)
	}
	if rb.Invariant != "Z-INV" {
		t.Errorf("fallback should carry the requested ID, got %q", rb.Invariant)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"x", "X-INV"},
		{"X-INV", "X-INV"},
		{" m-inv ", "M-INV"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStepsHaveCheckAndPurpose(t *testing.T) {
	for _, rb := range List() {
		for i, step := range rb.Steps {
			if step.Check == "" {
				t.Errorf("%s step %d has empty check", rb.Name, i+1)
			}
			if step.Purpose == "" {
				t.Errorf("%s step %d has empty purpose", rb.Name, i+1)
			}
		}
	}
}

func TestStepsAreReadOnly(t *testing.T) {
	destructive := []string{"rm ", "mv ", "chmod", "kill ", "truncate", "systemctl stop", "> /"}
	for _, rb := range List() {
		for _, step := range rb.Steps {
			for _, bad := range destructive {
				if strings.Contains(step.Check, bad) {
					t.Errorf("%s contains destructive check %q", rb.Name, step.Check)
				}
			}
		}
	}
}

func TestListOrdersGenericLast(t *testing.T) {
	list := List()
	if len(list) != len(invariantIDs)+1 {
		t.Fatalf("List() returned %d runbooks, want %d", len(list), len(invariantIDs)+1)
	}
	last := list[len(list)-1]
	if last.Invariant != "" {
		t.Errorf("generic runbook should sort last, got %q", last.Invariant)
	}
	for i, rb := range list[:len(list)-1] {
		if rb.Invariant == "" {
			t.Errorf("position %d: unexpected generic runbook before the end", i)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no name", "invariant: X-INV\nsteps:\n  - check: ls\n    purpose: p\n"},
		{"no steps", "name: x\ninvariant: X-INV\n"},
		{"empty check", "name: x\nsteps:\n  - purpose: p\n"},
		{"bad yaml", "name: [unterminated\n"},
	}
	for _, tt := range tests {
		if _, err := Parse([]byte(tt.yaml)); err == nil {
			t.Errorf("Parse(%s) should fail", tt.name)
		}
	}
}

func TestOverrideDirWins(t *testing.T) {
	dir := t.TempDir()
	custom := "name: Site-local execution checklist\ninvariant: X-INV\nsteps:\n  - check: cat /etc/chainboard/halt-contacts\n    purpose: page the on-call listed for execution halts\n"
	path := filepath.Join(dir, "x-inv.yaml")
	if err := os.WriteFile(path, []byte(custom), 0o600); err != nil {
		t.Fatal(err)
	}

	rb := Lookup(dir, "X-INV")
	if rb.Name != "Site-local execution checklist" {
		t.Errorf("override should win, got %q", rb.Name)
	}
	if rb.Source != path {
		t.Errorf("source = %q, want %q", rb.Source, path)
	}

	// IDs without an override file still resolve to the built-in.
	rb = Lookup(dir, "M-INV")
	if rb.Source != "built-in" {
		t.Errorf("M-INV should come from the built-ins, got source %q", rb.Source)
	}
}

func TestCorruptOverrideFallsThrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a-inv.yaml")
	if err := os.WriteFile(path, []byte("name: [broken"), 0o600); err != nil {
		t.Fatal(err)
	}

	rb := Lookup(dir, "A-INV")
	if rb.Source != "built-in" {
		t.Errorf("corrupt override should fall back to built-in, got %q", rb.Source)
	}
	if rb.Invariant != "A-INV" {
		t.Errorf("invariant = %q, want A-INV", rb.Invariant)
	}
}

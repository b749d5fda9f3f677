package runbook

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed runbooks/*.yaml
var builtinFS embed.FS

// loadBuiltin loads an embedded runbook by its lowercased file stem.
func loadBuiltin(name string) (*Runbook, error) {
	if name == "" {
		return nil, fmt.Errorf("empty runbook name")
	}
	data, err := builtinFS.ReadFile("runbooks/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("built-in runbook %q not found", name)
	}
	rb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("built-in runbook %s: %w", name, err)
	}
	rb.Source = "built-in"
	return rb, nil
}

// List returns all embedded runbooks ordered by invariant ID, generic
// last.
func List() []*Runbook {
	entries, err := builtinFS.ReadDir("runbooks")
	if err != nil {
		return nil
	}
	var runbooks []*Runbook
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		rb, err := loadBuiltin(strings.TrimSuffix(e.Name(), ".yaml"))
		if err != nil {
			continue
		}
		runbooks = append(runbooks, rb)
	}
	sort.Slice(runbooks, func(i, j int) bool {
		gi, gj := runbooks[i].Invariant == "", runbooks[j].Invariant == ""
		if gi != gj {
			return gj
		}
		return runbooks[i].Invariant < runbooks[j].Invariant
	})
	return runbooks
}

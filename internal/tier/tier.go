// Package tier defines governance tiers and their required dwell times.
// Higher tier = more critical action = longer mandatory review.
package tier

import (
	"fmt"
	"strings"
	"time"
)

// Tier classifies the criticality of a governed action.
type Tier string

const (
	Law         Tier = "LAW"         // constitutional actions, 5s dwell
	Policy      Tier = "POLICY"      // policy-level actions, 3s dwell
	Guidance    Tier = "GUIDANCE"    // advisory actions, 2s dwell
	Operational Tier = "OPERATIONAL" // routine actions, 1s dwell
)

// DwellFloor is the minimum effective dwell for any gated action.
// Overrides below the floor are clamped, not rejected.
const DwellFloor = 500 * time.Millisecond

var dwellTable = map[Tier]time.Duration{
	Law:         5000 * time.Millisecond,
	Policy:      3000 * time.Millisecond,
	Guidance:    2000 * time.Millisecond,
	Operational: 1000 * time.Millisecond,
}

// Parse maps a case-insensitive tier name to a Tier.
func Parse(s string) (Tier, error) {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case Law:
		return Law, nil
	case Policy:
		return Policy, nil
	case Guidance:
		return Guidance, nil
	case Operational:
		return Operational, nil
	default:
		return "", fmt.Errorf("unknown governance tier %q", s)
	}
}

// Dwell returns the table dwell for the tier.
// Unknown tiers get the floor (fail soft; this gates review time, not safety plumbing).
func Dwell(t Tier) time.Duration {
	if d, ok := dwellTable[t]; ok {
		return d
	}
	return DwellFloor
}

// RequiredDwell computes the effective dwell: the custom override when
// positive, otherwise the tier default, clamped to DwellFloor either way.
// Zero or negative custom values fall through to the tier default.
func RequiredDwell(t Tier, custom time.Duration) time.Duration {
	d := Dwell(t)
	if custom > 0 {
		d = custom
	}
	if d < DwellFloor {
		return DwellFloor
	}
	return d
}

// Rank orders tiers by criticality. Law is highest (3), unknown is -1.
func Rank(t Tier) int {
	switch t {
	case Law:
		return 3
	case Policy:
		return 2
	case Guidance:
		return 1
	case Operational:
		return 0
	default:
		return -1
	}
}

// Label returns a human-readable label for display rows.
func Label(t Tier) string {
	switch t {
	case Law, Policy, Guidance, Operational:
		return string(t)
	default:
		return fmt.Sprintf("UNKNOWN(%s)", string(t))
	}
}

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// TruncateHash shortens a display hash to its first and last eight hex
// characters. Hashes carry an algorithm prefix like "sha256:"; the prefix
// is preserved.
func TruncateHash(h string) string {
	const keep = 8
	prefix := ""
	if i := strings.IndexByte(h, ':'); i >= 0 {
		prefix, h = h[:i+1], h[i+1:]
	}
	if len(h) <= 2*keep {
		return prefix + h
	}
	return prefix + h[:keep] + "..." + h[len(h)-keep:]
}

// Amount renders minor units as a grouped decimal with currency,
// e.g. 1234567 USD -> "12,345.67 USD".
func Amount(minor int64, currency string) string {
	return fmt.Sprintf("%s %s", humanize.CommafWithDigits(float64(minor)/100, 2), currency)
}

// Age renders how long ago an instant was, humanized ("14 seconds ago").
func Age(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// AgeShort renders a compact age for tight grid cells: "8s", "3m", "2h".
func AgeShort(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < 0:
		return "0s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

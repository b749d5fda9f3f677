// Package ident generates prefixed random identifiers for console
// entities: ledger events, override tokens, scram requests.
package ident

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewEventID generates an operator-ledger event ID.
func NewEventID() string {
	return prefixedID("evt", 12)
}

// NewTokenID generates a break-glass override token ID.
func NewTokenID() string {
	return prefixedID("tok", 12)
}

// NewScramID generates a kill-switch request ID.
func NewScramID() string {
	return prefixedID("scram", 8)
}

// UTCNowISO returns the current UTC time in ISO format with Z suffix.
func UTCNowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// FormatISO renders an instant in the ledger timestamp format.
func FormatISO(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func prefixedID(prefix string, hexLen int) string {
	b := make([]byte, (hexLen+1)/2)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return fmt.Sprintf("%s-%x", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(b)[:hexLen])
}

package console

import "time"

// announcerDepth bounds the kept announcement history.
const announcerDepth = 5

// Announcement is one status-line message with its instant.
type Announcement struct {
	Text string
	At   time.Time
}

// Announcer collects operator-facing state change messages for the
// status line. It is an explicit capability handed to the panels, not a
// global; everything that wants to talk to the operator goes through
// it. All calls happen on the update loop, so no locking.
type Announcer struct {
	entries []Announcement
	now     func() time.Time
}

// NewAnnouncer creates an Announcer.
func NewAnnouncer() *Announcer {
	return &Announcer{now: time.Now}
}

// Announce records a message, keeping the newest announcerDepth.
func (a *Announcer) Announce(text string) {
	if text == "" {
		return
	}
	a.entries = append(a.entries, Announcement{Text: text, At: a.now()})
	if len(a.entries) > announcerDepth {
		a.entries = a.entries[len(a.entries)-announcerDepth:]
	}
}

// Current returns the latest announcement, or a zero value when none.
func (a *Announcer) Current() Announcement {
	if len(a.entries) == 0 {
		return Announcement{}
	}
	return a.entries[len(a.entries)-1]
}

// History returns the kept announcements, oldest first.
func (a *Announcer) History() []Announcement {
	out := make([]Announcement, len(a.entries))
	copy(out, a.entries)
	return out
}

// Package contacts implements the contact cache built while indexing mail:
// address normalization, merge-on-insert deduplication, pattern matching, and
// the deterministic ordering used for export.
package contacts

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date layout used when contact dates are
// persisted or rendered.
const DateLayout = "2006-01-02"

// Contact is the canonical record kept once per normalized address.
type Contact struct {
	// Address is the display form of the address, taken from the most
	// recent observation.
	Address string
	// Name is the first non-empty personal name observed for the address.
	Name string
	// FirstSeen is the earliest message date (UTC midnight). Zero if no
	// observation carried a date.
	FirstSeen time.Time
	// LastSeen is the latest message date (UTC midnight).
	LastSeen time.Time
	// Frequency counts the messages the address appeared in.
	Frequency int
}

// Observation is one mention of a name/address pair in a single message.
type Observation struct {
	Name    string
	Address string
	Date    time.Time
}

// Day returns the calendar date of t in t's own location, as UTC midnight.
// A message written at 01:00 +0300 on 19 May is dated 19 May. The zero time
// stays zero.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDay renders a calendar date, or fallback when t is zero.
func FormatDay(t time.Time, fallback string) string {
	if t.IsZero() {
		return fallback
	}
	return t.UTC().Format(DateLayout)
}

// cleanName strips surrounding whitespace and the double quotes some mailers
// leave around display names.
func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		name = strings.TrimSpace(name[1 : len(name)-1])
	}
	return name
}

package mbox

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Separator is a parsed "From " line.
type Separator struct {
	Sender string
	Date   time.Time // UTC
}

// separatorLayouts covers the ctime-like dates written by mail agents:
// optional weekday, optional seconds, and an optional zone either before or
// after the year.
var separatorLayouts = buildSeparatorLayouts()

func buildSeparatorLayouts() []string {
	var layouts []string
	for _, day := range []string{"Mon Jan 2", "Jan 2"} {
		for _, clock := range []string{"15:04:05", "15:04"} {
			base := day + " " + clock
			layouts = append(layouts, base+" 2006")
			for _, zone := range []string{"-0700", "-07:00", "MST"} {
				layouts = append(layouts,
					base+" "+zone+" 2006",
					base+" 2006 "+zone,
				)
			}
		}
	}
	return layouts
}

var zoneOffsets = map[string]int{
	"UTC":  0,
	"GMT":  0,
	"UT":   0,
	"Z":    0,
	"EST":  -5 * 3600,
	"EDT":  -4 * 3600,
	"CST":  -6 * 3600,
	"CDT":  -5 * 3600,
	"MST":  -7 * 3600,
	"MDT":  -6 * 3600,
	"PST":  -8 * 3600,
	"PDT":  -7 * 3600,
	"AKST": -9 * 3600,
	"AKDT": -8 * 3600,
	"HST":  -10 * 3600,
	"CET":  1 * 3600,
	"CEST": 2 * 3600,
	"BST":  1 * 3600,
}

// ParseSeparator parses an mbox "From " separator line of the form
// "From <sender> <ctime-like date> [extra...]". Trailing tokens after the
// date (e.g. "remote from ...") are ignored.
//
// Known zone abbreviations are resolved to their offsets; unknown ones are
// accepted and read as UTC so that separator detection stays permissive.
func ParseSeparator(line string) (Separator, bool) {
	fields := strings.Fields(strings.TrimRight(line, "\r\n"))
	if len(fields) < 6 || fields[0] != "From" {
		return Separator{}, false
	}

	for _, layout := range separatorLayouts {
		lf := strings.Fields(layout)
		if len(fields) < 2+len(lf) {
			continue
		}
		// A zoneless layout must not swallow the date of "... 2024 PST".
		if !hasZone(layout) && len(fields) > 2+len(lf) && looksLikeZone(fields[2+len(lf)]) {
			continue
		}
		date := fields[2 : 2+len(lf)]
		t, err := time.Parse(layout, strings.Join(date, " "))
		if err != nil {
			continue
		}
		if i := indexOf(lf, "MST"); i >= 0 {
			if off, ok := zoneOffsets[strings.ToUpper(strings.Trim(date[i], "()"))]; ok {
				patched := append([]string(nil), date...)
				patched[i] = formatOffset(off)
				numeric := strings.Replace(layout, "MST", "-0700", 1)
				if pt, err := time.Parse(numeric, strings.Join(patched, " ")); err == nil {
					t = pt
				}
			} else {
				y, mo, d := t.Date()
				t = time.Date(y, mo, d, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
			}
		}
		return Separator{Sender: fields[1], Date: t}, true
	}
	return Separator{}, false
}

// IsSeparator reports whether line looks like an mbox "From " separator.
func IsSeparator(line []byte) bool {
	if !bytes.HasPrefix(line, fromPrefix) {
		return false
	}
	_, ok := ParseSeparator(string(line))
	return ok
}

func hasZone(layout string) bool {
	return strings.Contains(layout, "MST") || strings.Contains(layout, "-07")
}

// looksLikeZone reports whether token is a numeric offset or a short
// upper-case zone abbreviation.
func looksLikeZone(token string) bool {
	token = strings.Trim(token, "()")
	if token == "" || len(token) > 6 {
		return false
	}
	if token[0] == '+' || token[0] == '-' {
		for i := 1; i < len(token); i++ {
			if (token[i] < '0' || token[i] > '9') && token[i] != ':' {
				return false
			}
		}
		return len(token) >= 5
	}
	if len(token) > 5 {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] < 'A' || token[i] > 'Z' {
			return false
		}
	}
	return true
}

func indexOf(fields []string, s string) int {
	for i, f := range fields {
		if f == s {
			return i
		}
	}
	return -1
}

func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, seconds/3600, (seconds%3600)/60)
}

// Package export renders contacts into the address-book interchange formats
// read by mail clients (BBDB, Wanderlust, mutt, org-contacts, CSV).
package export

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnsupportedFormat is returned when a format identifier is unknown.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Format identifies an output format.
type Format int

const (
	Plain Format = iota
	BBDB
	Wanderlust
	MuttAlias
	MuttAddressBook
	OrgContact
	CSV

	numFormats
)

var formatNames = [numFormats]string{
	Plain:           "plain",
	BBDB:            "bbdb",
	Wanderlust:      "wl",
	MuttAlias:       "mutt-alias",
	MuttAddressBook: "mutt-ab",
	OrgContact:      "org-contact",
	CSV:             "csv",
}

// String returns the identifier used on the command line.
func (f Format) String() string {
	if f < 0 || f >= numFormats {
		return fmt.Sprintf("Format(%d)", int(f))
	}
	return formatNames[f]
}

// Formats returns every supported format identifier.
func Formats() []string {
	return slices.Clone(formatNames[:])
}

// ParseFormat maps a command-line identifier to its Format.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if name == s {
			return Format(f), nil
		}
	}
	return 0, fmt.Errorf("%w %q (want one of %s)", ErrUnsupportedFormat, s, strings.Join(Formats(), ", "))
}

package export

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wesm/mailcontacts/internal/contacts"
)

// splitName splits a display name into first and last name at the first
// space. A single-word name has an empty last name.
func splitName(name string) (first, last string) {
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

// Alias derives a whitespace-free nickname for alias-based formats: the
// first name followed by the initial of the last name ("Helmut Kröger"
// becomes "HelmutK"). Without a name the local part of the address is used.
func Alias(c contacts.Contact) string {
	var nick string
	if c.Name == "" {
		nick = contacts.LocalPart(c.Address)
	} else {
		first, last := splitName(c.Name)
		nick = first
		if r, _ := utf8.DecodeRuneInString(last); last != "" && r != utf8.RuneError {
			nick += string(r)
		}
	}
	nick = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			return r
		}
		return -1
	}, nick)
	if nick == "" {
		return "nick"
	}
	return nick
}

var elispEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// elispString quotes s as an Emacs Lisp string literal.
func elispString(s string) string {
	return `"` + elispEscaper.Replace(s) + `"`
}

// nameOrAddress is the label used by formats that need a non-empty name.
func nameOrAddress(c contacts.Contact) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Address
}

package contacts

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidPattern is returned when a search pattern does not compile.
var ErrInvalidPattern = errors.New("invalid pattern")

// Matcher tests contacts against a POSIX extended regular expression.
type Matcher struct {
	re *regexp.Regexp // nil matches everything
}

// CompilePattern compiles a user-supplied pattern. The empty pattern matches
// every contact.
func CompilePattern(pattern string) (*Matcher, error) {
	if pattern == "" {
		return &Matcher{}, nil
	}
	re, err := regexp.CompilePOSIX(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
	}
	return &Matcher{re: re}, nil
}

// Match reports whether the pattern matches anywhere in the contact's name
// and address joined by a single space. Matching is case-sensitive.
func (m *Matcher) Match(c Contact) bool {
	if m.re == nil {
		return true
	}
	return m.re.MatchString(c.Name + " " + c.Address)
}

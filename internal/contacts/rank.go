package contacts

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// sortKey is the collation key of a contact: the NFC form of its name, or of
// its address when the name is empty.
func sortKey(c Contact) string {
	if c.Name == "" {
		return norm.NFC.String(c.Address)
	}
	return norm.NFC.String(c.Name)
}

// Compare orders contacts for output. UTF-8 byte order equals code-point
// order, so strings.Compare on the NFC keys is a code-point comparison.
func Compare(a, b Contact) int {
	return compareKeyed(sortKey(a), a, sortKey(b), b)
}

func compareKeyed(ka string, a Contact, kb string, b Contact) int {
	if r := strings.Compare(ka, kb); r != 0 {
		return r
	}
	if r := strings.Compare(a.Address, b.Address); r != 0 {
		return r
	}
	return cmp.Compare(a.Name, b.Name)
}

// Rank sorts contacts in place into export order.
func Rank(cs []Contact) {
	type keyed struct {
		key string
		c   Contact
	}
	ks := make([]keyed, len(cs))
	for i, c := range cs {
		ks[i] = keyed{key: sortKey(c), c: c}
	}
	slices.SortStableFunc(ks, func(a, b keyed) int {
		return compareKeyed(a.key, a.c, b.key, b.c)
	})
	for i := range ks {
		cs[i] = ks[i].c
	}
}

// Select returns the contacts of cache accepted by m, in export order.
func (m *Matcher) Select(cache *Cache) []Contact {
	var out []Contact
	for c := range cache.All() {
		if m.Match(c) {
			out = append(out, c)
		}
	}
	Rank(out)
	return out
}

// Find returns the contacts of cache matching pattern, in export order.
func Find(cache *Cache, pattern string) ([]Contact, error) {
	m, err := CompilePattern(pattern)
	if err != nil {
		return nil, err
	}
	return m.Select(cache), nil
}

package testutil

import (
	"testing"
	"time"

	"github.com/wesm/mailcontacts/internal/contacts"
)

// Day parses a YYYY-MM-DD date as UTC midnight.
func Day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(contacts.DateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// NewCache returns a cache holding the given contacts in order.
func NewCache(t *testing.T, cs ...contacts.Contact) *contacts.Cache {
	t.Helper()
	c := contacts.NewCache()
	for _, ct := range cs {
		if err := c.Insert(ct); err != nil {
			t.Fatalf("insert %s: %v", ct.Address, err)
		}
	}
	return c
}

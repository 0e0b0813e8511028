package contacts

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

// ErrDuplicateAddress is returned by Insert when the normalized address is
// already present.
var ErrDuplicateAddress = errors.New("duplicate address")

// Cache is the set of contacts keyed by normalized address, plus the keys of
// the messages that contributed to it. A Cache is not safe for concurrent
// use; indexing and querying are separate phases.
type Cache struct {
	index    map[string]int // normalized address -> position in list
	list     []Contact
	messages map[string]struct{}
	order    []string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		index:    make(map[string]int),
		messages: make(map[string]struct{}),
	}
}

// Merge folds an observation into the cache. A new address is inserted with
// frequency 1. For a known address the frequency is incremented, FirstSeen
// keeps the earliest date, and the name is only filled in if none was
// recorded yet. Returns ErrInvalidAddress (and leaves the cache untouched)
// for addresses that cannot be normalized.
func (c *Cache) Merge(obs Observation) error {
	key, err := Normalize(obs.Address)
	if err != nil {
		return err
	}
	name := cleanName(obs.Name)
	date := Day(obs.Date)
	display := strings.TrimSpace(obs.Address)

	i, ok := c.index[key]
	if !ok {
		c.index[key] = len(c.list)
		c.list = append(c.list, Contact{
			Address:   display,
			Name:      name,
			FirstSeen: date,
			LastSeen:  date,
			Frequency: 1,
		})
		return nil
	}

	ct := &c.list[i]
	ct.Frequency++
	if ct.Name == "" && name != "" {
		ct.Name = name
	}
	if !date.IsZero() {
		if ct.FirstSeen.IsZero() || date.Before(ct.FirstSeen) {
			ct.FirstSeen = date
		}
		if !date.Before(ct.LastSeen) {
			ct.LastSeen = date
			ct.Address = display
		}
	}
	return nil
}

// Insert adds a fully formed contact, as read back from persistent storage.
func (c *Cache) Insert(ct Contact) error {
	key, err := Normalize(ct.Address)
	if err != nil {
		return err
	}
	if _, ok := c.index[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateAddress, key)
	}
	if ct.Frequency < 1 {
		return fmt.Errorf("contact %s: frequency %d < 1", key, ct.Frequency)
	}
	ct.FirstSeen = Day(ct.FirstSeen)
	ct.LastSeen = Day(ct.LastSeen)
	c.index[key] = len(c.list)
	c.list = append(c.list, ct)
	return nil
}

// Get looks up a contact by any spelling of its address.
func (c *Cache) Get(address string) (Contact, bool) {
	key, err := Normalize(address)
	if err != nil {
		return Contact{}, false
	}
	i, ok := c.index[key]
	if !ok {
		return Contact{}, false
	}
	return c.list[i], true
}

// Len returns the number of contacts.
func (c *Cache) Len() int {
	return len(c.list)
}

// All yields every contact in insertion order. The sequence can be ranged
// over more than once; it must not be used while the cache is being merged
// into.
func (c *Cache) All() iter.Seq[Contact] {
	return func(yield func(Contact) bool) {
		for _, ct := range c.list {
			if !yield(ct) {
				return
			}
		}
	}
}

// MarkIndexed records a message key. It reports false if the key was
// already recorded, meaning the message has been merged before.
func (c *Cache) MarkIndexed(key string) bool {
	if _, ok := c.messages[key]; ok {
		return false
	}
	c.messages[key] = struct{}{}
	c.order = append(c.order, key)
	return true
}

// Indexed reports whether the message key has been recorded.
func (c *Cache) Indexed(key string) bool {
	_, ok := c.messages[key]
	return ok
}

// IndexedCount returns the number of recorded message keys.
func (c *Cache) IndexedCount() int {
	return len(c.order)
}

// IndexedKeys yields recorded message keys in the order they were added.
func (c *Cache) IndexedKeys() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, k := range c.order {
			if !yield(k) {
				return
			}
		}
	}
}

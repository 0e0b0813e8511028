// Package testutil provides test helpers for mailcontacts tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertStrings, etc.)
//   - fs_helpers.go: filesystem operations (WriteFile, ReadFile, SetMtime)
//   - contacts.go: cache fixtures (NewCache, Day)
//
// The email subpackage builds raw messages and their containers.
package testutil

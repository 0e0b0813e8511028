package contacts

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func addresses(cs []Contact) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Address
	}
	return out
}

func TestRank_CodePointOrder(t *testing.T) {
	cs := []Contact{
		{Name: "Mü", Address: "m@x"},
		{Name: "Helmut Kröger", Address: "hk@x"},
	}
	Rank(cs)
	if cs[0].Name != "Helmut Kröger" || cs[1].Name != "Mü" {
		t.Errorf("Rank() = [%q %q], want [Helmut Kröger Mü]", cs[0].Name, cs[1].Name)
	}
}

func TestRank_EmptyNameUsesAddress(t *testing.T) {
	cs := []Contact{
		{Name: "bob", Address: "z@x.org"},
		{Name: "", Address: "bob@x.org"},
		{Name: "Alice", Address: "alice@x.org"},
		{Name: "", Address: "aaron@x.org"},
	}
	Rank(cs)
	want := []string{"alice@x.org", "aaron@x.org", "z@x.org", "bob@x.org"}
	// "Alice" < "aaron@..." because 'A' < 'a'; "bob" < "bob@x.org" as a prefix.
	if diff := cmp.Diff(want, addresses(cs)); diff != "" {
		t.Errorf("Rank() mismatch (-want +got):\n%s", diff)
	}
}

func TestRank_TieBreakOnAddress(t *testing.T) {
	cs := []Contact{
		{Name: "Sam", Address: "sam@z.org"},
		{Name: "Sam", Address: "sam@a.org"},
		{Name: "Sam", Address: "Sam@a.org"},
	}
	Rank(cs)
	want := []string{"Sam@a.org", "sam@a.org", "sam@z.org"}
	if diff := cmp.Diff(want, addresses(cs)); diff != "" {
		t.Errorf("Rank() mismatch (-want +got):\n%s", diff)
	}
}

func TestRank_NormalizesBeforeComparing(t *testing.T) {
	// "Mü" spelled with a combining diaeresis must collate like the
	// precomposed form, so the address tie-break decides.
	cs := []Contact{
		{Name: "Mu\u0308", Address: "b@x"},
		{Name: "M\u00fc", Address: "a@x"},
	}
	Rank(cs)
	if diff := cmp.Diff([]string{"a@x", "b@x"}, addresses(cs)); diff != "" {
		t.Errorf("Rank() mismatch (-want +got):\n%s", diff)
	}
	// Names are never rewritten by ranking.
	if cs[1].Name != "Mu\u0308" {
		t.Errorf("Rank() altered name: %q", cs[1].Name)
	}
}

func TestCompare_Total(t *testing.T) {
	a := Contact{Name: "A", Address: "a@x"}
	b := Contact{Name: "A", Address: "b@x"}
	if Compare(a, b) >= 0 || Compare(b, a) <= 0 {
		t.Error("Compare() is not antisymmetric on distinct addresses")
	}
	if Compare(a, a) != 0 {
		t.Error("Compare(a, a) != 0")
	}
}

func TestFind(t *testing.T) {
	c := NewCache()
	mustMerge(t, c,
		Observation{Name: "Mü", Address: "testmu@testmu.xx", Date: date("2011-05-19")},
		Observation{Name: "Nobody", Address: "nobody@example.com"},
		Observation{Name: "Helmut Kröger", Address: "hk@testmu.xxx", Date: date("2011-05-19")},
	)

	got, err := Find(c, `testmu\.xxx?`)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if diff := cmp.Diff([]string{"hk@testmu.xxx", "testmu@testmu.xx"}, addresses(got)); diff != "" {
		t.Errorf("Find() mismatch (-want +got):\n%s", diff)
	}

	none, err := Find(c, "no-such-contact")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Find() = %v, want no matches", none)
	}

	all, err := Find(c, "")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Find(\"\") returned %d contacts, want 3", len(all))
	}

	if _, err := Find(c, "(bad"); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("Find() error = %v, want ErrInvalidPattern", err)
	}
}

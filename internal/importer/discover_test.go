package importer

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/mailcontacts/internal/testutil"
	"github.com/wesm/mailcontacts/internal/testutil/email"
)

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	msg := email.NewMessage().Bytes()

	testutil.WriteFile(t, dir, "a.eml", msg)
	testutil.WriteFile(t, dir, "b.mbox", email.Mbox(msg, msg))
	testutil.WriteFile(t, dir, "Mail/INBOX.mbox/Messages/7.emlx", email.Emlx(msg, 0))
	testutil.WriteFile(t, dir, "Mail/INBOX.mbox/Info.plist", []byte("<?xml version=\"1.0\"?>\n<plist/>\n"))
	testutil.WriteFile(t, dir, "empty", nil)
	testutil.WriteFile(t, dir, "notes.txt", []byte("just some text\n"))
	testutil.WriteFile(t, dir, ".DS_Store", []byte("Bud1"))

	got, err := Discover([]string{dir})
	testutil.MustNoErr(t, err, "Discover")

	want := []Source{
		{Path: filepath.Join(dir, "Mail/INBOX.mbox/Messages/7.emlx"), Kind: KindEmlx},
		{Path: filepath.Join(dir, "a.eml"), Kind: KindMessage},
		{Path: filepath.Join(dir, "b.mbox"), Kind: KindMbox},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_FileArgument(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "single", email.NewMessage().Bytes())
	got, err := Discover([]string{path})
	testutil.MustNoErr(t, err, "Discover")
	if diff := cmp.Diff([]Source{{Path: path, Kind: KindMessage}}, got); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestLooksLikeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"From: a@b\n", true},
		{"Return-Path: <a@b>\r\n", true},
		{"X-Weird_Header: v\n", true},
		{"hello world\n", false},
		{"Not A Header: x\n", false},
		{": empty name\n", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := looksLikeHeader([]byte(tt.in)); got != tt.want {
			t.Errorf("looksLikeHeader(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	testutil.AssertStrings(t,
		[]string{KindMessage.String(), KindMbox.String(), KindEmlx.String(), Kind(9).String()},
		"message", "mbox", "emlx", "Kind(9)",
	)
}

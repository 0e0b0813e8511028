package emlx

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/wesm/mailcontacts/internal/testutil"
	"github.com/wesm/mailcontacts/internal/testutil/email"
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>date-sent</key>
	%s
	<key>flags</key>
	<integer>8590195713</integer>
	<key>original-mailbox</key>
	<string>imap://user@example.com/INBOX</string>
</dict>
</plist>
`

func TestParse(t *testing.T) {
	mime := "From: alice@example.com\r\nSubject: Hello\r\n\r\nBody\r\n"
	// 252460800 seconds after 2001-01-01 is 2009-01-01.
	want := time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"real", "<real>252460800</real>", want},
		{"fractional real", "<real>252460800.5</real>", want.Add(500 * time.Millisecond)},
		{"integer", "<integer>252460800</integer>", want},
		{"wrong type", "<string>yesterday</string>", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := fmt.Sprintf("%d\n%s%s", len(mime), mime, fmt.Sprintf(plistTemplate, tt.value))
			msg, err := Parse([]byte(data))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if string(msg.Raw) != mime {
				t.Errorf("Raw = %q, want %q", msg.Raw, mime)
			}
			if !msg.DateSent.Equal(tt.want) {
				t.Errorf("DateSent = %v, want %v", msg.DateSent, tt.want)
			}
		})
	}
}

func TestParse_NoPlist(t *testing.T) {
	mime := "From: alice@example.com\n\nBody\n"
	msg, err := Parse([]byte(fmt.Sprintf("%d\n%s", len(mime), mime)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if string(msg.Raw) != mime {
		t.Errorf("Raw = %q, want %q", msg.Raw, mime)
	}
	if !msg.DateSent.IsZero() {
		t.Errorf("DateSent = %v, want zero", msg.DateSent)
	}
}

func TestParse_MalformedPlistIgnored(t *testing.T) {
	mime := "From: alice@example.com\n\nBody\n"
	data := fmt.Sprintf("%d\n%s<?xml version=\"1.0\"?><plist><dict><key>date-sent", len(mime), mime)
	msg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !msg.DateSent.IsZero() {
		t.Errorf("DateSent = %v, want zero", msg.DateSent)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no newline", "12345"},
		{"non numeric count", "abc\nFrom: test\r\n\r\n"},
		{"negative count", "-5\nFrom: test\r\n\r\n"},
		{"count exceeds data", "9999\nshort"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.data)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	raw := email.NewMessage().From("Bob <bob@example.com>").Bytes()
	path := testutil.WriteFile(t, t.TempDir(), "Messages/42.emlx", email.Emlx(raw, 252460800))

	msg, err := ParseFile(path)
	testutil.MustNoErr(t, err, "ParseFile")
	if string(msg.Raw) != string(raw) {
		t.Errorf("Raw = %q, want %q", msg.Raw, raw)
	}
	if want := time.Date(2009, 1, 1, 0, 0, 0, 0, time.UTC); !msg.DateSent.Equal(want) {
		t.Errorf("DateSent = %v, want %v", msg.DateSent, want)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.emlx")); err == nil {
		t.Error("ParseFile on a missing file succeeded")
	}
}

func TestIsMessageFile(t *testing.T) {
	tests := map[string]bool{
		"42.emlx":         true,
		"42.partial.emlx": true,
		"42.EMLX":         true,
		"42.eml":          false,
		"Info.plist":      false,
	}
	for name, want := range tests {
		if got := IsMessageFile(name); got != want {
			t.Errorf("IsMessageFile(%q) = %v, want %v", name, got, want)
		}
	}
}

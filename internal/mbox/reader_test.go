package mbox

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/wesm/mailcontacts/internal/testutil/email"
)

func readAll(t *testing.T, r *Reader) []*Message {
	t.Helper()
	var out []*Message
	for {
		msg, err := r.Next()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Next(): %v", err)
		}
		out = append(out, msg)
	}
}

func TestReader_Next_SplitsAndUnescapes(t *testing.T) {
	data := strings.Join([]string{
		"From sender@example.com Mon Jan 1 00:00:00 2024",
		"Subject: One",
		"",
		">From should-unescape",
		">>From keep-one",
		"Normal",
		"",
		"From other@example.com Tue Jan 2 00:00:01 2024",
		"Subject: Two",
		"",
		"Body2",
		"",
	}, "\n")

	msgs := readAll(t, NewReader(strings.NewReader(data), 0))
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}

	raw1 := string(msgs[0].Raw)
	if !strings.Contains(raw1, "\nFrom should-unescape\n") {
		t.Errorf("expected unescaped From line, got raw:\n%s", raw1)
	}
	if !strings.Contains(raw1, "\n>From keep-one\n") {
		t.Errorf("expected >>From -> >From, got raw:\n%s", raw1)
	}
	if msgs[0].Separator.Sender != "sender@example.com" {
		t.Errorf("sender = %q", msgs[0].Separator.Sender)
	}

	raw2 := string(msgs[1].Raw)
	if !strings.HasPrefix(raw2, "Subject: Two\n") || !strings.Contains(raw2, "\n\nBody2\n") {
		t.Errorf("unexpected msg2 raw:\n%s", raw2)
	}
	want := time.Date(2024, 1, 2, 0, 0, 1, 0, time.UTC)
	if !msgs[1].Date().Equal(want) {
		t.Errorf("Date() = %v, want %v", msgs[1].Date(), want)
	}
}

func TestReader_Next_SkipsPreamble(t *testing.T) {
	data := "garbage before the first separator\n\n" +
		"From a@example.com Mon Jan 1 00:00:00 2024\nSubject: x\n\nbody\n"
	msgs := readAll(t, NewReader(strings.NewReader(data), 0))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if !strings.HasPrefix(string(msgs[0].Raw), "Subject: x\n") {
		t.Errorf("raw = %q", msgs[0].Raw)
	}
}

func TestReader_Next_EmptyStream(t *testing.T) {
	if _, err := NewReader(strings.NewReader(""), 0).Next(); err != io.EOF {
		t.Fatalf("Next() on empty stream = %v, want io.EOF", err)
	}
}

func TestReader_Next_LongLines(t *testing.T) {
	long := strings.Repeat("x", 200<<10)
	data := "From a@example.com Mon Jan 1 00:00:00 2024\nSubject: " + long + "\n\nbody\n"
	msgs := readAll(t, NewReader(strings.NewReader(data), 0))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if !strings.Contains(string(msgs[0].Raw), long) {
		t.Error("long header line was truncated")
	}
}

func TestReader_Next_EnforcesMaxBytesAndContinues(t *testing.T) {
	data := strings.Join([]string{
		"From a@example.com Mon Jan 1 00:00:00 2024",
		"Subject: big",
		"",
		strings.Repeat("y", 4096),
		"From b@example.com Mon Jan 1 00:00:01 2024",
		"Subject: small",
		"",
		"ok",
		"",
	}, "\n")

	r := NewReader(strings.NewReader(data), 1024)
	if _, err := r.Next(); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("first Next() = %v, want ErrMessageTooLarge", err)
	}
	msg, err := r.Next()
	if err != nil {
		t.Fatalf("second Next(): %v", err)
	}
	if !strings.HasPrefix(string(msg.Raw), "Subject: small") {
		t.Errorf("raw = %q", msg.Raw)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("third Next() = %v, want io.EOF", err)
	}
}

func TestReader_Next_DoesNotSplitOnBodyFrom(t *testing.T) {
	data := strings.Join([]string{
		"From a@example.com Mon Jan 1 00:00:00 2024",
		"Subject: One",
		"",
		"From here on the body talks about things",
		"",
	}, "\n")
	msgs := readAll(t, NewReader(strings.NewReader(data), 0))
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
}

func TestReader_Next_BuiltMbox(t *testing.T) {
	one := email.NewMessage().Subject("one").Body("From the top\nline").Bytes()
	two := email.NewMessage().Subject("two").CRLF().Bytes()

	msgs := readAll(t, NewReader(strings.NewReader(string(email.Mbox(one, two))), 0))
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if !strings.Contains(string(msgs[0].Raw), "\nFrom the top\n") {
		t.Errorf("escaped body line not restored:\n%s", msgs[0].Raw)
	}
	if !strings.Contains(string(msgs[1].Raw), "Subject: two\r\n") {
		t.Errorf("CRLF line endings not preserved:\n%q", msgs[1].Raw)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		data string
		ok   bool
	}{
		{"separator", "From a@b Mon Jan 1 00:00:00 2024\nSubject: x\n", true},
		{"leading blank lines", "\n\nFrom a@b Mon Jan 1 00:00:00 2024 remote from x\n", true},
		{"rfc 5322 message", "From: a@b\nSubject: x\n\nFrom a@b Mon Jan 1 00:00:00 2024\n", false},
		{"empty", "", false},
		{"text", "hello world\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(strings.NewReader(tt.data), 1<<20)
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

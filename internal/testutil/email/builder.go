// Package email provides test helpers for constructing raw RFC 5322
// messages and the MBOX, Maildir and .emlx containers that hold them.
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// MessageBuilder constructs raw messages with a fluent API.
// By default, messages use \n line endings matching Go raw string literals.
type MessageBuilder struct {
	from       string
	to         string
	cc         string
	bcc        string
	subject    string
	date       string
	messageID  string
	body       string
	headerKeys []string
	headerVals []string
	crlf       bool // if true, use \r\n line endings
}

// NewMessage creates a MessageBuilder with sensible defaults.
func NewMessage() *MessageBuilder {
	return &MessageBuilder{
		from:    "sender@example.com",
		to:      "recipient@example.com",
		date:    "Mon, 01 Jan 2024 12:00:00 +0000",
		subject: "Test Message",
		body:    "This is a test message body.",
	}
}

// From sets the From header. An empty value omits it.
func (b *MessageBuilder) From(v string) *MessageBuilder { b.from = v; return b }

// To sets the To header. An empty value omits it.
func (b *MessageBuilder) To(v string) *MessageBuilder { b.to = v; return b }

// Cc sets the Cc header.
func (b *MessageBuilder) Cc(v string) *MessageBuilder { b.cc = v; return b }

// Bcc sets the Bcc header.
func (b *MessageBuilder) Bcc(v string) *MessageBuilder { b.bcc = v; return b }

// Subject sets the Subject header.
func (b *MessageBuilder) Subject(v string) *MessageBuilder { b.subject = v; return b }

// Date sets the Date header. An empty value omits it.
func (b *MessageBuilder) Date(v string) *MessageBuilder { b.date = v; return b }

// MessageID sets the Message-ID header (without angle brackets).
func (b *MessageBuilder) MessageID(v string) *MessageBuilder { b.messageID = v; return b }

// Body sets the message body text.
func (b *MessageBuilder) Body(v string) *MessageBuilder { b.body = v; return b }

// Header adds an arbitrary header.
func (b *MessageBuilder) Header(key, value string) *MessageBuilder {
	b.headerKeys = append(b.headerKeys, key)
	b.headerVals = append(b.headerVals, value)
	return b
}

// CRLF switches to \r\n line endings (RFC 5322 compliant).
func (b *MessageBuilder) CRLF() *MessageBuilder { b.crlf = true; return b }

// Bytes builds the complete message.
func (b *MessageBuilder) Bytes() []byte {
	nl := "\n"
	if b.crlf {
		nl = "\r\n"
	}

	var s strings.Builder
	header := func(k, v string) {
		if v != "" {
			s.WriteString(k + ": " + v + nl)
		}
	}
	header("From", b.from)
	header("To", b.to)
	header("Cc", b.cc)
	header("Bcc", b.bcc)
	header("Subject", b.subject)
	header("Date", b.date)
	if b.messageID != "" {
		header("Message-ID", "<"+b.messageID+">")
	}
	for i, k := range b.headerKeys {
		header(k, b.headerVals[i])
	}
	s.WriteString(`Content-Type: text/plain; charset="utf-8"` + nl)
	s.WriteString(nl)
	s.WriteString(strings.ReplaceAll(b.body, "\n", nl) + nl)
	return []byte(s.String())
}

// Mbox joins raw messages into an mboxrd stream. Body lines starting with
// "From " (after any number of '>') are escaped with an extra '>'.
func Mbox(messages ...[]byte) []byte {
	var s strings.Builder
	for i, raw := range messages {
		fmt.Fprintf(&s, "From sender@example.com Mon Jan  1 12:00:%02d 2024\n", i%60)
		for _, line := range strings.SplitAfter(string(raw), "\n") {
			if strings.HasPrefix(strings.TrimLeft(line, ">"), "From ") {
				s.WriteString(">")
			}
			s.WriteString(line)
		}
		if !strings.HasSuffix(s.String(), "\n") {
			s.WriteString("\n")
		}
		s.WriteString("\n")
	}
	return []byte(s.String())
}

// Emlx wraps a raw message in Apple Mail's .emlx container: a byte count
// line, the message, then an XML plist. dateSent is seconds since
// 2001-01-01 UTC; a negative value omits the key.
func Emlx(raw []byte, dateSent float64) []byte {
	var s strings.Builder
	fmt.Fprintf(&s, "%d\n", len(raw))
	s.Write(raw)
	s.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	s.WriteString(`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n")
	s.WriteString(`<plist version="1.0">` + "\n<dict>\n")
	if dateSent >= 0 {
		s.WriteString("\t<key>date-sent</key>\n\t<real>" + strconv.FormatFloat(dateSent, 'f', -1, 64) + "</real>\n")
	}
	s.WriteString("\t<key>flags</key>\n\t<integer>8590195717</integer>\n")
	s.WriteString("</dict>\n</plist>\n")
	return []byte(s.String())
}

// WriteMaildir creates a Maildir (cur, new, tmp) at dir and stores each
// message in cur/. It returns the message paths.
func WriteMaildir(t *testing.T, dir string, messages ...[]byte) []string {
	t.Helper()
	for _, sub := range []string{"cur", "new", "tmp"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatalf("create maildir: %v", err)
		}
	}
	paths := make([]string, len(messages))
	for i, raw := range messages {
		paths[i] = filepath.Join(dir, "cur", fmt.Sprintf("%010d.%d.test:2,S", 1300000000+i, i))
		if err := os.WriteFile(paths[i], raw, 0644); err != nil {
			t.Fatalf("write message: %v", err)
		}
	}
	return paths
}

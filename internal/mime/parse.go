// Package mime extracts the contact-bearing headers of RFC 5322 messages.
//
// Headers are read with go-message, which stops at the end of the header
// block. Address lists it rejects are re-parsed with enmime, whose parser
// tolerates the malformed headers common in old mail.
package mime

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // registers charsets for RFC 2047 names
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime"
	"github.com/wesm/mailcontacts/internal/textutil"
)

// AddressHeaders are the headers whose addresses become contacts.
var AddressHeaders = []string{"From", "To", "Cc", "Bcc"}

// Message holds the parsed headers of a message.
type Message struct {
	MessageID string
	Date      time.Time // zero if absent or unparseable
	From      []Address
	To        []Address
	Cc        []Address
	Bcc       []Address
	Errors    []string // non-fatal parsing errors
}

// Address is a mailbox from an address header, as written in the header.
type Address struct {
	Name  string
	Email string
}

// Addresses returns every address of the message in header order
// (From, To, Cc, Bcc).
func (m *Message) Addresses() []Address {
	out := make([]Address, 0, len(m.From)+len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.From...)
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	out = append(out, m.Bcc...)
	return out
}

func (m *Message) list(header string) *[]Address {
	switch header {
	case "From":
		return &m.From
	case "To":
		return &m.To
	case "Cc":
		return &m.Cc
	case "Bcc":
		return &m.Bcc
	}
	return nil
}

// ParseHeaders parses the header block of a raw message.
func ParseHeaders(raw []byte) (*Message, error) {
	th, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		msg, envErr := parseEnvelope(raw)
		if envErr != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		msg.Errors = append(msg.Errors, fmt.Sprintf("header: %v", err))
		return msg, nil
	}
	h := mail.Header{Header: message.Header{Header: th}}

	msg := &Message{
		MessageID: messageID(h.Get("Message-Id")),
		Date:      parseDate(h.Get("Date")),
	}

	var env *enmime.Envelope
	for _, name := range AddressHeaders {
		if !h.Has(name) {
			continue
		}
		list, err := h.AddressList(name)
		if err == nil {
			*msg.list(name) = convert(list)
			continue
		}

		// Fall back to enmime's more forgiving parser.
		if env == nil {
			env, err = enmime.ReadEnvelope(bytes.NewReader(raw))
			if err != nil {
				msg.Errors = append(msg.Errors, fmt.Sprintf("%s: %v", name, err))
				continue
			}
		}
		list, err = env.AddressList(name)
		if err != nil {
			msg.Errors = append(msg.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		*msg.list(name) = convert(list)
	}
	return msg, nil
}

// parseEnvelope parses the whole message with enmime.
func parseEnvelope(raw []byte) (*Message, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	msg := &Message{
		MessageID: messageID(env.GetHeader("Message-ID")),
		Date:      parseDate(env.GetHeader("Date")),
	}
	for _, name := range AddressHeaders {
		list, err := env.AddressList(name)
		if err != nil {
			if !errors.Is(err, netmail.ErrHeaderNotPresent) {
				msg.Errors = append(msg.Errors, fmt.Sprintf("%s: %v", name, err))
			}
			continue
		}
		*msg.list(name) = convert(list)
	}
	for _, e := range env.Errors {
		msg.Errors = append(msg.Errors, e.Error())
	}
	return msg, nil
}

func convert(list []*mail.Address) []Address {
	out := make([]Address, 0, len(list))
	for _, a := range list {
		if a == nil || a.Address == "" {
			continue
		}
		out = append(out, Address{
			Name:  textutil.EnsureUTF8(strings.TrimSpace(a.Name)),
			Email: textutil.EnsureUTF8(a.Address),
		})
	}
	return out
}

// messageID returns the Message-ID without angle brackets or whitespace.
func messageID(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "<")
	v = strings.TrimSuffix(v, ">")
	return strings.TrimSpace(v)
}

// dateFormats lists common email date formats for parseDate.
var dateFormats = []string{
	time.RFC1123Z,                    // "Mon, 02 Jan 2006 15:04:05 -0700"
	time.RFC1123,                     // "Mon, 02 Jan 2006 15:04:05 MST"
	"Mon, 2 Jan 2006 15:04:05 -0700", // Single-digit day
	"Mon, 2 Jan 2006 15:04:05 MST",   // Single-digit day with named TZ
	"2 Jan 2006 15:04:05 -0700",      // No weekday
	"2 Jan 2006 15:04:05 MST",        // No weekday, named TZ
	"Mon, 2 Jan 2006 15:04 -0700",    // No seconds
	time.RFC822Z,                     // "02 Jan 06 15:04 -0700"
	time.RFC822,                      // "02 Jan 06 15:04 MST"
	time.RFC850,                      // "Monday, 02-Jan-06 15:04:05 MST"
	time.ANSIC,                       // "Mon Jan _2 15:04:05 2006"
	time.UnixDate,                    // "Mon Jan _2 15:04:05 MST 2006"
	time.RFC3339,                     // "2006-01-02T15:04:05Z07:00"
	"2006-01-02 15:04:05 -0700",      // SQL-like format
	"2006-01-02 15:04:05",            // SQL-like without TZ
}

// parseDate parses a Date header leniently. The time keeps the header's zone
// so its calendar date is the sender's. Returns the zero time if no format
// matches.
func parseDate(s string) time.Time {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return time.Time{}
	}

	// Strip a trailing comment such as "(UTC)" or "(PST)".
	if idx := strings.LastIndex(s, "("); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}

	if t, err := netmail.ParseDate(s); err == nil {
		return t
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Package emlx parses Apple Mail .emlx files.
//
// An .emlx file stores one message:
//   - Line 1: decimal byte count of the raw MIME content
//   - Next N bytes: raw RFC 5322 message
//   - Remainder (optional): XML property list with Apple Mail metadata
package emlx

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"howett.net/plist"
)

// appleEpoch is the reference date of plist date-sent values.
var appleEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

// Message is a parsed .emlx file.
type Message struct {
	// Raw is the RFC 5322 content.
	Raw []byte

	// DateSent is the plist date-sent value in UTC, zero if the plist is
	// missing, malformed, or lacks the key.
	DateSent time.Time
}

// IsMessageFile reports whether name is an .emlx message. This includes
// Apple Mail's .partial.emlx files, whose headers are complete even when
// attachments were not downloaded.
func IsMessageFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".emlx")
}

// Parse parses an .emlx file from its raw bytes.
func Parse(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("emlx: empty file")
	}

	newline := bytes.IndexByte(data, '\n')
	if newline < 0 {
		return nil, fmt.Errorf("emlx: no newline after byte count")
	}
	countStr := strings.TrimSpace(string(data[:newline]))
	count, err := strconv.ParseInt(countStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("emlx: invalid byte count %q: %w", countStr, err)
	}
	if count < 0 {
		return nil, fmt.Errorf("emlx: negative byte count %d", count)
	}

	start := int64(newline + 1)
	end := start + count
	if end > int64(len(data)) {
		return nil, fmt.Errorf("emlx: byte count %d exceeds file size (available: %d)",
			count, int64(len(data))-start)
	}

	msg := &Message{Raw: data[start:end]}
	if end < int64(len(data)) {
		msg.readMetadata(data[end:])
	}
	return msg, nil
}

// ParseFile reads and parses an .emlx file from disk.
func ParseFile(path string) (*Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("emlx: read %q: %w", path, err)
	}
	return Parse(data)
}

// readMetadata decodes the trailing plist. Metadata is best-effort: a
// malformed plist leaves the fields zero.
func (m *Message) readMetadata(data []byte) {
	start := bytes.Index(data, []byte("<?xml"))
	if start < 0 {
		start = bytes.Index(data, []byte("<plist"))
	}
	if start < 0 {
		return
	}

	var meta map[string]interface{}
	if _, err := plist.Unmarshal(data[start:], &meta); err != nil {
		return
	}

	switch v := meta["date-sent"].(type) {
	case float64:
		m.DateSent = appleEpoch.Add(time.Duration(v * float64(time.Second)))
	case uint64:
		m.DateSent = appleEpoch.Add(time.Duration(v) * time.Second)
	case int64:
		m.DateSent = appleEpoch.Add(time.Duration(v) * time.Second)
	}
}

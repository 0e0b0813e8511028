// Package mbox implements a streaming reader for MBOX files.
//
// Each message is preceded by a Unix "From " separator line. Body lines that
// begin with "From " (after any number of '>') are escaped on write by
// prefixing one more '>' (mboxrd); the reader removes a single leading '>'
// from any line matching ^>+From . Pure mboxo exports only ever escape
// "From ", so unescaping them this way is lossless for the headers we read.
package mbox

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
)

const maxLineBytes = 32 << 20 // 32 MiB

// ErrMessageTooLarge is returned by Next for a message over the size limit.
// The reader stays positioned on the following message.
var ErrMessageTooLarge = errors.New("mbox message exceeds max size")

var fromPrefix = []byte("From ")

// Message is a single message from an MBOX file.
type Message struct {
	Separator Separator

	// Raw is the RFC 5322 message (headers and body) without the separator
	// line. Line endings are preserved as found in the file.
	Raw []byte
}

// Date returns the separator date, the fallback for a message without a
// usable Date header.
func (m *Message) Date() time.Time {
	return m.Separator.Date
}

// Reader reads messages from an MBOX stream one at a time.
type Reader struct {
	br       *bufio.Reader
	next     Separator // separator of the message Next returns
	haveNext bool
	eof      bool
	maxBytes int64
}

// NewReader creates a reader that rejects messages larger than maxBytes.
// If maxBytes <= 0, no limit is enforced.
func NewReader(r io.Reader, maxBytes int64) *Reader {
	return &Reader{
		br:       bufio.NewReaderSize(r, 64<<10),
		maxBytes: maxBytes,
	}
}

// Next returns the next message, or io.EOF when there are no more.
// Text before the first separator is skipped.
func (r *Reader) Next() (*Message, error) {
	if r.eof && !r.haveNext {
		return nil, io.EOF
	}

	for !r.haveNext {
		line, err := r.readLine()
		if err != nil && err != io.EOF {
			return nil, err
		}
		if sep, ok := parseSeparatorLine(line); ok {
			r.next, r.haveNext = sep, true
			break
		}
		if err == io.EOF {
			r.eof = true
			return nil, io.EOF
		}
	}

	msg := &Message{Separator: r.next}
	r.haveNext = false

	var raw bytes.Buffer
	tooLarge := false
	for !r.eof {
		line, err := r.readLine()
		if err != nil && err != io.EOF {
			return nil, err
		}
		if err == io.EOF {
			r.eof = true
		}
		if len(line) == 0 {
			continue
		}
		if sep, ok := parseSeparatorLine(line); ok {
			r.next, r.haveNext = sep, true
			break
		}
		if tooLarge {
			continue
		}
		line = unescapeFrom(line)
		if r.maxBytes > 0 && int64(raw.Len()+len(line)) > r.maxBytes {
			tooLarge = true
			raw.Reset()
			continue
		}
		raw.Write(line)
	}

	if tooLarge {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrMessageTooLarge, r.maxBytes)
	}
	msg.Raw = raw.Bytes()
	return msg, nil
}

// readLine returns the next line including its terminator. Lines longer than
// the bufio buffer are accumulated.
func (r *Reader) readLine() ([]byte, error) {
	var out []byte
	for {
		b, err := r.br.ReadSlice('\n')
		out = append(out, b...)
		if len(out) > maxLineBytes {
			return nil, fmt.Errorf("mbox line exceeds max length (%d bytes)", maxLineBytes)
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return out, err
	}
}

func parseSeparatorLine(line []byte) (Separator, bool) {
	if !bytes.HasPrefix(line, fromPrefix) {
		return Separator{}, false
	}
	return ParseSeparator(string(line))
}

// unescapeFrom removes one leading '>' from a line matching ^>+From .
func unescapeFrom(line []byte) []byte {
	i := 0
	for i < len(line) && line[i] == '>' {
		i++
	}
	if i > 0 && bytes.HasPrefix(line[i:], fromPrefix) {
		return line[1:]
	}
	return line
}

// Validate reports an error unless the first maxBytes of r contain an mbox
// "From " separator. Leading blank lines are allowed; any other content
// before the first separator means the stream is not an mbox.
func Validate(r io.Reader, maxBytes int64) error {
	if maxBytes <= 0 {
		return fmt.Errorf("maxBytes must be > 0")
	}
	br := bufio.NewReader(io.LimitReader(r, maxBytes))
	for {
		line, err := br.ReadBytes('\n')
		if IsSeparator(line) {
			return nil
		}
		if len(bytes.TrimSpace(line)) > 0 {
			return fmt.Errorf("no \"From \" separator at start of stream (not an mbox file?)")
		}
		if err != nil {
			if err == io.EOF {
				return fmt.Errorf("no \"From \" separators found (not an mbox file?)")
			}
			return err
		}
	}
}

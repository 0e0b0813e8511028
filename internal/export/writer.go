package export

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/wesm/mailcontacts/internal/contacts"
)

const (
	bbdbPreamble  = ";; -*-coding: utf-8-emacs;-*-\n;;; file-version: 6\n"
	bbdbTimestamp = "1970-01-01"
)

// recordFunc renders a single contact.
type recordFunc func(b *strings.Builder, c contacts.Contact)

// emitterFor selects the record renderer and preamble for f. This is the
// only place formats are dispatched on; a new Format needs a case here.
func emitterFor(f Format) (recordFunc, string, error) {
	switch f {
	case Plain:
		return plainRecord, "", nil
	case BBDB:
		return bbdbRecord, bbdbPreamble, nil
	case Wanderlust:
		return wlRecord, "", nil
	case MuttAlias:
		return muttAliasRecord, "", nil
	case MuttAddressBook:
		return muttABRecord, "", nil
	case OrgContact:
		return orgContactRecord, "", nil
	case CSV:
		return csvRecord, "", nil
	}
	return nil, "", fmt.Errorf("%w %s", ErrUnsupportedFormat, f)
}

func plainRecord(b *strings.Builder, c contacts.Contact) {
	if c.Name != "" {
		b.WriteString(c.Name)
		b.WriteByte(' ')
	}
	b.WriteString(c.Address)
	b.WriteByte('\n')
}

func bbdbRecord(b *strings.Builder, c contacts.Contact) {
	first, last := splitName(c.Name)
	fmt.Fprintf(b, "[%s %s nil nil nil nil (%s) ((creation-date . %s) (time-stamp . %s)) nil]\n",
		elispString(first), elispString(last), elispString(c.Address),
		elispString(contacts.FormatDay(c.FirstSeen, bbdbTimestamp)),
		elispString(bbdbTimestamp))
}

func wlRecord(b *strings.Builder, c contacts.Contact) {
	fmt.Fprintf(b, "%s %s %s\n", c.Address, elispString(Alias(c)), elispString(nameOrAddress(c)))
}

func muttAliasRecord(b *strings.Builder, c contacts.Contact) {
	fmt.Fprintf(b, "alias %s %s <%s>\n", Alias(c), nameOrAddress(c), c.Address)
}

func muttABRecord(b *strings.Builder, c contacts.Contact) {
	fmt.Fprintf(b, "%s\t%s\t\n", c.Address, c.Name)
}

func orgContactRecord(b *strings.Builder, c contacts.Contact) {
	fmt.Fprintf(b, "* %s\n:PROPERTIES:\n:EMAIL: %s\n:END:\n\n", nameOrAddress(c), c.Address)
}

func csvRecord(b *strings.Builder, c contacts.Contact) {
	fmt.Fprintf(b, "%s,%s\n", c.Name, c.Address)
}

// Writer streams contacts to an io.Writer in one format, one record per
// Write call. Nothing is written until the first record, so an empty
// result produces empty output in every format.
type Writer struct {
	w        io.Writer
	format   Format
	record   recordFunc
	preamble string
	buf      strings.Builder
	count    int
}

// NewWriter returns a Writer for f. An unknown format fails here, before
// any output.
func NewWriter(w io.Writer, f Format) (*Writer, error) {
	record, preamble, err := emitterFor(f)
	if err != nil {
		return nil, err
	}
	return &Writer{w: w, format: f, record: record, preamble: preamble}, nil
}

// Write renders one contact. A write error on the underlying writer is
// returned as-is and the Writer should not be used further.
func (w *Writer) Write(c contacts.Contact) error {
	w.buf.Reset()
	if w.count == 0 {
		w.buf.WriteString(w.preamble)
	}
	w.record(&w.buf, c)
	if _, err := io.WriteString(w.w, w.buf.String()); err != nil {
		return fmt.Errorf("write %s record: %w", w.format, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.count
}

// WriteAll renders every contact of seq to out and returns the record count.
func WriteAll(out io.Writer, f Format, seq iter.Seq[contacts.Contact]) (int, error) {
	w, err := NewWriter(out, f)
	if err != nil {
		return 0, err
	}
	for c := range seq {
		if err := w.Write(c); err != nil {
			return w.Count(), err
		}
	}
	return w.Count(), nil
}

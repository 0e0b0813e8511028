// Package importer turns mail on disk into contact observations.
//
// Index discovers message files, parses their headers concurrently, and
// merges the observations into a contacts.Cache one message at a time in
// discovery order, so a given tree always produces the same cache.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/mailcontacts/internal/contacts"
	"github.com/wesm/mailcontacts/internal/emlx"
	"github.com/wesm/mailcontacts/internal/mbox"
	"github.com/wesm/mailcontacts/internal/mime"
)

const defaultMaxMessageBytes int64 = 128 << 20 // 128 MiB

// Options configures Index.
type Options struct {
	// Workers bounds how many files are parsed at once.
	// Defaults to GOMAXPROCS.
	Workers int

	// MaxMessageBytes limits the size of a single message.
	// Defaults to 128 MiB.
	MaxMessageBytes int64

	// Logger is optional; defaults to slog.Default().
	Logger *slog.Logger

	// Progress, if set, is called after each source is parsed. Calls are
	// serialized.
	Progress func(Progress)
}

// Progress reports how far parsing has got.
type Progress struct {
	SourcesDone  int
	SourcesTotal int
	Messages     int
}

// Summary reports the results of an Index run.
type Summary struct {
	Sources          int
	MessagesSeen     int // messages read from sources
	MessagesIndexed  int // messages merged into the cache
	MessagesSkipped  int // messages already recorded in the cache
	Observations     int // observations merged
	InvalidAddresses int // observations rejected by the cache
	Errors           int // unreadable files and messages
	Duration         time.Duration
}

// message is what indexing keeps of a parsed message.
type message struct {
	key      string
	date     time.Time
	addrs    []mime.Address
	problems []string // header parse errors that dropped addresses
}

// sourceResult holds the parsed messages of one source.
type sourceResult struct {
	messages []message
	errors   int
}

// Index discovers the messages under paths and merges their addresses into
// cache. The cache is only modified after every source has been parsed;
// if ctx is cancelled first, Index returns the context error and leaves the
// cache untouched.
func Index(ctx context.Context, cache *contacts.Cache, paths []string, opts Options) (*Summary, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = defaultMaxMessageBytes
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	start := time.Now()
	sources, err := Discover(paths)
	if err != nil {
		return nil, err
	}
	log.Debug("discovered sources", "count", len(sources))

	results := make([]sourceResult, len(sources))

	var (
		mu       sync.Mutex
		done     int
		messages int
	)
	report := func(n int) {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		messages += n
		opts.Progress(Progress{SourcesDone: done, SourcesTotal: len(sources), Messages: messages})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := parseSource(gctx, src, opts.MaxMessageBytes, log)
			if err != nil {
				return err
			}
			results[i] = res
			report(len(res.messages))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{Sources: len(sources)}
	for _, res := range results {
		summary.Errors += res.errors
		for _, m := range res.messages {
			summary.MessagesSeen++
			if !cache.MarkIndexed(m.key) {
				summary.MessagesSkipped++
				continue
			}
			summary.MessagesIndexed++
			for _, a := range m.addrs {
				err := cache.Merge(contacts.Observation{Name: a.Name, Address: a.Email, Date: m.date})
				if errors.Is(err, contacts.ErrInvalidAddress) {
					summary.InvalidAddresses++
					log.Warn("skipping invalid address", "address", a.Email, "message", m.key)
					continue
				}
				if err != nil {
					return nil, err
				}
				summary.Observations++
			}
		}
	}
	summary.Duration = time.Since(start)

	log.Info("index complete",
		"sources", summary.Sources,
		"indexed", summary.MessagesIndexed,
		"skipped", summary.MessagesSkipped,
		"errors", summary.Errors,
		"contacts", cache.Len(),
		"duration", summary.Duration.Round(time.Millisecond),
	)
	return summary, nil
}

// parseSource reads every message of src. Unreadable messages are logged
// and counted; only context cancellation aborts.
func parseSource(ctx context.Context, src Source, maxBytes int64, log *slog.Logger) (sourceResult, error) {
	var res sourceResult
	fail := func(err error) {
		res.errors++
		log.Warn("skipping unreadable message", "path", src.Path, "kind", src.Kind, "error", err)
	}
	keep := func(m message) {
		for _, p := range m.problems {
			log.Warn("unparsed address header", "path", src.Path, "message", m.key, "error", p)
		}
		res.messages = append(res.messages, m)
	}

	fi, err := os.Stat(src.Path)
	if err != nil {
		fail(err)
		return res, nil
	}
	mtime := fi.ModTime().UTC() // file times carry no sender zone

	switch src.Kind {
	case KindMbox:
		f, err := os.Open(src.Path)
		if err != nil {
			fail(err)
			return res, nil
		}
		defer f.Close()

		r := mbox.NewReader(f, maxBytes)
		for {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			msg, err := r.Next()
			if err == io.EOF {
				break
			}
			if errors.Is(err, mbox.ErrMessageTooLarge) {
				fail(err)
				continue
			}
			if err != nil {
				fail(err)
				break
			}
			m, err := parseMessage(msg.Raw, msg.Date(), mtime)
			if err != nil {
				fail(err)
				continue
			}
			keep(m)
		}

	case KindEmlx, KindMessage:
		if fi.Size() > maxBytes {
			fail(fmt.Errorf("file size %d exceeds limit %d", fi.Size(), maxBytes))
			return res, nil
		}
		var (
			raw      []byte
			fallback time.Time
		)
		if src.Kind == KindEmlx {
			em, err := emlx.ParseFile(src.Path)
			if err != nil {
				fail(err)
				return res, nil
			}
			raw, fallback = em.Raw, em.DateSent
		} else if raw, err = os.ReadFile(src.Path); err != nil {
			fail(err)
			return res, nil
		}
		m, err := parseMessage(raw, fallback, mtime)
		if err != nil {
			fail(err)
			return res, nil
		}
		keep(m)
	}
	return res, nil
}

// parseMessage extracts the key, date and distinct addresses of a message.
// The date is the Date header, else the first non-zero fallback.
func parseMessage(raw []byte, fallbacks ...time.Time) (message, error) {
	parsed, err := mime.ParseHeaders(raw)
	if err != nil {
		return message{}, err
	}

	m := message{key: MessageKey(parsed.MessageID, raw), date: parsed.Date, problems: parsed.Errors}
	for _, fb := range fallbacks {
		if !m.date.IsZero() {
			break
		}
		m.date = fb
	}

	// Frequency counts messages, so an address appearing in both From and
	// Cc is observed once, with the first name it carries.
	seen := make(map[string]int)
	for _, a := range parsed.Addresses() {
		key, err := contacts.Normalize(a.Email)
		if err != nil {
			m.addrs = append(m.addrs, a)
			continue
		}
		if i, ok := seen[key]; ok {
			if m.addrs[i].Name == "" {
				m.addrs[i].Name = a.Name
			}
			continue
		}
		seen[key] = len(m.addrs)
		m.addrs = append(m.addrs, a)
	}
	return m, nil
}

// MessageKey identifies a message across runs: its Message-ID, or a hash of
// its raw bytes when it has none.
func MessageKey(messageID string, raw []byte) string {
	if messageID != "" {
		return "id:" + messageID
	}
	sum := sha256.Sum256(raw)
	return "sha256:" + hex.EncodeToString(sum[:])
}

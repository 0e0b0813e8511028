package importer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/wesm/mailcontacts/internal/emlx"
	"github.com/wesm/mailcontacts/internal/mbox"
)

// Kind identifies how a source file stores messages.
type Kind int

const (
	// KindMessage is a file holding a single RFC 5322 message, as found in
	// Maildir cur/ and new/ directories or saved as .eml.
	KindMessage Kind = iota
	// KindMbox is an MBOX file holding many messages.
	KindMbox
	// KindEmlx is an Apple Mail .emlx file.
	KindEmlx
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindMbox:
		return "mbox"
	case KindEmlx:
		return "emlx"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Source is a file discovered for indexing.
type Source struct {
	Path string
	Kind Kind
}

// sniffBytes is how much of a file classification reads.
const sniffBytes = 8 << 10

// Discover expands paths into the message files below them, in lexical
// walk order. Directories are walked recursively; hidden entries and
// Maildir tmp/ directories are skipped, as are files that are neither mbox
// nor RFC 5322. A path that does not exist is an error.
func Discover(paths []string) ([]Source, error) {
	var out []Source
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", root, err)
		}
		if !info.IsDir() {
			src, ok, err := classify(root)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, src)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if d.Name() == "tmp" && isMaildir(filepath.Dir(path)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			src, ok, err := classify(path)
			if err != nil {
				return err
			}
			if ok {
				out = append(out, src)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}
	return out, nil
}

// isMaildir reports whether dir has the cur/ and new/ subdirectories of a
// Maildir.
func isMaildir(dir string) bool {
	for _, sub := range []string{"cur", "new"} {
		fi, err := os.Stat(filepath.Join(dir, sub))
		if err != nil || !fi.IsDir() {
			return false
		}
	}
	return true
}

// classify decides the Kind of a file from its name and first bytes.
func classify(path string) (Source, bool, error) {
	if emlx.IsMessageFile(path) {
		return Source{Path: path, Kind: KindEmlx}, true, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Source{}, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(f, head)
	if n == 0 {
		// Empty or unreadable files hold no messages.
		return Source{}, false, nil
	}
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Source{}, false, fmt.Errorf("read %s: %w", path, err)
	}
	head = head[:n]

	if mbox.Validate(bytes.NewReader(head), int64(n)) == nil {
		return Source{Path: path, Kind: KindMbox}, true, nil
	}
	if looksLikeHeader(head) {
		return Source{Path: path, Kind: KindMessage}, true, nil
	}
	return Source{}, false, nil
}

// looksLikeHeader reports whether data starts with an RFC 5322 header field.
func looksLikeHeader(data []byte) bool {
	line, err := bufio.NewReader(bytes.NewReader(data)).ReadSlice('\n')
	if err != nil && !errors.Is(err, bufio.ErrBufferFull) && len(line) == 0 {
		return false
	}
	name, _, ok := bytes.Cut(line, []byte(":"))
	if !ok || len(name) == 0 {
		return false
	}
	for _, c := range name {
		// Field names are printable US-ASCII except colon and space.
		if c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}

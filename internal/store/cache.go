package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/wesm/mailcontacts/internal/contacts"
	"github.com/wesm/mailcontacts/internal/fileutil"
)

// LoadCache reads the contact cache stored at path. A missing file yields an
// empty cache. Malformed content is reported as ErrCacheCorrupt and any
// other failure as ErrCacheIO; no partially read cache is ever returned.
func LoadCache(path string) (*contacts.Cache, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return contacts.NewCache(), nil
	}
	if err != nil {
		return nil, classify("stat", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrCacheIO, path)
	}

	s, err := openExisting(path)
	if err != nil {
		return nil, classify("open", path, err)
	}
	defer s.Close()

	if err := s.checkSchema(); err != nil {
		return nil, err
	}
	c, err := s.readCache()
	if err != nil {
		return nil, classify("read", path, err)
	}
	return c, nil
}

// ReadStats reports statistics for the cache at path without loading it.
// A missing file yields zero stats.
func ReadStats(path string) (*Stats, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return &Stats{}, nil
	}
	s, err := openExisting(path)
	if err != nil {
		return nil, classify("open", path, err)
	}
	defer s.Close()

	if err := s.checkSchema(); err != nil {
		return nil, err
	}
	stats, err := s.GetStats()
	if err != nil {
		return nil, classify("stats", path, err)
	}
	return stats, nil
}

// SaveCache writes c to path. The cache is written to a temporary file in the
// same directory and renamed over path, so readers see either the previous
// cache or the new one.
func SaveCache(path string, c *contacts.Cache) error {
	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return classify("remove", tmp, err)
	}

	if err := writeCacheFile(tmp, c); err != nil {
		_ = os.Remove(tmp)
		return classify("write", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return classify("rename", path, err)
	}
	return nil
}

func writeCacheFile(path string, c *contacts.Cache) error {
	s, err := Open(path)
	if err != nil {
		return err
	}
	if err := s.InitSchema(); err != nil {
		s.Close()
		return err
	}
	if err := s.writeCache(c); err != nil {
		s.Close()
		return err
	}
	if err := s.Close(); err != nil {
		return err
	}
	return fileutil.ChmodPrivate(path)
}

// writeCache replaces the stored contacts and message keys with those of c.
func (s *Store) writeCache(c *contacts.Cache) error {
	var list []contacts.Contact
	for ct := range c.All() {
		list = append(list, ct)
	}
	var keys []string
	for k := range c.IndexedKeys() {
		keys = append(keys, k)
	}

	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM contacts"); err != nil {
			return fmt.Errorf("clear contacts: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM indexed_messages"); err != nil {
			return fmt.Errorf("clear indexed messages: %w", err)
		}

		err := insertInChunks(tx, len(list), 6,
			"INSERT INTO contacts (seq, address, name, first_seen, last_seen, frequency) VALUES ",
			func(start, end int) ([]string, []interface{}) {
				values := make([]string, 0, end-start)
				args := make([]interface{}, 0, (end-start)*6)
				for i := start; i < end; i++ {
					ct := list[i]
					values = append(values, "(?, ?, ?, ?, ?, ?)")
					args = append(args, i+1, ct.Address, ct.Name,
						contacts.FormatDay(ct.FirstSeen, ""),
						contacts.FormatDay(ct.LastSeen, ""),
						ct.Frequency)
				}
				return values, args
			})
		if err != nil {
			return fmt.Errorf("insert contacts: %w", err)
		}

		err = insertInChunks(tx, len(keys), 2,
			"INSERT INTO indexed_messages (seq, message_key) VALUES ",
			func(start, end int) ([]string, []interface{}) {
				values := make([]string, 0, end-start)
				args := make([]interface{}, 0, (end-start)*2)
				for i := start; i < end; i++ {
					values = append(values, "(?, ?)")
					args = append(args, i+1, keys[i])
				}
				return values, args
			})
		if err != nil {
			return fmt.Errorf("insert indexed messages: %w", err)
		}
		return nil
	})
}

// readCache loads every stored contact and message key in insertion order.
func (s *Store) readCache() (*contacts.Cache, error) {
	c := contacts.NewCache()

	rows, err := s.db.Query("SELECT address, name, first_seen, last_seen, frequency FROM contacts ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ct contacts.Contact
		var firstSeen, lastSeen string
		if err := rows.Scan(&ct.Address, &ct.Name, &firstSeen, &lastSeen, &ct.Frequency); err != nil {
			return nil, fmt.Errorf("%w: scan contact: %w", ErrCacheCorrupt, err)
		}
		if ct.FirstSeen, err = parseDay(firstSeen); err != nil {
			return nil, fmt.Errorf("%w: contact %s: first_seen: %w", ErrCacheCorrupt, ct.Address, err)
		}
		if ct.LastSeen, err = parseDay(lastSeen); err != nil {
			return nil, fmt.Errorf("%w: contact %s: last_seen: %w", ErrCacheCorrupt, ct.Address, err)
		}
		if err := c.Insert(ct); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCacheCorrupt, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}

	keyRows, err := s.db.Query("SELECT message_key FROM indexed_messages ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query indexed messages: %w", err)
	}
	defer keyRows.Close()

	for keyRows.Next() {
		var key string
		if err := keyRows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: scan message key: %w", ErrCacheCorrupt, err)
		}
		c.MarkIndexed(key)
	}
	if err := keyRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate indexed messages: %w", err)
	}

	return c, nil
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(contacts.DateLayout, s)
}

// Package store persists the contact cache in a SQLite file.
package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/wesm/mailcontacts/internal/fileutil"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version. A file with any other
// version is treated as corrupt rather than migrated.
const schemaVersion = 1

var (
	// ErrCacheCorrupt is returned when the cache file exists but does not
	// hold a well-formed contact cache.
	ErrCacheCorrupt = errors.New("contact cache corrupt")

	// ErrCacheIO is returned when the cache file cannot be read or written.
	ErrCacheIO = errors.New("contact cache I/O error")
)

// Store is an open cache database.
type Store struct {
	db     *sql.DB
	dbPath string
}

const defaultSQLiteParams = "_busy_timeout=5000&_foreign_keys=ON"

// fileURI returns a SQLite file: URI for dbPath with the given query. The
// path is escaped so that '?', '#' and '%' in directory names reach SQLite
// as part of the filename.
func fileURI(dbPath, query string) (string, error) {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return "", err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // Windows drive paths
	}
	return (&url.URL{Scheme: "file", Path: p, RawQuery: query}).String(), nil
}

// sqliteCode returns the primary result code of a sqlite3 error, or 0.
// Handles both value (sqlite3.Error) and pointer (*sqlite3.Error) forms.
func sqliteCode(err error) sqlite3.ErrNo {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return sqliteErrPtr.Code
	}
	return 0
}

// isCorruption reports whether err means the file is not a usable database.
func isCorruption(err error) bool {
	switch sqliteCode(err) {
	case sqlite3.ErrCorrupt, sqlite3.ErrNotADB, sqlite3.ErrFormat:
		return true
	}
	return false
}

// classify wraps err with ErrCacheCorrupt or ErrCacheIO.
func classify(op, path string, err error) error {
	if errors.Is(err, ErrCacheCorrupt) || errors.Is(err, ErrCacheIO) {
		return err
	}
	if isCorruption(err) {
		return fmt.Errorf("%w: %s %s: %w", ErrCacheCorrupt, op, path, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrCacheIO, op, path, err)
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := fileutil.MkdirPrivate(dir); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn, err := fileURI(dbPath, defaultSQLiteParams)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	return open(dbPath, dsn)
}

// openExisting opens an existing database read-only without creating it.
func openExisting(dbPath string) (*Store, error) {
	dsn, err := fileURI(dbPath, defaultSQLiteParams+"&mode=ro")
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}
	return open(dbPath, dsn)
}

func open(dbPath, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps PRAGMAs and transactions on the same handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// withTx executes fn within a database transaction. If fn returns an error,
// the transaction is rolled back; otherwise it is committed.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// insertInChunks executes a multi-value INSERT in chunks to stay within SQLite's
// parameter limit (999). The valuesPerRow specifies how many parameters are in
// each VALUES tuple (e.g., 4 for "(?, ?, ?, ?)"). The valueBuilder function
// generates the VALUES placeholders and args for each chunk of indices.
func insertInChunks(tx *sql.Tx, totalRows int, valuesPerRow int, queryPrefix string, valueBuilder func(start, end int) ([]string, []interface{})) error {
	const maxParams = 900
	chunkSize := maxParams / valuesPerRow
	if chunkSize < 1 {
		chunkSize = 1
	}

	for i := 0; i < totalRows; i += chunkSize {
		end := i + chunkSize
		if end > totalRows {
			end = totalRows
		}

		values, args := valueBuilder(i, end)
		query := queryPrefix + strings.Join(values, ",")
		if _, err := tx.Exec(query, args...); err != nil {
			return err
		}
	}
	return nil
}

// InitSchema creates the cache tables if they don't exist and stamps the
// schema version.
func (s *Store) InitSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema.sql: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// checkSchema verifies that the database is intact and carries the expected
// schema. Any mismatch is reported as ErrCacheCorrupt.
func (s *Store) checkSchema() error {
	var result string
	if err := s.db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return classify("check", s.dbPath, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s: integrity check: %s", ErrCacheCorrupt, s.dbPath, result)
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return classify("check", s.dbPath, err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: %s: schema version %d, want %d", ErrCacheCorrupt, s.dbPath, version, schemaVersion)
	}

	for _, table := range []string{"contacts", "indexed_messages"} {
		var n int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
		if err != nil {
			return classify("check", s.dbPath, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s: missing table %s", ErrCacheCorrupt, s.dbPath, table)
		}
	}
	return nil
}

// Stats holds cache statistics.
type Stats struct {
	ContactCount int64
	MessageCount int64
	DatabaseSize int64
}

// GetStats returns statistics about the cache database.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	queries := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM contacts", &stats.ContactCount},
		{"SELECT COUNT(*) FROM indexed_messages", &stats.MessageCount},
	}

	for _, q := range queries {
		if err := s.db.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("get stats %q: %w", q.query, err)
		}
	}

	if info, err := os.Stat(s.dbPath); err == nil {
		stats.DatabaseSize = info.Size()
	}

	return stats, nil
}

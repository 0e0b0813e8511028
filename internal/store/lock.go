package store

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/wesm/mailcontacts/internal/fileutil"
)

// Lock is an advisory cross-process lock guarding a cache file. Indexing
// holds it exclusively for its whole load-merge-save cycle; queries hold it
// shared while loading.
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewLock returns the lock for the cache at cachePath. The lock file is
// <cachePath>.lock.
func NewLock(cachePath string) *Lock {
	lockPath := cachePath + ".lock"
	return &Lock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

func (l *Lock) ensureDir() error {
	if err := fileutil.MkdirPrivate(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	return nil
}

// Lock acquires the exclusive lock, blocking until it is available.
func (l *Lock) Lock() error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire cache lock %s: %w", l.path, err)
	}
	l.locked = true
	return nil
}

// TryLock attempts the exclusive lock without blocking. It reports false if
// another process holds the lock.
func (l *Lock) TryLock() (bool, error) {
	if err := l.ensureDir(); err != nil {
		return false, err
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire cache lock %s: %w", l.path, err)
	}
	l.locked = acquired
	return acquired, nil
}

// RLock acquires the shared lock, blocking while a writer holds the lock.
func (l *Lock) RLock() error {
	if err := l.ensureDir(); err != nil {
		return err
	}
	if err := l.flock.RLock(); err != nil {
		return fmt.Errorf("acquire shared cache lock %s: %w", l.path, err)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. It is safe to call on an unlocked Lock.
func (l *Lock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release cache lock %s: %w", l.path, err)
	}
	return nil
}

// Path returns the path of the lock file.
func (l *Lock) Path() string {
	return l.path
}

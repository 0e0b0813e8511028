package fileutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func assertPermNoMoreThan(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	if runtime.GOOS == "windows" {
		return // permission bits are not meaningful on Windows
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if got := info.Mode().Perm(); got&^want != 0 {
		t.Errorf("%s mode = %o, want no more than %o", path, got, want)
	}
}

func TestMkdirPrivate(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "a", "b", "c")
	if err := MkdirPrivate(dir); err != nil {
		t.Fatalf("MkdirPrivate: %v", err)
	}
	for _, p := range []string{filepath.Join(base, "a"), filepath.Join(base, "a", "b"), dir} {
		assertPermNoMoreThan(t, p, PrivateDirMode)
	}

	// Existing directories are accepted.
	if err := MkdirPrivate(dir); err != nil {
		t.Fatalf("MkdirPrivate on existing dir: %v", err)
	}
}

func TestMkdirPrivate_FileInTheWay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := MkdirPrivate(filepath.Join(path, "sub")); err == nil {
		t.Fatal("MkdirPrivate below a regular file succeeded")
	}
}

func TestChmodPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.db")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ChmodPrivate(path); err != nil {
		t.Fatalf("ChmodPrivate: %v", err)
	}
	assertPermNoMoreThan(t, path, PrivateFileMode)

	if err := ChmodPrivate(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("ChmodPrivate on a missing file succeeded")
	}
}

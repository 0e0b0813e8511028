//go:build !windows

package fileutil

import "os"

// MkdirPrivate creates path and any missing parents with PrivateDirMode.
// Existing directories keep their permissions.
func MkdirPrivate(path string) error {
	return os.MkdirAll(path, PrivateDirMode)
}

// ChmodPrivate sets PrivateFileMode on path.
func ChmodPrivate(path string) error {
	return os.Chmod(path, PrivateFileMode)
}

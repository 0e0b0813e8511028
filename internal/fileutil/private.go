// Package fileutil creates files and directories readable only by the
// current user. The contact cache holds the names and addresses of
// everyone a user has corresponded with, so it is never world-readable.
//
// On Unix the helpers set owner-only permission bits. On Windows they
// additionally set a protected DACL granting access to the current user only.
package fileutil

import "os"

const (
	// PrivateDirMode is the mode of directories created by MkdirPrivate.
	PrivateDirMode os.FileMode = 0700
	// PrivateFileMode is the mode set by ChmodPrivate.
	PrivateFileMode os.FileMode = 0600
)

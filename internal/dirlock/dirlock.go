// Package dirlock guards an output directory against concurrent runs with an
// advisory lock held on a sibling "<dir>.lock" file.
package dirlock

import (
	"errors"
	"path/filepath"
)

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("dirlock: directory is in use by another run")

// Path returns the lock file used for dir. It sits next to dir so that
// clearing and recreating dir does not remove it.
func Path(dir string) string {
	return filepath.Clean(dir) + ".lock"
}

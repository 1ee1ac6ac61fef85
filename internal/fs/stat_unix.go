//go:build unix

package fs

import (
	"io/fs"
	"os"
	"syscall"
)

// ownedByCurrentUser reports whether info belongs to the effective user.
func ownedByCurrentUser(info fs.FileInfo) bool {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}
	return int(stat.Uid) == os.Geteuid()
}

//go:build linux

package cache

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// accessTime returns the file's atime, the LRU signal for capacity
// eviction. Falls back to the modification time if the stat fails (e.g.
// the file raced with a removal).
func accessTime(path string, info fs.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return info.ModTime()
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec)
}

//go:build !linux

package cache

import (
	"io/fs"
	"time"
)

// accessTime falls back to the modification time on platforms where we do
// not read atime directly. Eviction order degrades to write order there,
// which is still a valid (if coarser) LRU approximation for a cache whose
// entries are written on first use.
func accessTime(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}

package cache

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/lumapix/pixcache/fingerprint"
)

// DiskConfig holds configuration for the disk tier.
type DiskConfig struct {
	// RootDir is the directory where cache files are stored.
	RootDir string
	// TTL is the maximum age of a file, measured from its modification
	// time. Files older than TTL are removed lazily on read and during
	// trims. <= 0 disables expiry.
	TTL time.Duration
	// CapacityBytes is the total byte budget. <= 0 disables the
	// capacity pass of Trim (expiry still applies).
	CapacityBytes int64
	// TrimInterval rate-limits background trims triggered by writes.
	// Defaults to 30s. Explicit Trim calls are never rate-limited.
	TrimInterval time.Duration
	// Logger receives debug/warn records for swallowed IO failures.
	// Defaults to a silent logger.
	Logger *slog.Logger
}

// Disk is a scope-partitioned store of compressed image bytes on the local
// filesystem, one file per fingerprint digest under root/<scope>/. The
// filesystem itself is the index: no in-memory state survives beyond
// counters, so concurrent scope removal and reads of other scopes never
// contend on shared structures.
type Disk struct {
	rootDir  string
	ttl      time.Duration
	capacity int64
	logger   *slog.Logger

	// trimSem keeps at most one background trim in flight; trimLimiter
	// spaces them out. Trims are advisory, so skipping one is fine.
	trimSem     *semaphore.Weighted
	trimLimiter *rate.Limiter
	wg          sync.WaitGroup

	hits   atomic.Int64
	misses atomic.Int64
}

// NewDisk creates the disk tier, ensuring the root directory exists.
func NewDisk(cfg DiskConfig) (*Disk, error) {
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, err
	}

	interval := cfg.TrimInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Disk{
		rootDir:     cfg.RootDir,
		ttl:         cfg.TTL,
		capacity:    cfg.CapacityBytes,
		logger:      logger,
		trimSem:     semaphore.NewWeighted(1),
		trimLimiter: rate.NewLimiter(rate.Every(interval), 1),
	}, nil
}

// PathFor returns the deterministic file path for a fingerprint within a
// scope: root/<scope>/<digest>.
func (d *Disk) PathFor(fp fingerprint.Fingerprint, scopeID string) string {
	return filepath.Join(d.rootDir, scopeID, fp.Digest)
}

// Read returns the cached bytes for the fingerprint, or ok=false on miss.
// A file past its TTL is deleted and reported as a miss (lazy expiry).
// Hits bump the file's access time, which is the LRU signal for Trim.
func (d *Disk) Read(fp fingerprint.Fingerprint, scopeID string) ([]byte, bool) {
	path := d.PathFor(fp, scopeID)

	info, err := os.Stat(path)
	if err != nil {
		d.misses.Add(1)
		return nil, false
	}
	if d.expired(info.ModTime(), time.Now()) {
		if err := os.Remove(path); err != nil {
			d.logger.Debug("disk cache: remove expired file", "path", path, "error", err)
		}
		d.misses.Add(1)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		// Raced with removal or unreadable; either way it's a miss.
		d.misses.Add(1)
		return nil, false
	}

	if err := os.Chtimes(path, time.Now(), info.ModTime()); err != nil {
		d.logger.Debug("disk cache: bump access time", "path", path, "error", err)
	}

	d.hits.Add(1)
	return data, true
}

// Write stores bytes for the fingerprint atomically, then schedules a
// background trim. Population is best-effort: any failure is swallowed and
// logged, never surfaced to the caller.
func (d *Disk) Write(data []byte, fp fingerprint.Fingerprint, scopeID string) {
	dir := filepath.Join(d.rootDir, scopeID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.logger.Warn("disk cache: create scope dir", "scope", scopeID, "error", err)
		return
	}

	path := d.PathFor(fp, scopeID)

	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		d.logger.Warn("disk cache: create temp file", "scope", scopeID, "error", err)
		return
	}
	tmpName := tmp.Name()
	defer func() {
		if _, err := os.Stat(tmpName); err == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		d.logger.Warn("disk cache: write", "path", path, "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		d.logger.Warn("disk cache: close temp file", "path", path, "error", err)
		return
	}
	// Rename is the commit point; a concurrent reader sees either the
	// old complete file or the new complete file, never a partial one.
	if err := os.Rename(tmpName, path); err != nil {
		d.logger.Warn("disk cache: rename", "path", path, "error", err)
		return
	}

	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		d.logger.Debug("disk cache: stamp times", "path", path, "error", err)
	}

	d.scheduleTrim()
}

// scheduleTrim starts a background trim unless one is already running or
// the limiter says it is too soon.
func (d *Disk) scheduleTrim() {
	if !d.trimLimiter.Allow() {
		return
	}
	if !d.trimSem.TryAcquire(1) {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.trimSem.Release(1)
		d.Trim()
	}()
}

// Trim removes expired files anywhere under the root (regardless of
// capacity), then, if the remaining total exceeds the byte budget, deletes
// files in ascending access-time order until under budget.
func (d *Disk) Trim() {
	type fileInfo struct {
		path   string
		size   int64
		access time.Time
	}

	now := time.Now()
	var remaining []fileInfo
	var total int64

	err := filepath.WalkDir(d.rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // keep walking past races and permission holes
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		if d.expired(info.ModTime(), now) {
			if err := os.Remove(path); err != nil {
				d.logger.Debug("disk cache: trim expired", "path", path, "error", err)
			}
			return nil
		}
		remaining = append(remaining, fileInfo{
			path:   path,
			size:   info.Size(),
			access: accessTime(path, info),
		})
		total += info.Size()
		return nil
	})
	if err != nil {
		d.logger.Warn("disk cache: trim walk", "error", err)
		return
	}

	if d.capacity <= 0 || total <= d.capacity {
		return
	}

	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].access.Before(remaining[j].access)
	})

	for _, f := range remaining {
		if total <= d.capacity {
			break
		}
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			d.logger.Debug("disk cache: trim evict", "path", f.path, "error", err)
			continue
		}
		// A concurrent trim may have removed the file already; either
		// way it no longer counts against the budget.
		total -= f.size
	}
}

// RemoveScope deletes the scope's entire directory. Failures are
// swallowed. Reads for other scopes touch disjoint directories and may
// proceed concurrently.
func (d *Disk) RemoveScope(scopeID string) {
	if scopeID == "" {
		return
	}
	if err := os.RemoveAll(filepath.Join(d.rootDir, scopeID)); err != nil {
		d.logger.Warn("disk cache: remove scope", "scope", scopeID, "error", err)
	}
}

// Stats returns hit/miss counters.
func (d *Disk) Stats() (hits, misses int64) {
	return d.hits.Load(), d.misses.Load()
}

// Close waits for background trims to finish.
func (d *Disk) Close() error {
	d.wg.Wait()
	return nil
}

func (d *Disk) expired(modTime, now time.Time) bool {
	if d.ttl <= 0 {
		return false
	}
	return now.Sub(modTime) > d.ttl
}

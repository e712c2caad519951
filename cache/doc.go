// Package cache provides the two storage tiers behind the image pipeline.
//
// # Memory tier
//
// Memory is a cost-bounded LRU of decoded bitmaps keyed by
// (scope, digest, variant). Reads bump recency; eviction runs on insert
// until the byte budget is met. A single entry larger than the whole
// budget is still admitted so a just-requested overlay bitmap is never
// silently rejected.
//
// # Disk tier
//
// Disk stores compressed image bytes, one file per digest under a
// per-scope directory (root/<scope>/<digest>). The filesystem is the
// index: modification time drives TTL expiry, access time drives
// LRU eviction. Writes are atomic (temp file + rename) and best-effort;
// a failed cache write never fails the fetch that triggered it.
//
// Each tier has its own mutex and neither calls into the other.
package cache

package pixcache

import (
	"time"

	"github.com/lumapix/pixcache/fingerprint"
)

// Tier names the cache tier that served a hit.
type Tier string

const (
	TierMemory Tier = "memory"
	TierDisk   Tier = "disk"
)

// DecodeSource names where the bytes of a decode came from.
type DecodeSource string

const (
	DecodeSourceDisk    DecodeSource = "disk"
	DecodeSourceNetwork DecodeSource = "network"
)

// Observer receives pipeline lifecycle events. Delivery is synchronous
// with the triggering step and best-effort; implementations must be fast,
// must not block, and must not panic back into the pipeline.
type Observer interface {
	// OnCacheHit is called when a load is served from a cache tier.
	OnCacheHit(digest string, variant fingerprint.Variant, tier Tier)

	// OnCacheMiss is called when no enabled tier can serve a load.
	OnCacheMiss(digest string, variant fingerprint.Variant)

	// OnDownloadCompleted is called after the transport returns.
	OnDownloadCompleted(digest string, variant fingerprint.Variant, duration time.Duration)

	// OnDecodeCompleted is called after a decode finishes.
	OnDecodeCompleted(digest string, variant fingerprint.Variant, duration time.Duration, source DecodeSource)
}

// NoopObserver is a no-op implementation of Observer.
type NoopObserver struct{}

func (NoopObserver) OnCacheHit(digest string, variant fingerprint.Variant, tier Tier) {}
func (NoopObserver) OnCacheMiss(digest string, variant fingerprint.Variant)           {}
func (NoopObserver) OnDownloadCompleted(digest string, variant fingerprint.Variant, duration time.Duration) {
}
func (NoopObserver) OnDecodeCompleted(digest string, variant fingerprint.Variant, duration time.Duration, source DecodeSource) {
}

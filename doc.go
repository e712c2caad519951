// Package pixcache is an image-fetch caching pipeline: given a resource
// locator and a desired rendering size, it returns a decoded,
// correctly-sized bitmap while minimizing redundant network fetches,
// redundant decodes and cross-account data leakage.
//
// Features:
//
//   - Two-tier caching: cost-bounded in-memory LRU of decoded bitmaps,
//     TTL- and size-bounded on-disk store of compressed bytes
//   - Single-flight coalescing: N concurrent requests for the same image
//     issue exactly one fetch
//   - Account-scope isolation with generation-based cancellation: a scope
//     switch cancels all in-flight work and purges the old scope's data
//   - Variant partitioning: pager thumbnails and full-screen overlays
//     never share cache slots
//   - Pluggable transport (HTTP, S3, MinIO) and metrics observers
//     (including a Prometheus adapter)
//
// # Quick start
//
//	pipe, err := pixcache.New(
//	    pixcache.WithMemoryCapacity(256<<20),
//	    pixcache.WithDiskCache(cache.DiskConfig{
//	        RootDir:       "/var/cache/images",
//	        TTL:           24 * time.Hour,
//	        CapacityBytes: 1 << 30,
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pipe.Close()
//
//	bm, err := pipe.LoadImage(ctx, pixcache.LoadRequest{
//	    Locator:      "https://img.example.com/p/42.jpg",
//	    Variant:      fingerprint.VariantPager,
//	    ScopeID:      accountID,
//	    TargetWidth:  320,
//	    TargetHeight: 240,
//	    DisplayScale: 2,
//	    BuildRequest: buildAuthorizedRequest,
//	})
//
// Callers attach authorization inside BuildRequest; credentials never
// participate in cache keys and are never persisted.
//
// # Outcomes
//
// A load ends in exactly one of four states, distinguishable with the
// standard errors helpers: success, cancellation (errors.Is(err,
// pixcache.ErrCanceled)), decode/encode failure (*codec.DecodeError,
// *codec.EncodeError) or transport failure (*transport.StatusError and
// friends).
package pixcache

package pixcache

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/lumapix/pixcache/cache"
	"github.com/lumapix/pixcache/codec"
	"github.com/lumapix/pixcache/fingerprint"
	"github.com/lumapix/pixcache/transport"
)

// sizeTolerance is the slack applied by the sufficiency check: a cached
// bitmap up to 2% smaller than requested still counts as a hit, avoiding
// cache thrashing from sub-pixel rounding.
const sizeTolerance = 1.02

// RequestBuilder turns a locator into a fully authorized request. The
// pipeline never inspects header contents; attaching authorization is the
// caller's responsibility.
type RequestBuilder func(ctx context.Context, locator string) (*http.Request, error)

// LoadRequest describes one image load.
type LoadRequest struct {
	// Locator is the resource URL. Fragments are ignored for caching.
	Locator string
	// Variant selects the rendering purpose (pager or overlay).
	Variant fingerprint.Variant
	// ScopeID is the account/session partition the load belongs to.
	ScopeID string
	// TargetWidth and TargetHeight are the desired rendering size in
	// points; values below 1 are clamped to 1.
	TargetWidth  int
	TargetHeight int
	// DisplayScale is the pixel density multiplier; values below 1 are
	// clamped to 1.
	DisplayScale float64
	// BuildRequest constructs the authorized request for a miss.
	BuildRequest RequestBuilder
	// Policy pins the cache policy for this load. When nil, the
	// pipeline consults its PolicyResolver, then falls back to
	// DefaultPolicy.
	Policy *CachePolicy
}

// Pipeline is the request entry point. It resolves cache hits,
// deduplicates concurrent misses into single flights, and owns the
// active-scope and generation state.
//
// One mutex guards scope state and the flight table; the cache tiers have
// their own locks and the pipeline calls into them only as a client. No
// lock is ever held across transport, decode or filesystem work.
type Pipeline struct {
	mu          sync.Mutex
	activeScope string
	hasScope    bool
	generation  uint64
	flights     map[flightKey]*flight
	closed      bool

	mem       *cache.Memory
	disk      *cache.Disk // nil when the disk tier is not configured
	transport transport.Transport
	resolver  PolicyResolver
	obs       Observer
	logger    *Logger

	purgeWG sync.WaitGroup
}

// New creates a Pipeline.
func New(opts ...Option) (*Pipeline, error) {
	cfg := config{
		transport: transport.NewHTTP(nil),
		observer:  NoopObserver{},
		logger:    NoopLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pipeline{
		flights:   make(map[flightKey]*flight),
		mem:       cache.NewMemory(cfg.memoryCapacity),
		transport: cfg.transport,
		resolver:  cfg.resolver,
		obs:       cfg.observer,
		logger:    cfg.logger,
	}

	if cfg.diskConfig != nil {
		dc := *cfg.diskConfig
		if dc.Logger == nil {
			dc.Logger = cfg.logger.Logger
		}
		disk, err := cache.NewDisk(dc)
		if err != nil {
			return nil, fmt.Errorf("pixcache: disk cache: %w", err)
		}
		p.disk = disk
	}

	return p, nil
}

// LoadImage returns a decoded bitmap satisfying the request, serving it
// from memory, disk or the transport in that order. Concurrent misses for
// the same (scope, locator, variant) share a single fetch.
//
// Cancelling ctx cancels only this caller's wait; the underlying fetch
// continues for any remaining waiters and is cancelled when the last one
// leaves.
func (p *Pipeline) LoadImage(ctx context.Context, req LoadRequest) (*codec.Bitmap, error) {
	targetW := req.TargetWidth
	if targetW < 1 {
		targetW = 1
	}
	targetH := req.TargetHeight
	if targetH < 1 {
		targetH = 1
	}
	scale := req.DisplayScale
	if scale < 1 {
		scale = 1
	}

	fp, err := fingerprint.Compute(req.Locator, req.Variant)
	if err != nil {
		return nil, err
	}
	policy := p.policyFor(req)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if !p.hasScope {
		// First-call bootstrap: adopt the caller's scope as active.
		p.activeScope = req.ScopeID
		p.hasScope = true
	}
	p.mu.Unlock()

	// Pixel bounds the cached bitmap has to satisfy.
	pixelW := float64(targetW) * scale
	pixelH := float64(targetH) * scale

	if policy.MemoryEnabled {
		if bm := p.mem.Get(fp, req.Variant, req.ScopeID); bm != nil && sufficient(bm, pixelW, pixelH) {
			p.obs.OnCacheHit(fp.Digest, req.Variant, TierMemory)
			return bm, nil
		}
	}

	if policy.DiskEnabled && p.disk != nil {
		if data, ok := p.disk.Read(fp, req.ScopeID); ok {
			start := time.Now()
			bm, err := codec.Downsample(data, targetW, targetH, scale)
			if err == nil && sufficient(bm, pixelW, pixelH) {
				p.obs.OnDecodeCompleted(fp.Digest, req.Variant, time.Since(start), DecodeSourceDisk)
				p.obs.OnCacheHit(fp.Digest, req.Variant, TierDisk)
				if policy.MemoryEnabled {
					p.mem.Put(bm, fp, req.Variant, req.ScopeID)
				}
				return bm, nil
			}
			// Undecodable or undersized cached payload: treat as a
			// miss and fall through to the network.
		}
	}

	p.obs.OnCacheMiss(fp.Digest, req.Variant)

	key := flightKey{scope: req.ScopeID, digest: fp.Digest}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	f, ok := p.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.Background())
		f = &flight{
			key:     key,
			gen:     p.generation,
			cancel:  cancel,
			waiters: make(map[uint64]chan flightResult),
		}
		p.flights[key] = f
		go p.runFlight(fctx, f, req, fp, policy, targetW, targetH, scale)
	}
	id, ch := f.addWaiter()
	p.mu.Unlock()

	select {
	case res := <-ch:
		p.logger.LogLoad(fp.Digest, req.Variant.String(), res.err)
		return res.bitmap, res.err
	case <-ctx.Done():
		p.detachWaiter(key, f, id)
		return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
	}
}

// runFlight performs the fetch work of one flight, decoupled from any
// single waiter's lifetime.
func (p *Pipeline) runFlight(ctx context.Context, f *flight, req LoadRequest, fp fingerprint.Fingerprint, policy CachePolicy, targetW, targetH int, scale float64) {
	bm, err := p.fetchAndDecode(ctx, f, req, fp, policy, targetW, targetH, scale)
	p.finishFlight(f, flightResult{bitmap: bm, err: err})
}

func (p *Pipeline) fetchAndDecode(ctx context.Context, f *flight, req LoadRequest, fp fingerprint.Fingerprint, policy CachePolicy, targetW, targetH int, scale float64) (*codec.Bitmap, error) {
	if req.BuildRequest == nil {
		return nil, fmt.Errorf("pixcache: load %s: nil request builder", fp.Digest)
	}

	httpReq, err := req.BuildRequest(ctx, req.Locator)
	if err != nil {
		return nil, fmt.Errorf("pixcache: build request: %w", err)
	}
	if p.stale(ctx, f) {
		return nil, ErrCanceled
	}

	start := time.Now()
	data, err := p.transport.Fetch(ctx, httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCanceled
		}
		return nil, err
	}
	p.obs.OnDownloadCompleted(fp.Digest, req.Variant, time.Since(start))
	if p.stale(ctx, f) {
		return nil, ErrCanceled
	}

	format := codec.DetectFormat(data)

	start = time.Now()
	bm, err := codec.Downsample(data, targetW, targetH, scale)
	if err != nil {
		return nil, err
	}
	p.obs.OnDecodeCompleted(fp.Digest, req.Variant, time.Since(start), DecodeSourceNetwork)

	if p.stale(ctx, f) {
		return nil, ErrCanceled
	}
	if policy.MemoryEnabled {
		p.mem.Put(bm, fp, req.Variant, req.ScopeID)
	}

	if policy.DiskEnabled && p.disk != nil {
		// Disk keeps the downsampled rendition re-encoded in the
		// source's detected format, not the original payload.
		encoded, err := codec.Encode(bm, format)
		if err != nil {
			return nil, err
		}
		if p.stale(ctx, f) {
			return nil, ErrCanceled
		}
		p.disk.Write(encoded, fp, req.ScopeID)
	}

	return bm, nil
}

// finishFlight delivers the result to every remaining waiter and removes
// the flight from the table. A flight already drained by a scope switch
// has no waiters left; delivery then is a no-op.
func (p *Pipeline) finishFlight(f *flight, res flightResult) {
	p.mu.Lock()
	if p.flights[f.key] == f {
		delete(p.flights, f.key)
	}
	f.resolveAll(res)
	p.mu.Unlock()
	f.cancel()
}

// detachWaiter removes one waiter's registration. Cancelling the last
// waiter cancels the flight's work so no orphaned fetch outlives its
// consumers.
func (p *Pipeline) detachWaiter(key flightKey, f *flight, id uint64) {
	p.mu.Lock()
	var cancel context.CancelFunc
	if cur, ok := p.flights[key]; ok && cur == f {
		delete(f.waiters, id)
		if len(f.waiters) == 0 {
			delete(p.flights, key)
			cancel = f.cancel
		}
	}
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// stale reports whether the flight was cancelled or its captured
// generation no longer matches the current one. Checked after every
// asynchronous boundary; once stale, no cache tier is mutated.
func (p *Pipeline) stale(ctx context.Context, f *flight) bool {
	if ctx.Err() != nil {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation != f.gen
}

// SwitchScope makes newScopeID the active scope. Every in-flight fetch is
// cancelled and its waiters resolve with ErrCanceled, the memory tier is
// cleared in full, and the previous scope's disk directory is purged
// asynchronously. New requests proceed immediately; they never wait on
// the purge.
func (p *Pipeline) SwitchScope(newScopeID string) {
	p.mu.Lock()
	prev := p.activeScope
	hadScope := p.hasScope
	p.activeScope = newScopeID
	p.hasScope = true
	p.generation++

	// Drain before the memory clear below so no in-flight write can
	// race the clear.
	canceled := len(p.flights)
	for key, f := range p.flights {
		f.cancel()
		f.resolveAll(flightResult{err: ErrCanceled})
		delete(p.flights, key)
	}
	p.mu.Unlock()

	p.mem.Clear()
	p.logger.LogScopeSwitch(prev, newScopeID, canceled)

	if hadScope && prev != "" && prev != newScopeID && p.disk != nil {
		p.logger.LogScopePurge(prev)
		p.purgeWG.Add(1)
		go func() {
			defer p.purgeWG.Done()
			p.disk.RemoveScope(prev)
		}()
	}
}

// RetainPagerImages prunes the memory tier's pager entries for the scope
// down to the given locators, so the presentation layer can keep only the
// visible window (plus neighbors) resident. Overlay entries and other
// scopes are untouched.
func (p *Pipeline) RetainPagerImages(locators []string, scopeID string) {
	keep := make(map[string]struct{}, len(locators))
	for _, loc := range locators {
		fp, err := fingerprint.Compute(loc, fingerprint.VariantPager)
		if err != nil {
			continue
		}
		keep[fp.Digest] = struct{}{}
	}
	p.mem.RetainOnly(keep, scopeID)
}

// ClearMemoryCache drops every memory entry across every scope. Wire this
// to the host environment's memory-pressure signal.
func (p *Pipeline) ClearMemoryCache() {
	p.mem.Clear()
}

// ActiveScope returns the active scope, if one has been adopted.
func (p *Pipeline) ActiveScope() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeScope, p.hasScope
}

// Close cancels all in-flight work and waits for background disk
// activity. Loads issued after Close fail with ErrClosed.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for key, f := range p.flights {
		f.cancel()
		f.resolveAll(flightResult{err: ErrCanceled})
		delete(p.flights, key)
	}
	p.mu.Unlock()

	p.purgeWG.Wait()
	if p.disk != nil {
		return p.disk.Close()
	}
	return nil
}

func (p *Pipeline) policyFor(req LoadRequest) CachePolicy {
	if req.Policy != nil {
		return *req.Policy
	}
	if p.resolver != nil {
		return p.resolver(req.Locator)
	}
	return DefaultPolicy()
}

// sufficient reports whether a cached bitmap satisfies the requested
// pixel bounds within the size tolerance. A cached image smaller than
// requested is a miss even though the bytes exist.
func sufficient(bm *codec.Bitmap, pixelW, pixelH float64) bool {
	if bm.Width <= 0 || bm.Height <= 0 {
		return false
	}
	ratio := math.Min(pixelW/float64(bm.Width), pixelH/float64(bm.Height))
	return ratio <= sizeTolerance
}

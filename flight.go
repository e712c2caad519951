package pixcache

import (
	"context"

	"github.com/lumapix/pixcache/codec"
)

// flightKey identifies one coalesced fetch. Flights never cross scope
// boundaries even for the same digest.
type flightKey struct {
	scope  string
	digest string
}

// flightResult is the single outcome every waiter of a flight observes.
type flightResult struct {
	bitmap *codec.Bitmap
	err    error
}

// flight is an ephemeral coalescing record. It exists only while at least
// one caller is waiting on a miss and is removed the instant it completes
// or loses its last waiter. All fields are guarded by the Pipeline mutex
// except cancel, which is safe to call from anywhere.
type flight struct {
	key flightKey

	// gen is the generation captured at flight start. A flight whose
	// generation no longer matches the pipeline's is stale: its result
	// is discarded even if the fetch completes successfully.
	gen uint64

	// cancel stops the flight's fetch work.
	cancel context.CancelFunc

	// waiters maps waiter ids to one-shot buffered result channels.
	// Removing one waiter never disturbs the others.
	waiters    map[uint64]chan flightResult
	nextWaiter uint64
}

// addWaiter registers a new waiter. Must hold the Pipeline mutex.
func (f *flight) addWaiter() (uint64, chan flightResult) {
	id := f.nextWaiter
	f.nextWaiter++
	ch := make(chan flightResult, 1)
	f.waiters[id] = ch
	return id, ch
}

// resolveAll delivers res to every registered waiter and clears the
// registry so a later completion cannot double-send. Must hold the
// Pipeline mutex; channels are buffered so sends never block.
func (f *flight) resolveAll(res flightResult) {
	for _, ch := range f.waiters {
		ch <- res
	}
	f.waiters = nil
}

package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/lumapix/pixcache/codec"
	"github.com/lumapix/pixcache/fingerprint"
)

// memKey identifies one memory entry. Scope isolation and variant
// separation both fall out of exact key matching.
type memKey struct {
	scope   string
	digest  string
	variant fingerprint.Variant
}

type memEntry struct {
	key    memKey
	bitmap *codec.Bitmap
	cost   int64
}

// Memory is a scope-partitioned, cost-bounded LRU of decoded bitmaps.
type Memory struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[memKey]*list.Element
	evictList *list.List

	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemory creates a memory tier with the given byte budget.
// A capacity of 0 disables storage entirely: Put becomes a no-op and Get
// always misses.
func NewMemory(capacityBytes int64) *Memory {
	return &Memory{
		capacity:  capacityBytes,
		items:     make(map[memKey]*list.Element),
		evictList: list.New(),
	}
}

// Get returns the cached bitmap for (scope, digest, variant), bumping its
// recency. A read counts as a use for eviction purposes.
func (m *Memory) Get(fp fingerprint.Fingerprint, variant fingerprint.Variant, scopeID string) *codec.Bitmap {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.items[memKey{scope: scopeID, digest: fp.Digest, variant: variant}]; ok {
		m.hits.Add(1)
		m.evictList.MoveToFront(elem)
		return elem.Value.(*memEntry).bitmap
	}
	m.misses.Add(1)
	return nil
}

// Put stores a bitmap, replacing any existing entry for the same key, then
// evicts least-recently-used entries until the budget is met. The entry
// just inserted is never evicted, even when it alone exceeds the budget.
func (m *Memory) Put(bm *codec.Bitmap, fp fingerprint.Fingerprint, variant fingerprint.Variant, scopeID string) {
	if m.capacity <= 0 || bm == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := memKey{scope: scopeID, digest: fp.Digest, variant: variant}
	cost := bm.CostBytes()

	if elem, ok := m.items[key]; ok {
		ent := elem.Value.(*memEntry)
		m.size += cost - ent.cost
		ent.bitmap = bm
		ent.cost = cost
		m.evictList.MoveToFront(elem)
		m.evict(elem)
		return
	}

	elem := m.evictList.PushFront(&memEntry{key: key, bitmap: bm, cost: cost})
	m.items[key] = elem
	m.size += cost
	m.evict(elem)
}

// evict removes entries from the LRU tail until the budget is met,
// stopping at keep. Must hold mu.
func (m *Memory) evict(keep *list.Element) {
	for m.size > m.capacity {
		back := m.evictList.Back()
		if back == nil || back == keep {
			return
		}
		m.removeElement(back)
	}
}

// RetainOnly removes every pager-variant entry for the scope whose digest
// is not in keep. Other variants and other scopes are untouched.
func (m *Memory) RetainOnly(keep map[string]struct{}, scopeID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var drop []*list.Element
	for key, elem := range m.items {
		if key.scope != scopeID || key.variant != fingerprint.VariantPager {
			continue
		}
		if _, ok := keep[key.digest]; !ok {
			drop = append(drop, elem)
		}
	}
	for _, elem := range drop {
		m.removeElement(elem)
	}
}

// Clear drops every entry across every scope.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[memKey]*list.Element)
	m.evictList.Init()
	m.size = 0
}

// Contains reports whether an entry exists without affecting recency.
func (m *Memory) Contains(fp fingerprint.Fingerprint, variant fingerprint.Variant, scopeID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.items[memKey{scope: scopeID, digest: fp.Digest, variant: variant}]
	return ok
}

// Size returns the current total cost in bytes.
func (m *Memory) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Len returns the number of resident entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Stats returns hit/miss counters.
func (m *Memory) Stats() (hits, misses int64) {
	return m.hits.Load(), m.misses.Load()
}

func (m *Memory) removeElement(elem *list.Element) {
	ent := elem.Value.(*memEntry)
	m.evictList.Remove(elem)
	delete(m.items, ent.key)
	m.size -= ent.cost
}

package preview

import (
	"sync"

	"github.com/google/uuid"
)

// Handle names one issued preview document. It stays resolvable until
// revoked.
type Handle string

// HandleCache is a bounded key→handle cache with oldest-inserted-first
// eviction. A handle is revoked exactly when it is neither the live handle
// nor referenced by the cache.
type HandleCache struct {
	mu       sync.Mutex
	capacity int
	order    []string
	byKey    map[string]Handle
	docs     map[Handle]string
	live     Handle
	onRevoke func(Handle)
}

func NewHandleCache(capacity int) *HandleCache {
	if capacity < 1 {
		capacity = 10
	}
	return &HandleCache{
		capacity: capacity,
		byKey:    map[string]Handle{},
		docs:     map[Handle]string{},
	}
}

// OnRevoke registers fn to run for every revoked handle. fn runs with the
// cache locked and must not call back into it.
func (c *HandleCache) OnRevoke(fn func(Handle)) {
	c.mu.Lock()
	c.onRevoke = fn
	c.mu.Unlock()
}

// Issue stores doc under a fresh handle for key. Re-issuing a key keeps
// its insertion position. Entries pushed past capacity are evicted.
func (c *HandleCache) Issue(key, doc string) Handle {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := Handle(uuid.NewString())
	c.docs[h] = doc

	if old, ok := c.byKey[key]; ok {
		c.byKey[key] = h
		c.releaseLocked(old)
		return h
	}

	c.byKey[key] = h
	c.order = append(c.order, key)
	for len(c.order) > c.capacity {
		evicted := c.order[0]
		c.order = c.order[1:]
		old := c.byKey[evicted]
		delete(c.byKey, evicted)
		c.releaseLocked(old)
	}
	return h
}

// SetLive marks h as the handle shown by the primary surface. The
// previous live handle is revoked if the cache no longer holds it.
func (c *HandleCache) SetLive(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.live
	c.live = h
	if prev != h {
		c.releaseLocked(prev)
	}
}

func (c *HandleCache) Live() Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Get returns the document for a handle that has not been revoked.
func (c *HandleCache) Get(h Handle) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[h]
	return doc, ok
}

// Len is the number of cached keys.
func (c *HandleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

// Outstanding is the number of handles not yet revoked.
func (c *HandleCache) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// DropWhere removes every key matching pred and returns how many went.
func (c *HandleCache) DropWhere(pred func(key string) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0]
	var dropped []Handle
	for _, k := range c.order {
		if pred(k) {
			dropped = append(dropped, c.byKey[k])
			delete(c.byKey, k)
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
	for _, h := range dropped {
		c.releaseLocked(h)
	}
	return len(dropped)
}

// Clear empties the cache. The live handle survives.
func (c *HandleCache) Clear() {
	c.DropWhere(func(string) bool { return true })
}

func (c *HandleCache) cachedLocked(h Handle) bool {
	for _, v := range c.byKey {
		if v == h {
			return true
		}
	}
	return false
}

func (c *HandleCache) releaseLocked(h Handle) {
	if h == "" || h == c.live || c.cachedLocked(h) {
		return
	}
	if _, ok := c.docs[h]; !ok {
		return
	}
	delete(c.docs, h)
	if c.onRevoke != nil {
		c.onRevoke(h)
	}
}

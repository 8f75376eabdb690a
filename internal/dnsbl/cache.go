package dnsbl

import (
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached verdict remains valid
const DefaultCacheTTL = time.Hour

type cacheEntry struct {
	junk    bool
	created time.Time
}

// Cache stores aggregate verdicts keyed by lowercase hostname. A single
// mutex guards every access; entries older than the TTL are treated as
// absent. The cache is constructed explicitly and shared by reference, not
// held in package state.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration

	now func() time.Time // overridable for tests
}

// NewCache creates a verdict cache. A non-positive ttl selects
// DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached verdict for a host. ok is false when there is no
// entry or the entry has expired.
func (c *Cache) Get(host string) (junk bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[host]
	if !found {
		return false, false
	}
	if c.now().Sub(entry.created) > c.ttl {
		return false, false
	}
	return entry.junk, true
}

// Put stores a verdict for a host, overwriting any previous entry
func (c *Cache) Put(host string, junk bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[host] = cacheEntry{junk: junk, created: c.now()}
}

// Clear removes every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of entries, expired ones included
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

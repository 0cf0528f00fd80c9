package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps payloads in process with per-entry expiry. Stored
// slices are copies, so callers may reuse their buffers.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache returns a cache whose janitor sweeps every cleanupInterval.
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	payload, ok := v.([]byte)
	return payload, ok
}

// Set stores value under key. A zero ttl means the cache default.
func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Len counts stored entries, including expired ones the janitor has not
// swept yet.
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}

func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}

// Prune drops expired entries without waiting for the janitor.
func (c *MemoryCache) Prune() (int, error) {
	before := c.items.ItemCount()
	c.items.DeleteExpired()
	return before - c.items.ItemCount(), nil
}

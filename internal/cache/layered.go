package cache

import (
	"context"
	"time"
)

// Pruner is implemented by backends that keep expired entries until swept.
type Pruner interface {
	Prune() (int, error)
}

// Pinger is implemented by backends reached over the network.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LayeredCache serves hits from process memory and falls through to a
// slower shared layer, promoting whatever it finds there.
type LayeredCache struct {
	front *MemoryCache
	back  Cache
}

// NewLayeredCache fronts a disk cache at diskDir with a memory layer.
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewLayeredOver(memoryTTL, NewDiskCache(diskDir, diskTTL))
}

// NewLayeredOver fronts any backend, such as a Redis cache shared by
// several workers, with a memory layer.
func NewLayeredOver(memoryTTL time.Duration, back Cache) *LayeredCache {
	return &LayeredCache{front: NewMemoryCache(memoryTTL, 10*time.Minute), back: back}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if v, ok := c.front.Get(key); ok {
		return v, true
	}
	v, ok := c.back.Get(key)
	if ok {
		_ = c.front.Set(key, v, 0)
	}
	return v, ok
}

// Set writes through to both layers. The shared layer's error wins.
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	_ = c.front.Set(key, value, ttl)
	return c.back.Set(key, value, ttl)
}

func (c *LayeredCache) Delete(key string) error {
	_ = c.front.Delete(key)
	return c.back.Delete(key)
}

func (c *LayeredCache) Clear() error {
	_ = c.front.Clear()
	return c.back.Clear()
}

// Prune sweeps the backing layer when it supports sweeping.
func (c *LayeredCache) Prune() (int, error) {
	if p, ok := c.back.(Pruner); ok {
		return p.Prune()
	}
	return 0, nil
}

// Ping checks the backing layer when it is remote.
func (c *LayeredCache) Ping(ctx context.Context) error {
	if p, ok := c.back.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

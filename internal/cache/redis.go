package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares cached payloads between processes. The Cache interface
// has no context, so each operation runs under its own short timeout.
type RedisCache struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	opTimeout  time.Duration
}

// RedisOption configures a RedisCache
type RedisOption func(*RedisCache)

// WithPrefix namespaces every key
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisCache) { c.prefix = prefix }
}

// WithDefaultTTL sets the expiry used when Set is called with a zero ttl
func WithDefaultTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) { c.defaultTTL = ttl }
}

// WithOpTimeout bounds each Redis round trip
func WithOpTimeout(d time.Duration) RedisOption {
	return func(c *RedisCache) { c.opTimeout = d }
}

// NewRedisCache wraps a go-redis client
func NewRedisCache(client redis.UniversalClient, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client:     client,
		prefix:     "clairvox:",
		defaultTTL: 24 * time.Hour,
		opTimeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) fullKey(key string) string {
	return c.prefix + key
}

// Get retrieves a value; Redis errors are reported as misses
func (c *RedisCache) Get(key string) ([]byte, bool) {
	data, err := c.Fetch(context.Background(), key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Fetch retrieves a value, distinguishing a miss (ErrCacheMiss) from a
// Redis failure.
func (c *RedisCache) Fetch(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	data, err := c.client.Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

// Set stores a value with the given TTL
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.fullKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a value
func (c *RedisCache) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.opTimeout)
	defer cancel()

	if err := c.client.Del(ctx, c.fullKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Clear removes every key under the prefix
func (c *RedisCache) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*c.opTimeout)
	defer cancel()

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

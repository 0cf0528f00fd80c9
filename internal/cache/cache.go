package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Surjit27/Clairvox/internal/model"
)

// ErrCacheMiss is returned by backends that report misses as errors
var ErrCacheMiss = errors.New("cache miss")

// Cache defines the interface for caching raw source payloads.
// Implementations must be safe for concurrent use; the last writer wins.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives the key for a (source, query) pair. The query is used
// verbatim so different phrasings never share an entry.
func CacheKey(source model.SourceDatabase, query string) string {
	hash := sha256.Sum256([]byte(string(source) + "\x00" + query))
	return "clairvox:v1:" + string(source) + ":" + hex.EncodeToString(hash[:])
}

// New builds the cache backend selected in cfg. Backend "none" yields a nil
// Cache, which callers treat as caching disabled.
func New(cfg model.CacheConfig) (Cache, error) {
	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryCache(cfg.TTL, 10*time.Minute), nil
	case "disk":
		dir, err := cacheDir(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return NewDiskCache(dir, cfg.TTL), nil
	case "layered":
		dir, err := cacheDir(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return NewLayeredCache(cfg.TTL, dir, cfg.TTL), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		opts := []RedisOption{WithPrefix(cfg.RedisPrefix), WithDefaultTTL(cfg.TTL)}
		if cfg.RedisTimeout > 0 {
			opts = append(opts, WithOpTimeout(cfg.RedisTimeout))
		}
		return NewLayeredOver(5*time.Minute, NewRedisCache(client, opts...)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %q", cfg.Backend)
	}
}

func cacheDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(base, "clairvox"), nil
}

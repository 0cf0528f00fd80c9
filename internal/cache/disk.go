package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

const diskEntryExt = ".entry"

// DiskCache persists source payloads as one file per key, fanned out into
// 256 shard directories. Writes land via rename so readers never observe a
// half-written entry.
type DiskCache struct {
	root string
	ttl  time.Duration
	now  func() time.Time
}

// NewDiskCache returns a disk cache rooted at dir. ttl applies when Set is
// called with a zero TTL.
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{root: dir, ttl: ttl, now: time.Now}
}

// diskRecord is the on-disk envelope. Key is stored so a hash collision
// reads as a miss instead of another query's payload.
type diskRecord struct {
	Key     string    `json:"key"`
	Payload []byte    `json:"payload"`
	Expires time.Time `json:"expires"`
}

func (c *DiskCache) Get(key string) ([]byte, bool) {
	rec, err := c.load(c.file(key))
	if err != nil || rec.Key != key {
		return nil, false
	}
	if !c.now().Before(rec.Expires) {
		_ = os.Remove(c.file(key))
		return nil, false
	}
	return rec.Payload, true
}

func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	raw, err := json.Marshal(diskRecord{Key: key, Payload: value, Expires: c.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}

	target := c.file(key)
	shard := filepath.Dir(target)
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return fmt.Errorf("create shard %s: %w", shard, err)
	}
	return writeAtomic(shard, target, raw)
}

// Delete removes key. A missing entry is not an error.
func (c *DiskCache) Delete(key string) error {
	if err := os.Remove(c.file(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear drops every entry under the cache root.
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.root)
}

// Prune walks the cache root and removes expired or unreadable entries,
// returning how many files were deleted.
func (c *DiskCache) Prune() (int, error) {
	removed := 0
	now := c.now()
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, diskEntryExt) {
			return nil
		}
		rec, lerr := c.load(path)
		if lerr == nil && now.Before(rec.Expires) {
			return nil
		}
		if rerr := os.Remove(path); rerr == nil {
			removed++
		}
		return nil
	})
	return removed, err
}

func (c *DiskCache) load(path string) (diskRecord, error) {
	var rec diskRecord
	raw, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal(raw, &rec)
	return rec, err
}

// file maps a key to <root>/<shard>/<hash>.entry.
func (c *DiskCache) file(key string) string {
	sum := xxhash.Sum64String(key)
	name := strconv.FormatUint(sum, 16)
	shard := fmt.Sprintf("%02x", sum&0xff)
	return filepath.Join(c.root, shard, name+diskEntryExt)
}

func writeAtomic(dir, target string, raw []byte) error {
	tmp, err := os.CreateTemp(dir, ".pending-*")
	if err != nil {
		return fmt.Errorf("stage cache record: %w", err)
	}
	name := tmp.Name()
	_, werr := tmp.Write(raw)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("write cache record: %w", err)
	}
	if err := os.Rename(name, target); err != nil {
		_ = os.Remove(name)
		return fmt.Errorf("commit cache record: %w", err)
	}
	return nil
}

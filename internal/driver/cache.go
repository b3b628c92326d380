package driver

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize bounds the in-process layer.
const defaultCacheSize = 512

// Cache short-circuits repeat translations. The in-process LRU answers
// first; misses fall through to the optional disk layer and refill the
// LRU on the way back. Both layers are goroutine-safe, so one Cache
// serves every batch worker.
type Cache struct {
	mem  *lru.Cache[Digest, string]
	disk *DiskCache
}

// NewCache builds a cache with an in-process LRU of size entries and an
// optional disk layer. size <= 0 uses the default.
func NewCache(size int, disk *DiskCache) (*Cache, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	mem, err := lru.New[Digest, string](size)
	if err != nil {
		return nil, err
	}
	return &Cache{mem: mem, disk: disk}, nil
}

// Get returns the cached output for a key.
func (c *Cache) Get(key Digest) (string, bool) {
	if c == nil {
		return "", false
	}
	if text, ok := c.mem.Get(key); ok {
		return text, true
	}
	if c.disk != nil {
		var payload DiskPayload
		if ok, err := c.disk.Get(key, &payload); err == nil && ok {
			c.mem.Add(key, payload.Rust)
			return payload.Rust, true
		}
	}
	return "", false
}

// Put stores output text under a key in both layers. Disk write failures
// are ignored.
func (c *Cache) Put(key Digest, path, text string) {
	if c == nil {
		return
	}
	c.mem.Add(key, text)
	if c.disk != nil {
		_ = c.disk.Put(key, &DiskPayload{
			Schema: diskCacheSchemaVersion,
			Path:   path,
			Rust:   text,
		})
	}
}

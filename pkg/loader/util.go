package loader

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// CacheKey identifies a file in loader caches.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}

// TextCache memoises file contents. Concurrent loads of the same key share
// one fetch.
type TextCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	group   singleflight.Group
}

// NewTextCache creates an empty cache.
func NewTextCache() *TextCache {
	return &TextCache{entries: make(map[string][]byte)}
}

// Load returns the cached value for key or calls fetch and caches its result.
// Failed fetches are not cached.
func (c *TextCache) Load(key string, fetch func() ([]byte, error)) ([]byte, error) {
	if b, ok := c.get(key); ok {
		return b, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if b, ok := c.get(key); ok {
			return b, nil
		}
		b, err := fetch()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = b
		c.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Forget drops key from the cache.
func (c *TextCache) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *TextCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[key]
	return b, ok
}

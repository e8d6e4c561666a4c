package media

import (
	"sync"
)

type pixmapKey struct {
	path string
	size int
}

// PixmapCache is an in-memory thumbnail cache keyed by (source path, target
// size). Entries are re-derivable, so the cache is append-by-key: a racing
// double-store costs a redundant decode, never corruption.
type PixmapCache struct {
	mu sync.RWMutex
	m  map[pixmapKey]Result
}

// NewPixmapCache returns an empty cache.
func NewPixmapCache() *PixmapCache {
	return &PixmapCache{m: make(map[pixmapKey]Result)}
}

// Get returns the cached result for (path, size).
func (c *PixmapCache) Get(path string, size int) (Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.m[pixmapKey{path, size}]
	return res, ok
}

// Put stores a result for (path, size).
func (c *PixmapCache) Put(path string, size int, res Result) {
	c.mu.Lock()
	c.m[pixmapKey{path, size}] = res
	c.mu.Unlock()
}

// Invalidate removes all sizes cached for a path.
func (c *PixmapCache) Invalidate(path string) {
	c.mu.Lock()
	for key := range c.m {
		if key.path == path {
			delete(c.m, key)
		}
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *PixmapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// defaultPixmaps is the process-wide cache shared by all generators.
var defaultPixmaps = NewPixmapCache()

// DefaultPixmapCache returns the process-wide pixmap cache.
func DefaultPixmapCache() *PixmapCache {
	return defaultPixmaps
}

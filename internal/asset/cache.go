package asset

import "sync"

// Cache keeps fetched payload bytes by path so a reload of the same asset
// skips the network. Decoded assets are never cached; each load builds a
// fresh scene graph the caller owns.
type Cache struct {
	data  map[string][]byte
	order []string
	size  int64
	limit int64
	mu    sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a cache holding at most limit bytes. A limit of zero
// means unbounded.
func NewCache(limit int64) *Cache {
	return &Cache{
		data:  make(map[string][]byte),
		limit: limit,
	}
}

// Get retrieves a payload.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores a payload, evicting the oldest entries past the limit.
// Payloads larger than the limit are not stored.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.limit > 0 && int64(len(data)) > c.limit {
		return
	}
	if old, ok := c.data[key]; ok {
		c.size -= int64(len(old))
		c.remove(key)
	}
	c.data[key] = data
	c.order = append(c.order, key)
	c.size += int64(len(data))

	for c.limit > 0 && c.size > c.limit && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		c.size -= int64(len(c.data[oldest]))
		delete(c.data, oldest)
	}
}

func (c *Cache) remove(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.order = nil
	c.size = 0
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Size returns the number of cached bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

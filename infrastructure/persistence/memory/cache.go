package memory

import (
	"context"
	"sync"
	"time"
)

// Cache is an in-memory ports.Cache. Expired entries are dropped lazily on
// access instead of by a background sweeper, so it never leaks a goroutine
// into tests or short-lived CLI runs.
type Cache struct {
	mu    sync.RWMutex
	items map[string]cacheEntry
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewCache creates an empty in-memory cache
func NewCache() *Cache {
	return &Cache{
		items: make(map[string]cacheEntry),
	}
}

// Get retrieves a value from cache
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.RLock()
	entry, exists := c.items[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Recheck under the write lock; a Set may have raced in.
		if current, ok := c.items[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Set stores a value in cache with TTL in seconds. A TTL of zero or less
// stores the value without expiry.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(time.Duration(ttl) * time.Second)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry
	return nil
}

// Delete removes a value from cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return nil
}

// Clear removes all values from cache
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]cacheEntry)
	return nil
}

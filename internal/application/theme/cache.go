package theme

import (
	"sync"
	"time"

	"github.com/storefront/backend/internal/domain/theme"
)

// cacheEntry holds one cached theme with its expiry and recency marker
type cacheEntry struct {
	cfg      *theme.ThemeConfig
	expires  time.Time
	lastUsed time.Time
}

// Cache is a capacity-bounded TTL cache for base theme configs. When
// full, the least recently used entry is evicted.
type Cache struct {
	ttl      time.Duration
	capacity int
	nowFunc  func() time.Time

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// NewCache creates a cache with the given per-entry TTL and capacity
func NewCache(ttl time.Duration, capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		nowFunc:  time.Now,
		entries:  make(map[string]*cacheEntry),
	}
}

// Get returns the cached config and whether it was present and fresh
func (c *Cache) Get(themeID string) (*theme.ThemeConfig, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[themeID]
	if !ok {
		return nil, false
	}
	now := c.nowFunc()
	if now.After(entry.expires) {
		delete(c.entries, themeID)
		return nil, false
	}
	entry.lastUsed = now
	return entry.cfg, true
}

// Put stores a config, evicting the least recently used entry when the
// cache is at capacity.
func (c *Cache) Put(themeID string, cfg *theme.ThemeConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	if _, exists := c.entries[themeID]; !exists && len(c.entries) >= c.capacity {
		c.evictLocked()
	}
	c.entries[themeID] = &cacheEntry{cfg: cfg, expires: now.Add(c.ttl), lastUsed: now}
}

// Invalidate drops one theme from the cache
func (c *Cache) Invalidate(themeID string) {
	c.mu.Lock()
	delete(c.entries, themeID)
	c.mu.Unlock()
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictLocked() {
	var oldest string
	var oldestUsed time.Time
	first := true
	for id, entry := range c.entries {
		if first || entry.lastUsed.Before(oldestUsed) {
			oldest = id
			oldestUsed = entry.lastUsed
			first = false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}

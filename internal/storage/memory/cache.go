package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/llmstxt-generator/internal/llmstxt"
)

// Cache is an in-memory ResultCache. Entries do not survive a restart.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]llmstxt.CacheEntry
}

// NewCache constructs an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]llmstxt.CacheEntry)}
}

// Get returns the entry for targetURL, if any.
func (c *Cache) Get(_ context.Context, targetURL string) (llmstxt.CacheEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[targetURL]
	return entry, ok, nil
}

// Put overwrites the entry for entry.TargetURL.
func (c *Cache) Put(_ context.Context, entry llmstxt.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.TargetURL] = entry
	return nil
}

// Invalidate removes the entry for targetURL.
func (c *Cache) Invalidate(_ context.Context, targetURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, targetURL)
	return nil
}

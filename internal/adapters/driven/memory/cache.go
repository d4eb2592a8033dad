package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractionCache = (*Cache)(nil)

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is an in-process ExtractionCache with per-entry expiry.
// Expired entries are dropped lazily on read.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry), now: time.Now}
}

// Get returns the cached value, or domain.ErrNotFound on a miss
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), entry.value...), nil
}

// Set stores value under key; a zero ttl never expires
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

// FlushAll removes every recognition entry
func (c *Cache) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, "ocr:") {
			delete(c.entries, key)
		}
	}
	return nil
}

// Len returns the number of stored entries, including expired ones not yet dropped
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

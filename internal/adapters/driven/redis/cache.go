package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.ExtractionCache = (*ExtractionCache)(nil)

// scanBatch is the COUNT hint used while flushing
const scanBatch = 500

// ExtractionCache implements driven.ExtractionCache using Redis.
// Entries expire through Redis TTL.
type ExtractionCache struct {
	client *redis.Client
}

// NewExtractionCache creates a new Redis-backed ExtractionCache
func NewExtractionCache(client *redis.Client) *ExtractionCache {
	return &ExtractionCache{client: client}
}

// Get returns the cached value or domain.ErrNotFound
func (c *ExtractionCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return data, nil
}

// Set stores value with the given TTL
func (c *ExtractionCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// FlushAll deletes every extraction cache entry. Other keys in the same
// database are left alone.
func (c *ExtractionCache) FlushAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, extractionKeyPattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping checks if Redis is reachable
func (c *ExtractionCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

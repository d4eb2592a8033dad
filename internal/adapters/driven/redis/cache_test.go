package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

func TestExtractionCache_SetGet(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewExtractionCache(client)
	ctx := context.Background()

	if err := cache.Set(ctx, "ocr:abc", []byte(`{"ocr":{}}`), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := cache.Get(ctx, "ocr:abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != `{"ocr":{}}` {
		t.Errorf("unexpected value %s", got)
	}

	ttl := client.TTL(ctx, "ocr:abc").Val()
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("expected ttl within an hour, got %v", ttl)
	}
}

func TestExtractionCache_Miss(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	_, err := NewExtractionCache(client).Get(context.Background(), "ocr:missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExtractionCache_FlushAll(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewExtractionCache(client)
	ctx := context.Background()

	for _, k := range []string{"ocr:1", "ocr:2", "ocr:3"} {
		if err := cache.Set(ctx, k, []byte("v"), time.Hour); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	client.Set(ctx, "ledgerscan:job:keep", "job", 0)

	if err := cache.FlushAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := client.Exists(ctx, "ocr:1", "ocr:2", "ocr:3").Val(); n != 0 {
		t.Errorf("expected cache keys removed, %d remain", n)
	}
	if n := client.Exists(ctx, "ledgerscan:job:keep").Val(); n != 1 {
		t.Error("expected unrelated key to survive flush")
	}
}

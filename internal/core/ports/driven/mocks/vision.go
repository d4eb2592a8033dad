package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// MockTextRecognizer is a mock implementation of TextRecognizer for testing
type MockTextRecognizer struct {
	RecognizeFn func(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error)
	calls       atomic.Int64
}

func (m *MockTextRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
	m.calls.Add(1)
	if m.RecognizeFn != nil {
		return m.RecognizeFn(ctx, image, mimeType)
	}
	return &domain.OCRResult{NumPages: 1}, nil
}

func (m *MockTextRecognizer) Name() string { return "mock" }

// Calls returns how many times Recognize was invoked
func (m *MockTextRecognizer) Calls() int { return int(m.calls.Load()) }

// MockEntityExtractor is a mock implementation of EntityExtractor for testing
type MockEntityExtractor struct {
	ExtractEntitiesFn func(ctx context.Context, image []byte, mimeType string) (*domain.Entities, error)
	calls             atomic.Int64
}

func (m *MockEntityExtractor) ExtractEntities(ctx context.Context, image []byte, mimeType string) (*domain.Entities, error) {
	m.calls.Add(1)
	if m.ExtractEntitiesFn != nil {
		return m.ExtractEntitiesFn(ctx, image, mimeType)
	}
	return nil, nil
}

func (m *MockEntityExtractor) Name() string { return "mock" }

// Calls returns how many times ExtractEntities was invoked
func (m *MockEntityExtractor) Calls() int { return int(m.calls.Load()) }

// MockExtractionCache is an in-memory ExtractionCache for testing
type MockExtractionCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	ttls    map[string]time.Duration

	GetErr error
	SetErr error
}

func NewMockExtractionCache() *MockExtractionCache {
	return &MockExtractionCache{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (m *MockExtractionCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *MockExtractionCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *MockExtractionCache) FlushAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
	m.ttls = make(map[string]time.Duration)
	return nil
}

// Len returns the number of cached entries
func (m *MockExtractionCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// TTL returns the ttl recorded for key
func (m *MockExtractionCache) TTL(key string) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ttls[key]
}

var (
	_ driven.TextRecognizer  = (*MockTextRecognizer)(nil)
	_ driven.EntityExtractor = (*MockEntityExtractor)(nil)
	_ driven.ExtractionCache = (*MockExtractionCache)(nil)
)

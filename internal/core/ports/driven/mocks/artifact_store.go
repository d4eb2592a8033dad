package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// MockArtifactStore is an in-memory ArtifactStore for testing
type MockArtifactStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	PutErr error
}

func NewMockArtifactStore() *MockArtifactStore {
	return &MockArtifactStore{objects: make(map[string][]byte)}
}

func (m *MockArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *MockArtifactStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *MockArtifactStore) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}

// Keys returns all stored keys
func (m *MockArtifactStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

var _ driven.ArtifactStore = (*MockArtifactStore)(nil)

package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*MockDistributedLock)(nil)

// errLeaseNotHeld is returned by Extend for a lease that is free or expired
var errLeaseNotHeld = errors.New("lease not held")

// MockDistributedLock keeps leases in memory with their expiry. Like the real
// adapters it is not reentrant. The *Fn hooks replace the default behaviour.
type MockDistributedLock struct {
	mu         sync.Mutex
	leases     map[string]time.Time
	grants     map[string]int
	extensions map[string]int

	AcquireFn func(name string, ttl time.Duration) (bool, error)
	ReleaseFn func(name string) error
	ExtendFn  func(name string, ttl time.Duration) error
	PingFn    func() error
}

// NewMockDistributedLock creates a lock with no leases
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{
		leases:     make(map[string]time.Time),
		grants:     make(map[string]int),
		extensions: make(map[string]int),
	}
}

func (m *MockDistributedLock) heldLocked(name string) bool {
	expiry, ok := m.leases[name]
	return ok && time.Now().Before(expiry)
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heldLocked(name) {
		return false, nil
	}
	m.leases[name] = time.Now().Add(ttl)
	m.grants[name]++
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	if m.ReleaseFn != nil {
		return m.ReleaseFn(name)
	}
	m.mu.Lock()
	delete(m.leases, name)
	m.mu.Unlock()
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	if m.ExtendFn != nil {
		return m.ExtendFn(name, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.heldLocked(name) {
		return errLeaseNotHeld
	}
	m.leases[name] = time.Now().Add(ttl)
	m.extensions[name]++
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// Hold marks name as leased by someone else for ttl
func (m *MockDistributedLock) Hold(name string, ttl time.Duration) {
	m.mu.Lock()
	m.leases[name] = time.Now().Add(ttl)
	m.mu.Unlock()
}

// IsHeld reports whether name is currently leased
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heldLocked(name)
}

// Acquisitions counts successful default-path acquisitions of name
func (m *MockDistributedLock) Acquisitions(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.grants[name]
}

// Extensions counts successful default-path extensions of name
func (m *MockDistributedLock) Extensions(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extensions[name]
}

package driven

import (
	"context"
	"time"
)

// DistributedLock provides named, expiring leases shared by every instance.
// The pipeline holds one per job so a redelivered task cannot run a job twice,
// and the scheduler holds one so only one instance enqueues maintenance tasks.
// Leases are not reentrant.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if the lock was acquired, false if it is already held, by anyone.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock.
	// Safe to call even if the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock.
	// Returns error if the lock is not held by this instance.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}

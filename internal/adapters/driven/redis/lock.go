package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var _ driven.DistributedLock = (*Lock)(nil)

// ErrLockNotHeld is returned by Extend when this instance no longer holds the lock
var ErrLockNotHeld = errors.New("lock not held")

// Lock is a lease stored as one Redis key per name whose value is the
// holder's token. It is not reentrant: a held name cannot be acquired again,
// not even by the same instance, so two workers of one process never run the
// same job.
type Lock struct {
	client *redis.Client
	token  string
}

// NewLock creates a lock whose leases are tagged with a token unique to this instance
func NewLock(client *redis.Client) *Lock {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return &Lock{
		client: client,
		token:  fmt.Sprintf("%s/%d/%s", host, os.Getpid(), uuid.NewString()),
	}
}

// Acquire takes the lease on name for ttl. It reports false when someone
// already holds it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, fmt.Errorf("acquire lock %s: ttl must be positive", name)
	}
	err := l.client.SetArgs(ctx, lockKey(name), l.token, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return true, nil
}

// holderScript deletes or re-expires KEYS[1] only while ARGV[1] holds it.
// ARGV[2] is "release" or "extend"; ARGV[3] is the new TTL in milliseconds.
var holderScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if ARGV[2] == "release" then
	return redis.call("DEL", KEYS[1])
end
return redis.call("PEXPIRE", KEYS[1], ARGV[3])
`)

func (l *Lock) asHolder(ctx context.Context, name, op string, ttl time.Duration) (bool, error) {
	n, err := holderScript.Run(ctx, l.client, []string{lockKey(name)}, l.token, op, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release drops the lease if this instance holds it. Releasing a lease that
// expired or belongs to someone else is a no-op.
func (l *Lock) Release(ctx context.Context, name string) error {
	if _, err := l.asHolder(ctx, name, "release", 0); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend pushes the expiry of a held lease to ttl from now
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	held, err := l.asHolder(ctx, name, "extend", ttl)
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if !held {
		return fmt.Errorf("extend lock %s: %w", name, ErrLockNotHeld)
	}
	return nil
}

// Ping checks the Redis connection
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

package vision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fastRetry = RetryPolicy{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := DefaultRetryPolicy

	assert.Equal(t, 4*time.Second, p.Backoff(1))
	assert.Equal(t, 8*time.Second, p.Backoff(2))
	assert.Equal(t, 10*time.Second, p.Backoff(3))
	assert.Equal(t, 10*time.Second, p.Backoff(10))
}

func TestRetryPolicy_Do_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := fastRetry.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_Do_Exhausted(t *testing.T) {
	calls := 0
	err := fastRetry.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})

	assert.EqualError(t, err, "down")
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_Do_Permanent(t *testing.T) {
	calls := 0
	cause := errors.New("bad request")
	err := fastRetry.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(cause)
	})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_Do_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{Attempts: 5, Base: time.Hour, Max: time.Hour}

	calls := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("down")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_Do_CallTimeout(t *testing.T) {
	p := fastRetry
	p.CallTimeout = 5 * time.Millisecond

	calls := 0
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, calls)
}

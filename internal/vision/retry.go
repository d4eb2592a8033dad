package vision

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds retries of one external call. Delays grow
// exponentially from Base and are capped at Max.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration

	// CallTimeout limits each attempt; zero means no per-attempt limit
	CallTimeout time.Duration
}

// DefaultRetryPolicy is three attempts with 4s and 8s pauses.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:    3,
	Base:        4 * time.Second,
	Max:         10 * time.Second,
	CallTimeout: 60 * time.Second,
}

// Backoff returns the pause before retry number attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Base
	for i := 1; i < attempt && d < p.Max; i++ {
		d *= 2
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// Do runs fn until it succeeds, the attempts are exhausted or ctx is done.
// The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = p.call(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, errPermanent) || attempt == attempts {
			break
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func (p RetryPolicy) call(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.CallTimeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

var errPermanent = errors.New("permanent failure")

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string   { return e.err.Error() }
func (e *permanentError) Unwrap() []error { return []error{e.err, errPermanent} }

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, errPermanent)
}

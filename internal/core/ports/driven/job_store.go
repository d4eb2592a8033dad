package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

// JobStore persists processing jobs and their results.
// Implementations: in-memory (default), Redis, PostgreSQL.
type JobStore interface {
	// Put creates or replaces a job.
	Put(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by ID. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, id string) (*domain.Job, error)

	// ListByStatus returns all jobs in the given status.
	ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error)

	// Update atomically applies mutate to the stored job and saves the result.
	// If mutate returns an error nothing is written and the error is returned.
	Update(ctx context.Context, id string, mutate func(job *domain.Job) error) (*domain.Job, error)

	// Delete removes a job and its result.
	Delete(ctx context.Context, id string) error

	// PutResult stores the result of a completed job.
	PutResult(ctx context.Context, result *domain.JobResult) error

	// GetResult retrieves a job result. Returns domain.ErrNotFound if missing.
	GetResult(ctx context.Context, jobID string) (*domain.JobResult, error)
}

// ArtifactStore holds uploaded files and generated exports.
type ArtifactStore interface {
	// Put writes data under key.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get reads the data stored under key. Returns domain.ErrNotFound if missing.
	Get(ctx context.Context, key string) ([]byte, error)

	// DeletePrefix removes every object whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}

// LinkSigner issues and verifies expiring download tokens.
type LinkSigner interface {
	// Sign returns a token granting access to a job artifact until expiry.
	Sign(jobID string, format domain.ExportFormat, ttl time.Duration) (token string, expiresAt time.Time, err error)

	// Verify validates a token and returns the job and format it grants.
	Verify(token string) (jobID string, format domain.ExportFormat, err error)
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/lib/pq"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

const jobColumns = `id, status, progress, message, project_id, files,
	created_at, updated_at, started_at, completed_at`

// JobStore implements driven.JobStore using PostgreSQL.
// Update locks the row with SELECT ... FOR UPDATE for the read-modify-write.
type JobStore struct {
	db *DB
}

// NewJobStore creates a new JobStore
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var projectID sql.NullInt64
	var files []string
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.Status,
		&job.Progress,
		&job.Message,
		&projectID,
		pq.Array(&files),
		&job.CreatedAt,
		&job.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.ProjectID = Int64Ptr(projectID)
	job.Files = files
	job.StartedAt = TimePtr(startedAt)
	job.CompletedAt = TimePtr(completedAt)
	return &job, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertJob(ctx context.Context, db execer, job *domain.Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			message = EXCLUDED.message,
			project_id = EXCLUDED.project_id,
			files = EXCLUDED.files,
			updated_at = EXCLUDED.updated_at,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at
	`
	files := job.Files
	if files == nil {
		files = []string{}
	}
	_, err := db.ExecContext(ctx, query,
		job.ID,
		string(job.Status),
		job.Progress,
		job.Message,
		NullInt64(job.ProjectID),
		pq.Array(files),
		job.CreatedAt,
		job.UpdatedAt,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
	)
	return err
}

// Put creates or replaces a job
func (s *JobStore) Put(ctx context.Context, job *domain.Job) error {
	if err := upsertJob(ctx, s.db, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// ListByStatus returns all jobs in the given status, oldest first
func (s *JobStore) ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1 ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// Update applies mutate to the job inside a transaction holding its row lock
func (s *JobStore) Update(ctx context.Context, id string, mutate func(job *domain.Job) error) (*domain.Job, error) {
	var updated *domain.Job
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 FOR UPDATE`

		job, err := scanJob(tx.QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock job: %w", err)
		}

		if err := mutate(job); err != nil {
			return err
		}
		if err := upsertJob(ctx, tx, job); err != nil {
			return fmt.Errorf("failed to save job: %w", err)
		}
		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a job; its result goes with it through the foreign key
func (s *JobStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// PutResult stores the result of a completed job as JSONB
func (s *JobStore) PutResult(ctx context.Context, result *domain.JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	query := `
		INSERT INTO job_results (job_id, result, completed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_id) DO UPDATE SET
			result = EXCLUDED.result,
			completed_at = EXCLUDED.completed_at
	`
	if _, err := s.db.ExecContext(ctx, query, result.JobID, data, result.CompletedAt); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// GetResult retrieves a job result
func (s *JobStore) GetResult(ctx context.Context, jobID string) (*domain.JobResult, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT result FROM job_results WHERE job_id = $1`, jobID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	var result domain.JobResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

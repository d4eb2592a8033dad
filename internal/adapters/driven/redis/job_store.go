package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

// maxUpdateRetries bounds optimistic transaction retries in Update
const maxUpdateRetries = 10

var allStatuses = []domain.JobStatus{
	domain.JobStatusQueued,
	domain.JobStatusProcessing,
	domain.JobStatusCompleted,
	domain.JobStatusFailed,
	domain.JobStatusCancelled,
}

// JobStore implements driven.JobStore using Redis.
// Jobs are JSON values indexed by per-status sets. Update uses
// WATCH/MULTI so concurrent writers never lose each other's changes.
type JobStore struct {
	client *redis.Client
}

// NewJobStore creates a new Redis-backed JobStore
func NewJobStore(client *redis.Client) *JobStore {
	return &JobStore{client: client}
}

func statusKey(status domain.JobStatus) string {
	return jobStatusKeyPrefix + string(status)
}

// writeJob queues the commands that store job and move it to its status set
func writeJob(ctx context.Context, pipe redis.Pipeliner, job *domain.Job, data []byte) {
	pipe.Set(ctx, jobKeyPrefix+job.ID, data, 0)
	for _, s := range allStatuses {
		if s != job.Status {
			pipe.SRem(ctx, statusKey(s), job.ID)
		}
	}
	pipe.SAdd(ctx, statusKey(job.Status), job.ID)
}

// Put creates or replaces a job
func (s *JobStore) Put(ctx context.Context, job *domain.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		writeJob(ctx, pipe, job, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// Get retrieves a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	data, err := s.client.Get(ctx, jobKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return decodeJob(data)
}

func decodeJob(data []byte) (*domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// ListByStatus returns all jobs currently in status
func (s *JobStore) ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	ids, err := s.client.SMembers(ctx, statusKey(status)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Job{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = jobKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs: %w", err)
	}

	jobs := make([]*domain.Job, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // deleted between SMEMBERS and MGET
		}
		job, err := decodeJob([]byte(str))
		if err != nil {
			return nil, err
		}
		if job.Status == status {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

// Update applies mutate inside an optimistic transaction
func (s *JobStore) Update(ctx context.Context, id string, mutate func(job *domain.Job) error) (*domain.Job, error) {
	key := jobKeyPrefix + id
	var updated *domain.Job

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}
		job, err := decodeJob(data)
		if err != nil {
			return err
		}
		if err := mutate(job); err != nil {
			return err
		}
		out, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			writeJob(ctx, pipe, job, out)
			return nil
		})
		if err == nil {
			updated = job
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update job: %w", err)
	}
	return nil, fmt.Errorf("failed to update job %s: too much contention", id)
}

// Delete removes a job, its result and its index entries
func (s *JobStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, jobKeyPrefix+id, jobResultKeyPrefix+id)
		for _, st := range allStatuses {
			pipe.SRem(ctx, statusKey(st), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// PutResult stores the result of a completed job
func (s *JobStore) PutResult(ctx context.Context, result *domain.JobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal job result: %w", err)
	}
	if err := s.client.Set(ctx, jobResultKeyPrefix+result.JobID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save job result: %w", err)
	}
	return nil
}

// GetResult retrieves a job result
func (s *JobStore) GetResult(ctx context.Context, jobID string) (*domain.JobResult, error) {
	data, err := s.client.Get(ctx, jobResultKeyPrefix+jobID).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job result: %w", err)
	}

	var result domain.JobResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
	}
	return &result, nil
}

// Ping checks if Redis is reachable
func (s *JobStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

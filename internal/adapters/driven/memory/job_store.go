// Package memory provides in-process adapters used when no external
// backing is configured. State is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

// JobStore keeps jobs and results in maps guarded by a mutex.
// Callers always receive copies.
type JobStore struct {
	mu      sync.RWMutex
	jobs    map[string]*domain.Job
	results map[string]*domain.JobResult
}

// NewJobStore creates an empty in-memory job store
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:    make(map[string]*domain.Job),
		results: make(map[string]*domain.JobResult),
	}
}

// Put creates or replaces a job
func (s *JobStore) Put(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get retrieves a job by ID
func (s *JobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job.Clone(), nil
}

// ListByStatus returns all jobs in the given status, oldest first
func (s *JobStore) ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := []*domain.Job{}
	for _, job := range s.jobs {
		if job.Status == status {
			jobs = append(jobs, job.Clone())
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs, nil
}

// Update applies mutate under the store lock
func (s *JobStore) Update(ctx context.Context, id string, mutate func(job *domain.Job) error) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	job := current.Clone()
	if err := mutate(job); err != nil {
		return nil, err
	}
	s.jobs[id] = job
	return job.Clone(), nil
}

// Delete removes a job and its result
func (s *JobStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	delete(s.results, id)
	return nil
}

// PutResult stores the result of a completed job
func (s *JobStore) PutResult(ctx context.Context, result *domain.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.JobID] = result
	return nil
}

// GetResult retrieves a job result
func (s *JobStore) GetResult(ctx context.Context, jobID string) (*domain.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return result, nil
}

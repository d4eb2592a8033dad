package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// pollInterval bounds how long a waiting consumer takes to see a delayed task become due
const pollInterval = 100 * time.Millisecond

// Queue is an in-process TaskQueue for single-instance deployments
type Queue struct {
	mu     sync.Mutex
	tasks  map[string]*domain.Task
	notify chan struct{}
	closed bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		tasks:  make(map[string]*domain.Task),
		notify: make(chan struct{}, 1),
	}
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Enqueue adds a task to the queue for processing
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	q.mu.Lock()
	c := *task
	q.tasks[task.ID] = &c
	q.mu.Unlock()

	q.signal()
	return nil
}

// next claims the most urgent due task, or returns nil
func (q *Queue) next() *domain.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var ready []*domain.Task
	for _, t := range q.tasks {
		if t.Status == domain.TaskStatusPending && !t.ScheduledFor.After(now) {
			ready = append(ready, t)
		}
	}
	if len(ready) == 0 {
		return nil
	}
	sort.Slice(ready, func(i, j int) bool {
		if ready[i].Priority != ready[j].Priority {
			return ready[i].Priority > ready[j].Priority
		}
		return ready[i].CreatedAt.Before(ready[j].CreatedAt)
	})

	task := ready[0]
	task.MarkProcessing()
	c := *task
	return &c
}

// Dequeue blocks until a task is available or the context is cancelled
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	for {
		if task := q.next(); task != nil {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.notify:
		case <-time.After(pollInterval):
		}
	}
}

// DequeueWithTimeout waits up to timeout seconds for a task
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	task, err := q.Dequeue(ctx)
	if err != nil {
		return nil, nil
	}
	return task, nil
}

// Ack marks a task completed
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	task.MarkCompleted()
	return nil
}

// Nack schedules a retry, or fails the task once attempts are exhausted
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return domain.ErrNotFound
	}
	if task.CanRetry() {
		task.Retry(reason)
	} else {
		task.MarkFailed(reason)
	}
	return nil
}

// GetTask returns a copy of the task, or nil, nil if unknown
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.tasks[taskID]
	if !ok {
		return nil, nil
	}
	c := *task
	return &c, nil
}

// Stats counts tasks by status
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := &driven.QueueStats{}
	for _, t := range q.tasks {
		switch t.Status {
		case domain.TaskStatusPending:
			stats.PendingCount++
		case domain.TaskStatusProcessing:
			stats.ProcessingCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

// Ping always succeeds unless the queue is closed
func (q *Queue) Ping(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("queue closed")
	}
	return nil
}

// Close marks the queue closed
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

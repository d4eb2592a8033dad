package memory

import (
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	task := domain.NewProcessJobTask("job-1")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "job-1", got.JobID())
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)

	again, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, again, "a claimed task is not handed out twice")

	require.NoError(t, q.Ack(ctx, task.ID))
	stored, _ := q.GetTask(ctx, task.ID)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
}

func TestQueue_PriorityOrder(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	low := domain.NewProcessJobTask("low")
	high := domain.NewProcessJobTask("high")
	high.Priority = 10
	require.NoError(t, q.Enqueue(ctx, low))
	require.NoError(t, q.Enqueue(ctx, high))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "high", got.JobID())
}

func TestQueue_DequeueWakesOnEnqueue(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan *domain.Task, 1)
	go func() {
		task, _ := q.Dequeue(ctx)
		done <- task
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, domain.NewPurgeJobsTask()))

	select {
	case task := <-done:
		require.NotNil(t, task)
		assert.Equal(t, domain.TaskTypePurgeJobs, task.Type)
	case <-ctx.Done():
		t.Fatal("dequeue did not wake up")
	}
}

func TestQueue_DequeueCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewQueue().Dequeue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQueue_NackRetryThenFail(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	task := domain.NewProcessJobTask("job-1")
	task.MaxAttempts = 2
	require.NoError(t, q.Enqueue(ctx, task))

	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, task.ID, "first"))

	stored, _ := q.GetTask(ctx, task.ID)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.True(t, stored.ScheduledFor.After(time.Now()))

	stats, _ := q.Stats(ctx)
	assert.Equal(t, int64(1), stats.PendingCount)

	// Second attempt exhausts the budget
	q.mu.Lock()
	q.tasks[task.ID].ScheduledFor = time.Now().Add(-time.Second)
	q.mu.Unlock()
	_, err = q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, task.ID, "second"))

	stored, _ = q.GetTask(ctx, task.ID)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	stats, _ = q.Stats(ctx)
	assert.Equal(t, int64(1), stats.FailedCount)
}

func TestQueue_UnknownTask(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	assert.ErrorIs(t, q.Ack(ctx, "x"), domain.ErrNotFound)
	assert.ErrorIs(t, q.Nack(ctx, "x", "r"), domain.ErrNotFound)
	task, err := q.GetTask(ctx, "x")
	assert.NoError(t, err)
	assert.Nil(t, task)
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue()
	require.NoError(t, q.Ping(context.Background()))
	require.NoError(t, q.Close())
	assert.Error(t, q.Ping(context.Background()))
}

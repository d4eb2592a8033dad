package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

const schedulerLockName = "scheduler"

// Scheduler enqueues recurring maintenance tasks.
// It runs on worker nodes alongside the task processors.
//
// For multi-worker deployments, configure a DistributedLock so that only one
// instance enqueues a due task.
type Scheduler struct {
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	mu        sync.RWMutex
	schedules map[string]*domain.ScheduledTask
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	interval  time.Duration

	lockTTL time.Duration
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	TaskQueue driven.TaskQueue
	Lock      driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger    *slog.Logger

	// Schedules defaults to domain.DefaultSchedule()
	Schedules []*domain.ScheduledTask

	PollInterval time.Duration // How often to check for due tasks (default: 30s)
	LockTTL      time.Duration // TTL for the distributed lock (default: 60s)
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.PollInterval
	if interval == 0 {
		interval = 30 * time.Second
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 2 * interval
	}

	schedules := cfg.Schedules
	if schedules == nil {
		schedules = domain.DefaultSchedule()
	}
	byID := make(map[string]*domain.ScheduledTask, len(schedules))
	for _, s := range schedules {
		byID[s.ID] = s
	}

	return &Scheduler{
		taskQueue: cfg.TaskQueue,
		lock:      cfg.Lock,
		logger:    logger,
		schedules: byID,
		interval:  interval,
		lockTTL:   lockTTL,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval, "schedules", len(s.schedules))

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.checkAndEnqueue(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkAndEnqueue(ctx)
		}
	}
}

// checkAndEnqueue enqueues every due schedule. With a lock configured, a
// cycle is skipped unless this instance holds the lock.
func (s *Scheduler) checkAndEnqueue(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, schedulerLockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			return
		}
		if !acquired {
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		}
		defer func() {
			if err := s.lock.Release(ctx, schedulerLockName); err != nil {
				s.logger.Warn("failed to release scheduler lock", "error", err)
			}
		}()
	}

	for _, scheduled := range s.due() {
		task := s.createTask(scheduled)

		if err := s.taskQueue.Enqueue(ctx, task); err != nil {
			s.logger.Error("failed to enqueue scheduled task",
				"scheduled_id", scheduled.ID,
				"error", err,
			)
			s.recordRun(scheduled.ID, err.Error())
			continue
		}

		s.logger.Info("enqueued scheduled task",
			"scheduled_id", scheduled.ID,
			"task_id", task.ID,
			"task_type", task.Type,
		)
		s.recordRun(scheduled.ID, "")
	}
}

func (s *Scheduler) due() []*domain.ScheduledTask {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*domain.ScheduledTask
	for _, scheduled := range s.schedules {
		if scheduled.IsDue() {
			due = append(due, scheduled)
		}
	}
	return due
}

func (s *Scheduler) recordRun(id, lastError string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduled, ok := s.schedules[id]
	if !ok {
		return
	}
	scheduled.LastError = lastError
	scheduled.UpdateNextRun()
}

func (s *Scheduler) createTask(scheduled *domain.ScheduledTask) *domain.Task {
	return domain.NewTask(scheduled.Type, nil)
}

// ScheduledTasks returns a snapshot of the configured schedules.
func (s *Scheduler) ScheduledTasks() []domain.ScheduledTask {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ScheduledTask, 0, len(s.schedules))
	for _, scheduled := range s.schedules {
		out = append(out, *scheduled)
	}
	return out
}

// SetEnabled enables or disables a schedule.
func (s *Scheduler) SetEnabled(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduled, ok := s.schedules[id]
	if !ok {
		return domain.ErrNotFound
	}
	scheduled.Enabled = enabled
	return nil
}

// TriggerNow immediately enqueues a scheduled task (ignoring schedule).
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	scheduled, ok := s.schedules[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	task := s.createTask(scheduled)

	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("manually triggered scheduled task",
		"scheduled_id", scheduled.ID,
		"task_id", task.ID,
	)

	return task, nil
}

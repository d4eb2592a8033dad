package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// DefaultRetention is how long finished jobs and their files are kept
const DefaultRetention = 24 * time.Hour

// RetentionConfig holds configuration for the retention service
type RetentionConfig struct {
	Jobs      driven.JobStore
	Artifacts driven.ArtifactStore
	Retention time.Duration
	Logger    *slog.Logger

	// Now returns the current time; defaults to time.Now
	Now func() time.Time
}

// Retention deletes finished jobs once they expire
type Retention struct {
	jobs      driven.JobStore
	artifacts driven.ArtifactStore
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewRetention creates a retention service
func NewRetention(cfg RetentionConfig) *Retention {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Retention{
		jobs:      cfg.Jobs,
		artifacts: cfg.Artifacts,
		retention: cfg.Retention,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

var terminalStatuses = []domain.JobStatus{
	domain.JobStatusCompleted,
	domain.JobStatusFailed,
	domain.JobStatusCancelled,
}

// PurgeExpired removes terminal jobs that finished before the retention
// window, along with their uploads and exports. Returns the number purged.
func (r *Retention) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.retention)
	purged := 0

	for _, status := range terminalStatuses {
		jobs, err := r.jobs.ListByStatus(ctx, status)
		if err != nil {
			return purged, fmt.Errorf("list %s jobs: %w", status, err)
		}
		for _, job := range jobs {
			finished := job.UpdatedAt
			if job.CompletedAt != nil {
				finished = *job.CompletedAt
			}
			if !finished.Before(cutoff) {
				continue
			}

			if err := r.artifacts.DeletePrefix(ctx, JobPrefix(job.ID)); err != nil {
				r.logger.Warn("failed to delete job files", "job_id", job.ID, "error", err)
				continue
			}
			if err := r.jobs.Delete(ctx, job.ID); err != nil {
				return purged, fmt.Errorf("delete job %s: %w", job.ID, err)
			}
			purged++
		}
	}

	if purged > 0 {
		r.logger.Info("expired jobs purged", "count", purged, "retention", r.retention)
	}
	return purged, nil
}

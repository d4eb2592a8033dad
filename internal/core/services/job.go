package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driving"
)

// Ensure jobService implements JobService
var _ driving.JobService = (*jobService)(nil)

// Cancel replies
const (
	MessageCancelAccepted = "Task cancelled successfully"
	MessageCancelRejected = "Task already completed or failed, cannot cancel"
	MessageCancelUnknown  = "Unable to cancel task, unknown state"
)

// Defaults for job submission
const (
	DefaultMaxUploadSize = 100 << 20
	DefaultLinkTTL       = time.Hour
)

// JobServiceConfig holds the collaborators of the job service
type JobServiceConfig struct {
	Jobs      driven.JobStore
	Artifacts driven.ArtifactStore
	TaskQueue driven.TaskQueue

	// Signer is optional; without it share links are unavailable
	Signer  driven.LinkSigner
	LinkTTL time.Duration

	// MaxUploadSize bounds each uploaded file in bytes
	MaxUploadSize int64

	Logger *slog.Logger
}

// jobService implements the JobService interface
type jobService struct {
	jobs          driven.JobStore
	artifacts     driven.ArtifactStore
	taskQueue     driven.TaskQueue
	signer        driven.LinkSigner
	linkTTL       time.Duration
	maxUploadSize int64
	logger        *slog.Logger
}

// NewJobService creates a new JobService
func NewJobService(cfg JobServiceConfig) driving.JobService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = DefaultLinkTTL
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}
	return &jobService{
		jobs:          cfg.Jobs,
		artifacts:     cfg.Artifacts,
		taskQueue:     cfg.TaskQueue,
		signer:        cfg.Signer,
		linkTTL:       cfg.LinkTTL,
		maxUploadSize: cfg.MaxUploadSize,
		logger:        cfg.Logger,
	}
}

// Submit checks every file before anything is stored, so a rejected
// submission leaves no job behind.
func (s *jobService) Submit(ctx context.Context, req driving.SubmitRequest) (*domain.Job, error) {
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", domain.ErrInvalidInput)
	}

	names := make([]string, len(req.Files))
	seen := make(map[string]bool, len(req.Files))
	for i, file := range req.Files {
		if int64(len(file.Data)) > s.maxUploadSize {
			return nil, fmt.Errorf("%w: %s", domain.ErrFileTooLarge, file.Filename)
		}
		contentType := domain.DetectContentType(file.Data, file.ContentType, file.Filename)
		if !domain.IsSupportedUploadType(contentType) {
			s.logger.Warn("unsupported file type", "filename", file.Filename, "content_type", contentType)
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, contentType)
		}

		name := sanitizeFilename(file.Filename, i)
		if seen[name] {
			name = fmt.Sprintf("%d_%s", i+1, name)
		}
		seen[name] = true
		names[i] = name
	}

	job := domain.NewJob(names, req.ProjectID)
	for i, file := range req.Files {
		if err := s.artifacts.Put(ctx, UploadKey(job.ID, names[i]), file.Data, file.ContentType); err != nil {
			s.discard(ctx, job.ID)
			return nil, fmt.Errorf("store upload %s: %w", names[i], err)
		}
	}
	if err := s.jobs.Put(ctx, job); err != nil {
		s.discard(ctx, job.ID)
		return nil, fmt.Errorf("store job: %w", err)
	}
	if err := s.taskQueue.Enqueue(ctx, domain.NewProcessJobTask(job.ID)); err != nil {
		s.discard(ctx, job.ID)
		_ = s.jobs.Delete(ctx, job.ID)
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	s.logger.Info("job submitted", "job_id", job.ID, "files", len(names))
	return job, nil
}

func sanitizeFilename(name string, index int) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." || strings.TrimSpace(name) == "" {
		return fmt.Sprintf("upload_%d", index+1)
	}
	return name
}

func (s *jobService) discard(ctx context.Context, jobID string) {
	if err := s.artifacts.DeletePrefix(ctx, JobPrefix(jobID)); err != nil {
		s.logger.Warn("failed to remove uploads of rejected job", "job_id", jobID, "error", err)
	}
}

// Status returns the current state of a job
func (s *jobService) Status(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.jobs.Get(ctx, jobID)
}

// Download returns the export of a completed job in the given format
func (s *jobService) Download(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.Artifact, error) {
	format, err := domain.ParseExportFormat(string(format))
	if err != nil {
		return nil, err
	}
	result, err := s.completedResult(ctx, jobID)
	if err != nil {
		return nil, err
	}

	key, ok := result.Artifacts[format]
	if !ok {
		return nil, domain.ErrNotFound
	}
	data, err := s.artifacts.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &driving.Artifact{
		Filename:    format.ArtifactName(jobID),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// DownloadLink issues a signed link for a completed job's export
func (s *jobService) DownloadLink(ctx context.Context, jobID string, format domain.ExportFormat) (*driving.DownloadLink, error) {
	if s.signer == nil {
		return nil, fmt.Errorf("%w: share links are not configured", domain.ErrServiceUnavailable)
	}
	format, err := domain.ParseExportFormat(string(format))
	if err != nil {
		return nil, err
	}
	if _, err := s.completedResult(ctx, jobID); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(jobID, format, s.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("sign download link: %w", err)
	}
	return &driving.DownloadLink{Token: token, ExpiresAt: expiresAt}, nil
}

// DownloadShared resolves a signed link token to its artifact
func (s *jobService) DownloadShared(ctx context.Context, token string) (*driving.Artifact, error) {
	if s.signer == nil {
		return nil, fmt.Errorf("%w: share links are not configured", domain.ErrServiceUnavailable)
	}
	jobID, format, err := s.signer.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.Download(ctx, jobID, format)
}

// Validation returns the per-invoice validation reports of a completed job
func (s *jobService) Validation(ctx context.Context, jobID string) ([]domain.InvoiceReport, error) {
	result, err := s.completedResult(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if result.Reports == nil {
		return []domain.InvoiceReport{}, nil
	}
	return result.Reports, nil
}

// Anomalies returns the flagged invoices of a completed job
func (s *jobService) Anomalies(ctx context.Context, jobID string) ([]domain.FlaggedInvoice, error) {
	result, err := s.completedResult(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if result.Anomalies == nil {
		return []domain.FlaggedInvoice{}, nil
	}
	return result.Anomalies, nil
}

// completedResult returns the result of a job only once it has completed
func (s *jobService) completedResult(ctx context.Context, jobID string) (*domain.JobResult, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, domain.ErrJobNotCompleted
	}
	return s.jobs.GetResult(ctx, jobID)
}

// Cancel marks a queued or running job as cancelled. The pipeline notices
// at its next progress update. A job already in a terminal state is left
// untouched and reported as not cancelled.
func (s *jobService) Cancel(ctx context.Context, jobID string) (*driving.CancelResult, error) {
	var status domain.JobStatus
	_, err := s.jobs.Update(ctx, jobID, func(job *domain.Job) error {
		status = job.Status
		if !job.CanCancel() {
			return domain.ErrJobTerminal
		}
		job.MarkCancelled()
		return nil
	})
	if errors.Is(err, domain.ErrJobTerminal) {
		msg := MessageCancelRejected
		if status == domain.JobStatusCancelled {
			msg = MessageCancelUnknown
		}
		return &driving.CancelResult{Cancelled: false, Message: msg}, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("job cancelled", "job_id", jobID)
	return &driving.CancelResult{Cancelled: true, Message: MessageCancelAccepted}, nil
}

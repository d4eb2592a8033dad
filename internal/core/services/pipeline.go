package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/custodia-labs/ledgerscan/internal/export"
	"github.com/custodia-labs/ledgerscan/internal/extraction"
	"github.com/custodia-labs/ledgerscan/internal/validation"
	"github.com/custodia-labs/ledgerscan/internal/vision"
)

// Default pipeline time limits
const (
	DefaultJobTimeout     = 10 * time.Minute
	DefaultJobSoftTimeout = 7 * time.Minute

	// DefaultJobLockTTL is the lease of a job lock; it is renewed every third of it
	DefaultJobLockTTL = time.Minute
)

// JobLockName is the lock held while a job is processed
func JobLockName(jobID string) string {
	return "job:" + jobID
}

// exportFormats are written for every completed job
var exportFormats = []domain.ExportFormat{domain.ExportCSV, domain.ExportExcel}

// UploadKey is the artifact key of an uploaded file
func UploadKey(jobID, filename string) string {
	return jobID + "/uploads/" + filename
}

// ArtifactKey is the artifact key of a job export
func ArtifactKey(jobID string, format domain.ExportFormat) string {
	return jobID + "/" + format.ArtifactName(jobID)
}

// JobPrefix is the artifact prefix holding everything stored for a job
func JobPrefix(jobID string) string {
	return jobID + "/"
}

// PipelineConfig holds the collaborators of the processing pipeline
type PipelineConfig struct {
	Jobs        driven.JobStore
	Artifacts   driven.ArtifactStore
	Normalisers driven.NormaliserRegistry
	Vision      *vision.Adapter
	Extractor   *extraction.Engine
	Validator   *validation.Validator
	Exporter    *export.Exporter
	Logger      *slog.Logger

	// Lock, when set, keeps two workers from running the same job
	Lock    driven.DistributedLock
	LockTTL time.Duration

	// Timeout fails a job that runs longer; SoftTimeout only logs a warning
	Timeout     time.Duration
	SoftTimeout time.Duration
}

// Pipeline runs one job from uploaded files to exported reports
type Pipeline struct {
	jobs        driven.JobStore
	artifacts   driven.ArtifactStore
	normalisers driven.NormaliserRegistry
	vision      *vision.Adapter
	extractor   *extraction.Engine
	validator   *validation.Validator
	exporter    *export.Exporter
	logger      *slog.Logger
	lock        driven.DistributedLock
	lockTTL     time.Duration
	timeout     time.Duration
	softTimeout time.Duration
}

// NewPipeline creates a pipeline
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultJobTimeout
	}
	if cfg.SoftTimeout <= 0 || cfg.SoftTimeout > cfg.Timeout {
		cfg.SoftTimeout = min(DefaultJobSoftTimeout, cfg.Timeout)
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultJobLockTTL
	}
	if cfg.Extractor == nil {
		cfg.Extractor = extraction.NewEngine(extraction.Config{Logger: cfg.Logger})
	}
	if cfg.Validator == nil {
		cfg.Validator = validation.New(validation.Config{Logger: cfg.Logger})
	}
	if cfg.Exporter == nil {
		cfg.Exporter = export.New(export.Config{Logger: cfg.Logger})
	}
	return &Pipeline{
		jobs:        cfg.Jobs,
		artifacts:   cfg.Artifacts,
		normalisers: cfg.Normalisers,
		vision:      cfg.Vision,
		extractor:   cfg.Extractor,
		validator:   cfg.Validator,
		exporter:    cfg.Exporter,
		logger:      cfg.Logger,
		lock:        cfg.Lock,
		lockTTL:     cfg.LockTTL,
		timeout:     cfg.Timeout,
		softTimeout: cfg.SoftTimeout,
	}
}

// Run processes a job. Job-level failures are recorded on the job and
// reported as success to the caller. An interrupted caller context or a job
// locked by another worker returns an error so the task is retried later.
func (p *Pipeline) Run(ctx context.Context, jobID string) error {
	logger := p.logger.With("job_id", jobID)

	release, err := p.holdJobLock(ctx, jobID, logger)
	if err != nil {
		if errors.Is(err, domain.ErrJobLocked) {
			logger.Info("job is locked by another worker, deferring")
		}
		return err
	}
	defer release()

	job, err := p.jobs.Update(ctx, jobID, func(job *domain.Job) error {
		switch job.Status {
		case domain.JobStatusQueued:
			job.MarkProcessing()
		case domain.JobStatusProcessing:
			// resumed after a worker restart
			job.SetProgress(job.Progress, domain.MessageStarting)
		default:
			return domain.ErrJobTerminal
		}
		return nil
	})
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Warn("job no longer exists, skipping")
		return nil
	case errors.Is(err, domain.ErrJobTerminal):
		logger.Info("job already finished, skipping")
		return nil
	case err != nil:
		return fmt.Errorf("start job: %w", err)
	}

	start := time.Now()
	logger.Info("job processing started", "files", len(job.Files))

	runCtx, cancel := context.WithTimeoutCause(ctx, p.timeout, domain.ErrTimeout)
	defer cancel()

	soft := time.AfterFunc(p.softTimeout, func() {
		logger.Warn("job is running long", "elapsed", time.Since(start), "threshold", p.softTimeout)
	})
	defer soft.Stop()

	result, err := p.process(runCtx, job, logger)
	if err == nil {
		logger.Info("job completed",
			"invoices", result.TotalInvoices,
			"flagged", result.FlaggedInvoices,
			"duration", time.Since(start))
		return nil
	}

	switch {
	case errors.Is(err, domain.ErrJobCancelled):
		logger.Info("job cancelled during processing", "duration", time.Since(start))
		return nil
	case ctx.Err() != nil:
		logger.Warn("job interrupted", "error", ctx.Err())
		return ctx.Err()
	case errors.Is(context.Cause(runCtx), domain.ErrTimeout):
		logger.Error("job timed out", "timeout", p.timeout)
		p.fail(ctx, jobID, fmt.Sprintf("Processing timed out after %s", p.timeout), logger)
		return nil
	default:
		logger.Error("job failed", "error", err)
		p.fail(ctx, jobID, "Error: "+err.Error(), logger)
		return nil
	}
}

// holdJobLock takes the job lock and renews it until the returned func is
// called. Without a lock configured it is a no-op.
func (p *Pipeline) holdJobLock(ctx context.Context, jobID string, logger *slog.Logger) (func(), error) {
	if p.lock == nil {
		return func() {}, nil
	}
	name := JobLockName(jobID)
	acquired, err := p.lock.Acquire(ctx, name, p.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire job lock: %w", err)
	}
	if !acquired {
		return nil, domain.ErrJobLocked
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(p.lockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := p.lock.Extend(ctx, name, p.lockTTL); err != nil {
					logger.Warn("failed to renew job lock", "error", err)
				}
			}
		}
	}()

	return func() {
		close(stop)
		<-done
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := p.lock.Release(releaseCtx, name); err != nil {
			logger.Warn("failed to release job lock", "error", err)
		}
	}, nil
}

// slot keeps the submission order of documents and unreadable files
type slot struct {
	doc      *domain.Document
	filename string
}

func (p *Pipeline) process(ctx context.Context, job *domain.Job, logger *slog.Logger) (*domain.JobResult, error) {
	slots, docs, err := p.normalise(ctx, job, logger)
	if err != nil {
		return nil, err
	}

	invoices, err := p.extract(ctx, job.ID, slots, docs, logger)
	if err != nil {
		return nil, err
	}
	if err := p.progress(ctx, job.ID, domain.ProgressExtracted, domain.MessageExtracted); err != nil {
		return nil, err
	}

	reports := p.validator.ValidateAll(invoices)
	if err := p.progress(ctx, job.ID, domain.ProgressValidated, domain.MessageValidated); err != nil {
		return nil, err
	}

	if err := p.progress(ctx, job.ID, domain.ProgressExporting, domain.MessageExporting); err != nil {
		return nil, err
	}
	flagged := p.validator.FlagAnomalies(invoices)

	artifacts := make(map[domain.ExportFormat]string, len(exportFormats))
	for _, format := range exportFormats {
		data, err := p.exporter.Export(invoices, format)
		if err != nil {
			return nil, err
		}
		key := ArtifactKey(job.ID, format)
		if err := p.artifacts.Put(ctx, key, data, format.ContentType()); err != nil {
			return nil, fmt.Errorf("store %s export: %w", format, err)
		}
		artifacts[format] = key
	}

	result := &domain.JobResult{
		JobID:           job.ID,
		Invoices:        invoices,
		Reports:         reports,
		Anomalies:       flagged,
		Artifacts:       artifacts,
		TotalInvoices:   len(invoices),
		FlaggedInvoices: len(flagged),
		CompletedAt:     time.Now(),
	}
	if err := p.jobs.PutResult(ctx, result); err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}

	_, err = p.jobs.Update(ctx, job.ID, func(j *domain.Job) error {
		if j.Status == domain.JobStatusCancelled {
			return domain.ErrJobCancelled
		}
		j.MarkCompleted()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// normalise reads each upload and splits it into documents. A file that
// cannot be read keeps its place as a placeholder invoice.
func (p *Pipeline) normalise(ctx context.Context, job *domain.Job, logger *slog.Logger) ([]slot, []*domain.Document, error) {
	var (
		slots []slot
		docs  []*domain.Document
	)
	total := len(job.Files)
	for i, name := range job.Files {
		data, err := p.artifacts.Get(ctx, UploadKey(job.ID, name))
		if err != nil {
			return nil, nil, fmt.Errorf("read upload %s: %w", name, err)
		}

		out, err := p.normalisers.Normalise(ctx, domain.SourceFile{Filename: name, Data: data})
		var fileErr *domain.FileError
		switch {
		case errors.As(err, &fileErr):
			logger.Warn("file could not be normalised", "filename", name, "error", err)
			slots = append(slots, slot{filename: name})
		case err != nil:
			return nil, nil, err
		default:
			for _, doc := range out {
				slots = append(slots, slot{doc: doc, filename: doc.Filename})
				docs = append(docs, doc)
			}
		}

		progress := domain.ProgressNormalized * (i + 1) / total
		if err := p.progress(ctx, job.ID, progress, fmt.Sprintf("Processed %d of %d files", i+1, total)); err != nil {
			return nil, nil, err
		}
	}
	logger.Info("files normalised", "files", total, "documents", len(docs))
	return slots, docs, nil
}

// extract recognizes every document and builds one invoice per slot
func (p *Pipeline) extract(ctx context.Context, jobID string, slots []slot, docs []*domain.Document, logger *slog.Logger) ([]*domain.Invoice, error) {
	stageCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	span := domain.ProgressExtracted - domain.ProgressNormalized
	results, err := p.vision.ProcessAll(stageCtx, docs, func(done, total int) {
		progress := domain.ProgressNormalized + span*done/total
		msg := fmt.Sprintf("Processed %d out of %d documents", done, total)
		if err := p.progress(ctx, jobID, progress, msg); err != nil {
			stop(err)
		}
	})
	if err != nil {
		if cause := context.Cause(stageCtx); cause != nil && !errors.Is(cause, context.Canceled) {
			return nil, cause
		}
		return nil, err
	}

	invoices := make([]*domain.Invoice, 0, len(slots))
	next := 0
	for _, s := range slots {
		if s.doc == nil {
			invoices = append(invoices, domain.NewPlaceholderInvoice(s.filename))
			continue
		}
		r := results[next]
		next++
		if r.Err != nil {
			logger.Warn("document recognition failed, recording placeholder",
				"document", s.filename, "error", r.Err)
			inv := domain.NewPlaceholderInvoice(s.filename)
			inv.Pages = s.doc.Pages()
			invoices = append(invoices, inv)
			continue
		}
		invoices = append(invoices, p.extractor.Extract(ctx, s.filename, s.doc.Pages(), r.Recognition))
	}
	return invoices, nil
}

// progress records a milestone unless the job was cancelled meanwhile
func (p *Pipeline) progress(ctx context.Context, jobID string, progress int, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.jobs.Update(ctx, jobID, func(job *domain.Job) error {
		if job.Status == domain.JobStatusCancelled {
			return domain.ErrJobCancelled
		}
		job.SetProgress(progress, message)
		return nil
	})
	return err
}

func (p *Pipeline) fail(ctx context.Context, jobID, message string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	_, err := p.jobs.Update(ctx, jobID, func(job *domain.Job) error {
		if job.Status.IsTerminal() {
			return domain.ErrJobTerminal
		}
		job.MarkFailed(message)
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrJobTerminal) {
		logger.Error("failed to record job failure", "error", err)
	}
}

package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

// SubmitRequest carries the files of a new job
type SubmitRequest struct {
	Files     []domain.SourceFile
	ProjectID *int64
}

// CancelResult reports the outcome of a cancel request
type CancelResult struct {
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"status"`
}

// Artifact is a downloadable export
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// DownloadLink is a signed, expiring URL token for an artifact
type DownloadLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// JobService manages invoice processing jobs
type JobService interface {
	// Submit validates the uploaded files, stores them and queues a job.
	// Returns domain.ErrUnsupportedType or domain.ErrFileTooLarge before any job is created.
	Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error)

	// Status returns the current state of a job
	Status(ctx context.Context, jobID string) (*domain.Job, error)

	// Download returns the export of a completed job in the given format
	Download(ctx context.Context, jobID string, format domain.ExportFormat) (*Artifact, error)

	// DownloadLink issues a signed link for a completed job's export
	DownloadLink(ctx context.Context, jobID string, format domain.ExportFormat) (*DownloadLink, error)

	// DownloadShared resolves a signed link token to its artifact
	DownloadShared(ctx context.Context, token string) (*Artifact, error)

	// Validation returns the per-invoice validation reports of a completed job
	Validation(ctx context.Context, jobID string) ([]domain.InvoiceReport, error)

	// Anomalies returns the flagged invoices of a completed job
	Anomalies(ctx context.Context, jobID string) ([]domain.FlaggedInvoice, error)

	// Cancel requests cooperative cancellation of a non-terminal job
	Cancel(ctx context.Context, jobID string) (*CancelResult, error)
}

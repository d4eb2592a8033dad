package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a processing job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "Queued"
	JobStatusProcessing JobStatus = "Processing"
	JobStatusCompleted  JobStatus = "Completed"
	JobStatusFailed     JobStatus = "Failed"
	JobStatusCancelled  JobStatus = "Cancelled"
)

// IsTerminal returns true for Completed, Failed and Cancelled
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Progress milestones reported by the pipeline.
const (
	ProgressStart          = 0
	ProgressNormalized     = 20
	ProgressExtracted      = 60
	ProgressValidated      = 80
	ProgressExporting      = 90
	ProgressComplete       = 100
	ProgressCancelledReset = 0
)

// Status messages reported to pollers.
const (
	MessageQueued    = "Task queued"
	MessageStarting  = "Starting processing"
	MessageExtracted = "OCR and Data extraction completed"
	MessageValidated = "Validation completed"
	MessageExporting = "Generating reports"
	MessageCompleted = "Processing completed"
	MessageCancelled = "Task cancelled by user"
)

// Job is one submission of uploaded files and its processing state
type Job struct {
	// ID is the opaque job identifier returned to the client
	ID string `json:"id"`

	// Status is the current lifecycle state
	Status JobStatus `json:"status"`

	// Progress is the completion percentage, 0..100
	Progress int `json:"progress"`

	// Message is a human-readable description of the current step
	Message string `json:"message"`

	// ProjectID optionally correlates the job with an external project
	ProjectID *int64 `json:"project_id,omitempty"`

	// Files holds the names of the uploaded files
	Files []string `json:"files"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a queued job for the given files
func NewJob(files []string, projectID *int64) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    JobStatusQueued,
		Progress:  ProgressStart,
		Message:   MessageQueued,
		ProjectID: projectID,
		Files:     files,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanCancel returns true if the job may still be cancelled
func (j *Job) CanCancel() bool {
	return !j.Status.IsTerminal()
}

// MarkProcessing moves a queued job into processing
func (j *Job) MarkProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.Progress = ProgressStart
	j.Message = MessageStarting
	j.StartedAt = &now
	j.UpdatedAt = now
}

// SetProgress records progress. Progress never decreases; a lower value only
// updates the message.
func (j *Job) SetProgress(progress int, message string) {
	if progress > ProgressComplete {
		progress = ProgressComplete
	}
	if progress > j.Progress {
		j.Progress = progress
	}
	j.Message = message
	j.UpdatedAt = time.Now()
}

// MarkCompleted moves the job to Completed at 100%
func (j *Job) MarkCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Progress = ProgressComplete
	j.Message = MessageCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkFailed moves the job to Failed with the given message
func (j *Job) MarkFailed(message string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.Progress = ProgressComplete
	j.Message = message
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkCancelled moves the job to Cancelled
func (j *Job) MarkCancelled() {
	now := time.Now()
	j.Status = JobStatusCancelled
	j.Progress = ProgressCancelledReset
	j.Message = MessageCancelled
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Clone returns a copy that shares no mutable state with j
func (j *Job) Clone() *Job {
	c := *j
	c.Files = append([]string(nil), j.Files...)
	if j.ProjectID != nil {
		id := *j.ProjectID
		c.ProjectID = &id
	}
	return &c
}

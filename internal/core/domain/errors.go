package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an uploaded file type is not accepted
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrFileTooLarge indicates an uploaded file exceeds the size limit
	ErrFileTooLarge = errors.New("file too large")

	// ErrJobNotCompleted indicates results were requested before the job completed
	ErrJobNotCompleted = errors.New("processing not completed")

	// ErrInvalidFormat indicates an unknown export format
	ErrInvalidFormat = errors.New("invalid format")

	// ErrJobTerminal indicates the job already reached a terminal state
	ErrJobTerminal = errors.New("job already completed or failed")

	// ErrJobCancelled indicates the job was cancelled while work was in flight
	ErrJobCancelled = errors.New("job cancelled")

	// ErrJobLocked indicates another worker is already processing the job
	ErrJobLocked = errors.New("job is being processed by another worker")

	// ErrTimeout indicates the job exceeded its wall-clock ceiling
	ErrTimeout = errors.New("processing timed out")

	// ErrTokenExpired indicates a signed link has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates a signed link is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrServiceUnavailable indicates an external service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// FileError reports an input file that could not be read or classified.
type FileError struct {
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file processing error: %s: %v", e.Filename, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// NewFileError wraps err as a FileError for filename.
func NewFileError(filename string, err error) *FileError {
	return &FileError{Filename: filename, Err: err}
}

// ExtractionError reports a document whose recognition failed after retries.
type ExtractionError struct {
	Document string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error: %s: %v", e.Document, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError reports an invoice that could not be validated at all.
type ValidationError struct {
	Filename string
	Err      error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %v", e.Filename, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

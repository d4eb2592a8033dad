package driven

import (
	"context"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

// Normaliser turns one uploaded file into invoice candidate documents.
type Normaliser interface {
	// Normalise splits or converts a file into documents.
	// Unreadable input returns a *domain.FileError.
	Normalise(ctx context.Context, file domain.SourceFile) ([]*domain.Document, error)

	// SupportedTypes returns MIME types this normaliser handles.
	// Can include wildcards like "image/*" or specific types like "application/pdf".
	SupportedTypes() []string

	// Priority returns the normaliser priority (higher = more specific).
	// Priority ranges:
	//   50-100: Format-specific (PDF, ZIP, PNG)
	//   10-49:  Generic (image/*)
	Priority() int
}

// NormaliserRegistry manages document normalisers.
// When multiple normalisers match a MIME type, the highest priority one is used.
type NormaliserRegistry interface {
	// Normalise classifies a file by content and dispatches it to the
	// best-matching normaliser. Unsupported types return a *domain.FileError.
	Normalise(ctx context.Context, file domain.SourceFile) ([]*domain.Document, error)

	// Get retrieves the best-matching normaliser for a MIME type.
	// Returns nil if no normaliser is registered for the type.
	Get(mimeType string) Normaliser

	// GetAll retrieves all normalisers that match a MIME type, sorted by priority (highest first).
	GetAll(mimeType string) []Normaliser

	// Register registers a normaliser.
	Register(normaliser Normaliser)

	// List returns all registered MIME types.
	List() []string
}

// PDFRasterizer renders PDF pages to PNG images.
type PDFRasterizer interface {
	// Rasterize returns one PNG per page, in page order.
	Rasterize(ctx context.Context, pdf []byte, dpi int) ([][]byte, error)
}

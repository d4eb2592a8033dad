package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

// TextRecognizer performs raw optical character recognition.
type TextRecognizer interface {
	// Recognize returns the text, words and word boxes found in an image.
	Recognize(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error)

	// Name identifies the back end in logs.
	Name() string
}

// EntityExtractor performs structured document understanding.
type EntityExtractor interface {
	// ExtractEntities returns invoice entities found in an image.
	// Returns nil, nil when the document yields no entities.
	ExtractEntities(ctx context.Context, image []byte, mimeType string) (*domain.Entities, error)

	// Name identifies the back end in logs.
	Name() string
}

// ExtractionCache stores recognition results keyed by content hash.
type ExtractionCache interface {
	// Get returns the cached value, or domain.ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// FlushAll removes every cached entry.
	FlushAll(ctx context.Context) error
}

//go:build !tesseract

package tesseract

import (
	"context"
	"errors"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// ErrNotBuilt is returned when the binary was built without the tesseract tag
var ErrNotBuilt = errors.New("tesseract support not built; rebuild with -tags tesseract")

// Verify interface compliance
var _ driven.TextRecognizer = (*Recognizer)(nil)

// Recognizer is unavailable in this build
type Recognizer struct{}

// NewRecognizer always fails in this build
func NewRecognizer(languages ...string) (*Recognizer, error) {
	return nil, ErrNotBuilt
}

// Name identifies the back end in logs
func (r *Recognizer) Name() string { return "tesseract" }

// Recognize always fails in this build
func (r *Recognizer) Recognize(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
	return nil, ErrNotBuilt
}

//go:build tesseract

// Package tesseract performs raw OCR locally with Tesseract through gosseract.
// Building it requires the tesseract and leptonica development libraries and
// the "tesseract" build tag.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/otiai10/gosseract/v2"
)

// Verify interface compliance
var _ driven.TextRecognizer = (*Recognizer)(nil)

// Recognizer implements driven.TextRecognizer with a fresh Tesseract client per call
type Recognizer struct {
	languages []string
}

// NewRecognizer creates a recognizer for the given languages (default "eng")
func NewRecognizer(languages ...string) (*Recognizer, error) {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Recognizer{languages: languages}, nil
}

// Name identifies the back end in logs
func (r *Recognizer) Name() string { return "tesseract" }

// Recognize runs Tesseract over the image
func (r *Recognizer) Recognize(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := gosseract.NewClient()
	defer c.Close()

	if err := c.SetLanguage(r.languages...); err != nil {
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	out := &domain.OCRResult{
		Text:     strings.TrimSpace(text),
		Words:    []string{},
		Boxes:    []domain.Box{},
		NumPages: 1,
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return out, nil
	}
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		out.Words = append(out.Words, b.Word)
		out.Boxes = append(out.Boxes, domain.NewBox(b.Box.Min.X, b.Box.Min.Y, b.Box.Dx(), b.Box.Dy()))
	}
	return out, nil
}

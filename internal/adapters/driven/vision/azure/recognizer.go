// Package azure performs raw OCR with the Azure Computer Vision service.
package azure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"github.com/custodia-labs/ledgerscan/internal/vision"
)

// Verify interface compliance
var _ driven.TextRecognizer = (*Recognizer)(nil)

// ocrClient is the part of computervision.BaseClient used here
type ocrClient interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, image io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// Recognizer implements driven.TextRecognizer with the printed-text OCR endpoint
type Recognizer struct {
	client ocrClient
}

// NewRecognizer creates a recognizer for the given endpoint and subscription key
func NewRecognizer(endpoint, apiKey string) (*Recognizer, error) {
	if endpoint == "" || apiKey == "" {
		return nil, errors.New("azure vision endpoint and key are required")
	}
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &Recognizer{client: client}, nil
}

// Name identifies the back end in logs
func (r *Recognizer) Name() string { return "azure" }

// Recognize sends the image to the service and flattens the region/line/word tree
func (r *Recognizer) Recognize(ctx context.Context, image []byte, mimeType string) (*domain.OCRResult, error) {
	result, err := r.client.RecognizePrintedTextInStream(
		ctx,
		true,
		io.NopCloser(bytes.NewReader(image)),
		computervision.En,
	)
	if err != nil {
		return nil, classifyError(err)
	}
	return convertResult(result), nil
}

// classifyError marks client-side rejections as permanent so they are not retried
func classifyError(err error) error {
	wrapped := fmt.Errorf("azure ocr: %w", err)

	var detailed autorest.DetailedError
	if !errors.As(err, &detailed) {
		return wrapped
	}
	status, ok := detailed.StatusCode.(int)
	if !ok {
		return wrapped
	}
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnsupportedMediaType:
		return vision.Permanent(wrapped)
	}
	return wrapped
}

func convertResult(result computervision.OcrResult) *domain.OCRResult {
	out := &domain.OCRResult{
		Words:    []string{},
		Boxes:    []domain.Box{},
		NumPages: 1,
	}
	if result.Regions == nil {
		return out
	}

	var lines []string
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			var words []string
			for _, word := range *line.Words {
				if word.Text == nil || *word.Text == "" {
					continue
				}
				words = append(words, *word.Text)
				out.Words = append(out.Words, *word.Text)
				out.Boxes = append(out.Boxes, parseBoundingBox(word.BoundingBox))
			}
			if len(words) > 0 {
				lines = append(lines, strings.Join(words, " "))
			}
		}
	}
	out.Text = strings.Join(lines, "\n")
	return out
}

// parseBoundingBox reads the service's "x,y,width,height" format
func parseBoundingBox(s *string) domain.Box {
	if s == nil {
		return domain.Box{}
	}
	parts := strings.Split(*s, ",")
	if len(parts) != 4 {
		return domain.Box{}
	}
	var v [4]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return domain.Box{}
		}
		v[i] = n
	}
	return domain.NewBox(v[0], v[1], v[2], v[3])
}

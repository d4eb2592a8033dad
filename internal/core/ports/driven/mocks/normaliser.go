package mocks

import (
	"context"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// MockNormaliser is a mock implementation of Normaliser for testing
type MockNormaliser struct {
	SupportedTypesFn func() []string
	PriorityFn       func() int
	NormaliseFn      func(ctx context.Context, file domain.SourceFile) ([]*domain.Document, error)
}

func NewMockNormaliser() *MockNormaliser {
	return &MockNormaliser{}
}

// Normalise returns the file as a single document unless NormaliseFn is set
func (m *MockNormaliser) Normalise(ctx context.Context, file domain.SourceFile) ([]*domain.Document, error) {
	if m.NormaliseFn != nil {
		return m.NormaliseFn(ctx, file)
	}
	return []*domain.Document{{
		Filename:  file.Filename,
		Data:      file.Data,
		MIMEType:  file.ContentType,
		Page:      1,
		PageCount: 1,
	}}, nil
}

func (m *MockNormaliser) SupportedTypes() []string {
	if m.SupportedTypesFn != nil {
		return m.SupportedTypesFn()
	}
	return []string{"image/png", "image/jpeg"}
}

func (m *MockNormaliser) Priority() int {
	if m.PriorityFn != nil {
		return m.PriorityFn()
	}
	return 100
}

// MockPDFRasterizer is a mock implementation of PDFRasterizer for testing
type MockPDFRasterizer struct {
	RasterizeFn func(ctx context.Context, pdf []byte, dpi int) ([][]byte, error)
}

func (m *MockPDFRasterizer) Rasterize(ctx context.Context, pdf []byte, dpi int) ([][]byte, error) {
	if m.RasterizeFn != nil {
		return m.RasterizeFn(ctx, pdf, dpi)
	}
	return nil, nil
}

var (
	_ driven.Normaliser    = (*MockNormaliser)(nil)
	_ driven.PDFRasterizer = (*MockPDFRasterizer)(nil)
)

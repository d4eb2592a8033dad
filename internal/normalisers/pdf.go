package normalisers

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// DefaultDPI is the resolution PDF pages are rendered at
const DefaultDPI = 300

// PDFNormaliser renders each PDF page to a PNG document.
type PDFNormaliser struct {
	rasterizer driven.PDFRasterizer
	dpi        int
}

// NewPDFNormaliser creates a PDF normaliser
func NewPDFNormaliser(rasterizer driven.PDFRasterizer, dpi int) *PDFNormaliser {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PDFNormaliser{rasterizer: rasterizer, dpi: dpi}
}

func (n *PDFNormaliser) Normalise(ctx context.Context, file domain.SourceFile) ([]*domain.Document, error) {
	if n.rasterizer == nil {
		return nil, domain.NewFileError(file.Filename, errors.New("no PDF rasterizer configured"))
	}

	pages, err := n.rasterizer.Rasterize(ctx, file.Data, n.dpi)
	if err != nil {
		return nil, domain.NewFileError(file.Filename, fmt.Errorf("render pdf: %w", err))
	}
	if len(pages) == 0 {
		return nil, domain.NewFileError(file.Filename, errors.New("pdf has no pages"))
	}

	base := strings.TrimSuffix(file.Filename, path.Ext(file.Filename))
	docs := make([]*domain.Document, 0, len(pages))
	for i, page := range pages {
		docs = append(docs, &domain.Document{
			Filename:  fmt.Sprintf("%s_page%d", base, i+1),
			Data:      page,
			MIMEType:  domain.MIMEPNG,
			Page:      i + 1,
			PageCount: len(pages),
		})
	}
	return docs, nil
}

func (n *PDFNormaliser) SupportedTypes() []string {
	return []string{domain.MIMEPDF}
}

func (n *PDFNormaliser) Priority() int {
	return 50
}

package normalisers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

// ImageNormaliser passes a JPEG or PNG through as a single-page document.
type ImageNormaliser struct{}

func (n *ImageNormaliser) Normalise(ctx context.Context, file domain.SourceFile) ([]*domain.Document, error) {
	if _, _, err := image.DecodeConfig(bytes.NewReader(file.Data)); err != nil {
		return nil, domain.NewFileError(file.Filename, fmt.Errorf("decode image: %w", err))
	}
	return []*domain.Document{{
		Filename:  file.Filename,
		Data:      file.Data,
		MIMEType:  file.ContentType,
		Page:      1,
		PageCount: 1,
	}}, nil
}

func (n *ImageNormaliser) SupportedTypes() []string {
	return []string{domain.MIMEJPEG, domain.MIMEPNG}
}

func (n *ImageNormaliser) Priority() int {
	return 50
}

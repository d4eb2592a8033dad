package normalisers

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// DefaultMaxDepth bounds how deep nested archives are unpacked
const DefaultMaxDepth = 3

// DefaultMaxEntrySize bounds the uncompressed size of one archive entry
const DefaultMaxEntrySize = 100 << 20

type depthKey struct{}

func depthFrom(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

// ZipConfig configures the ZIP normaliser
type ZipConfig struct {
	Logger       *slog.Logger
	MaxDepth     int
	MaxEntrySize int64
}

// ZipNormaliser unpacks an archive and normalises every supported entry.
// Entries are classified by content, not by name. Unsupported and corrupt
// entries are skipped.
type ZipNormaliser struct {
	registry     driven.NormaliserRegistry
	logger       *slog.Logger
	maxDepth     int
	maxEntrySize int64
}

// NewZipNormaliser creates a ZIP normaliser that dispatches entries through registry
func NewZipNormaliser(registry driven.NormaliserRegistry, cfg ZipConfig) *ZipNormaliser {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxEntrySize <= 0 {
		cfg.MaxEntrySize = DefaultMaxEntrySize
	}
	return &ZipNormaliser{
		registry:     registry,
		logger:       cfg.Logger,
		maxDepth:     cfg.MaxDepth,
		maxEntrySize: cfg.MaxEntrySize,
	}
}

func (n *ZipNormaliser) Normalise(ctx context.Context, file domain.SourceFile) ([]*domain.Document, error) {
	depth := depthFrom(ctx) + 1
	if depth > n.maxDepth {
		return nil, domain.NewFileError(file.Filename, fmt.Errorf("archive nested deeper than %d levels", n.maxDepth))
	}

	zr, err := zip.NewReader(bytes.NewReader(file.Data), int64(len(file.Data)))
	if err != nil {
		return nil, domain.NewFileError(file.Filename, fmt.Errorf("open zip: %w", err))
	}

	ctx = context.WithValue(ctx, depthKey{}, depth)
	var docs []*domain.Document
	for _, entry := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.FileInfo().IsDir() || strings.HasSuffix(entry.Name, "/") {
			continue
		}

		data, err := n.readEntry(entry)
		if err != nil {
			n.logger.Warn("skipping unreadable archive entry",
				"archive", file.Filename, "entry", entry.Name, "error", err)
			continue
		}

		mimeType := domain.DetectContentType(data, "", entry.Name)
		if !domain.IsSupportedUploadType(mimeType) {
			n.logger.Debug("skipping unsupported archive entry",
				"archive", file.Filename, "entry", entry.Name, "mime_type", mimeType)
			continue
		}

		entryDocs, err := n.registry.Normalise(ctx, domain.SourceFile{
			Filename:    entry.Name,
			ContentType: mimeType,
			Data:        data,
		})
		if err != nil {
			n.logger.Warn("skipping corrupt archive entry",
				"archive", file.Filename, "entry", entry.Name, "error", err)
			continue
		}
		docs = append(docs, entryDocs...)
	}

	return docs, nil
}

func (n *ZipNormaliser) readEntry(entry *zip.File) ([]byte, error) {
	if entry.UncompressedSize64 > uint64(n.maxEntrySize) {
		return nil, fmt.Errorf("%w: entry is %d bytes", domain.ErrFileTooLarge, entry.UncompressedSize64)
	}
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, n.maxEntrySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > n.maxEntrySize {
		return nil, fmt.Errorf("%w: entry exceeds %d bytes", domain.ErrFileTooLarge, n.maxEntrySize)
	}
	return data, nil
}

func (n *ZipNormaliser) SupportedTypes() []string {
	return []string{domain.MIMEZIP}
}

func (n *ZipNormaliser) Priority() int {
	return 50
}

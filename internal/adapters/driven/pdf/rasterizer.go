// Package pdf renders PDF pages to PNG images with poppler's pdftoppm.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PDFRasterizer = (*Rasterizer)(nil)

// ErrNoPages is returned when pdftoppm produced no images
var ErrNoPages = errors.New("no pages rendered")

// Config holds configuration for the rasterizer
type Config struct {
	// Binary is the pdftoppm name or absolute path; default "pdftoppm"
	Binary string

	// TempDir is where page images are written; default os.TempDir()
	TempDir string

	// MaxPages limits rendered pages; 0 means no limit
	MaxPages int

	Runner Runner
	Logger *slog.Logger
}

// Rasterizer implements driven.PDFRasterizer by shelling out to pdftoppm
type Rasterizer struct {
	binary   string
	tempDir  string
	maxPages int
	runner   Runner
	logger   *slog.Logger
}

// NewRasterizer creates a rasterizer
func NewRasterizer(cfg Config) *Rasterizer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "pdftoppm"
	}
	if cfg.Runner == nil {
		cfg.Runner = ExecRunner{Logger: cfg.Logger}
	}
	return &Rasterizer{
		binary:   cfg.Binary,
		tempDir:  cfg.TempDir,
		maxPages: cfg.MaxPages,
		runner:   cfg.Runner,
		logger:   cfg.Logger,
	}
}

// Rasterize writes the PDF to a scratch directory, renders every page at dpi
// and returns the PNGs in page order.
func (r *Rasterizer) Rasterize(ctx context.Context, data []byte, dpi int) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp(r.tempDir, "ledgerscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	input := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, stderr, err := r.runner.Run(ctx, r.binary, "-r", strconv.Itoa(dpi), "-png", input, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(truncate(string(stderr), 512)))
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, err
	}
	sortPages(matches)
	if r.maxPages > 0 && len(matches) > r.maxPages {
		matches = matches[:r.maxPages]
	}
	if len(matches) == 0 {
		return nil, ErrNoPages
	}

	pages := make([][]byte, 0, len(matches))
	for _, path := range matches {
		png, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read page: %w", err)
		}
		pages = append(pages, png)
	}
	return pages, nil
}

// sortPages orders "page-N.png" paths numerically by N
func sortPages(paths []string) {
	sort.SliceStable(paths, func(i, j int) bool {
		return pageNumber(paths[i]) < pageNumber(paths[j])
	})
}

func pageNumber(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndex(name, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

package normalisers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry implements NormaliserRegistry with priority-based selection.
// When multiple normalisers match a MIME type, the highest priority one is used.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
	logger      *slog.Logger
}

// NewRegistry creates a new normaliser registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		normalisers: make([]driven.Normaliser, 0),
		logger:      logger,
	}
}

// Register registers a normaliser.
// Normalisers are stored and later selected by priority.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, normaliser)
}

// Get retrieves the best-matching normaliser for a MIME type.
// Returns nil if no normaliser is registered for the type.
// When multiple match, the highest priority normaliser is returned.
func (r *Registry) Get(mimeType string) driven.Normaliser {
	matches := r.GetAll(mimeType)
	if len(matches) == 0 {
		return nil
	}
	return matches[0] // Already sorted by priority (highest first)
}

// GetAll retrieves all normalisers that match a MIME type, sorted by priority (highest first).
func (r *Registry) GetAll(mimeType string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.Normaliser

	for _, n := range r.normalisers {
		if matchesMIMEType(n.SupportedTypes(), mimeType) {
			matches = append(matches, n)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority() > matches[j].Priority()
	})

	return matches
}

// List returns all registered MIME types.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeSet := make(map[string]struct{})
	for _, n := range r.normalisers {
		for _, t := range n.SupportedTypes() {
			typeSet[t] = struct{}{}
		}
	}

	types := make([]string, 0, len(typeSet))
	for t := range typeSet {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Normalise sniffs the file content and hands it to the best normaliser.
// The returned documents keep the order produced by the normaliser.
func (r *Registry) Normalise(ctx context.Context, file domain.SourceFile) ([]*domain.Document, error) {
	if len(file.Data) == 0 {
		return nil, domain.NewFileError(file.Filename, fmt.Errorf("%w: empty file", domain.ErrInvalidInput))
	}

	mimeType := domain.DetectContentType(file.Data, file.ContentType, file.Filename)
	n := r.Get(mimeType)
	if n == nil {
		return nil, domain.NewFileError(file.Filename, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, mimeType))
	}

	file.ContentType = mimeType
	docs, err := n.Normalise(ctx, file)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("file normalised", "filename", file.Filename, "mime_type", mimeType, "documents", len(docs))
	return docs, nil
}

// matchesMIMEType checks if any of the supported types match the given MIME type.
// Supports wildcard matching (e.g., "image/*" matches "image/png").
func matchesMIMEType(supportedTypes []string, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	// Strip charset and other parameters
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	for _, supported := range supportedTypes {
		supported = strings.ToLower(strings.TrimSpace(supported))

		if supported == mimeType {
			return true
		}

		if strings.HasSuffix(supported, "/*") {
			prefix := supported[:len(supported)-1] // "image/"
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
		}

		if supported == "*/*" {
			return true
		}
	}

	return false
}

// Config configures the default registry
type Config struct {
	Logger     *slog.Logger
	Rasterizer driven.PDFRasterizer

	// DPI used when rendering PDF pages; defaults to DefaultDPI
	DPI int

	// MaxDepth bounds nested archive recursion; defaults to DefaultMaxDepth
	MaxDepth int

	// MaxEntrySize bounds the uncompressed size of one archive entry
	MaxEntrySize int64
}

// DefaultRegistry creates a registry with the image, PDF and ZIP normalisers.
func DefaultRegistry(cfg Config) *Registry {
	r := NewRegistry(cfg.Logger)

	r.Register(&ImageNormaliser{})
	r.Register(NewPDFNormaliser(cfg.Rasterizer, cfg.DPI))
	r.Register(NewZipNormaliser(r, ZipConfig{
		Logger:       cfg.Logger,
		MaxDepth:     cfg.MaxDepth,
		MaxEntrySize: cfg.MaxEntrySize,
	}))

	return r
}

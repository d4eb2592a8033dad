// Package vision turns document images into recognition results, with
// caching, retries and bounded concurrency around the OCR back ends.
package vision

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"
)

// CacheKeyPrefix namespaces recognition results in the shared cache
const CacheKeyPrefix = "ocr:"

// DefaultCacheTTL is how long recognition results are reused
const DefaultCacheTTL = 24 * time.Hour

// Config holds configuration for the adapter
type Config struct {
	Recognizer driven.TextRecognizer

	// Entities is optional; without it only raw OCR is performed
	Entities driven.EntityExtractor

	// Cache is optional
	Cache    driven.ExtractionCache
	CacheTTL time.Duration

	Retry RetryPolicy

	// Preprocess enables grayscale, denoise and binarization before OCR
	Preprocess bool

	// Workers bounds the number of documents processed at once
	Workers int

	// BatchSize is the configured upper bound on batch size
	BatchSize int

	Logger *slog.Logger
}

// Adapter wraps the recognition back ends
type Adapter struct {
	recognizer driven.TextRecognizer
	entities   driven.EntityExtractor
	cache      driven.ExtractionCache
	cacheTTL   time.Duration
	retry      RetryPolicy
	preprocess bool
	workers    int
	batchSize  int
	logger     *slog.Logger
}

// DefaultWorkers is the default document concurrency
const DefaultWorkers = 2

// DefaultBatchSize is the default configured batch size
const DefaultBatchSize = 5

// New creates an adapter
func New(cfg Config) *Adapter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = DefaultRetryPolicy
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Adapter{
		recognizer: cfg.Recognizer,
		entities:   cfg.Entities,
		cache:      cfg.Cache,
		cacheTTL:   cfg.CacheTTL,
		retry:      cfg.Retry,
		preprocess: cfg.Preprocess,
		workers:    cfg.Workers,
		batchSize:  cfg.BatchSize,
		logger:     cfg.Logger,
	}
}

// CacheKey returns the cache key for raw document bytes
func CacheKey(data []byte) string {
	sum := blake2b.Sum256(data)
	return CacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Process recognizes one document. A cached result for identical bytes is
// returned without calling any back end. OCR failing after all retries
// yields a *domain.ExtractionError; entity failures only drop the entities.
func (a *Adapter) Process(ctx context.Context, doc *domain.Document) (*domain.Recognition, error) {
	key := CacheKey(doc.Data)
	if rec := a.cached(ctx, key, doc.Filename); rec != nil {
		return rec, nil
	}

	if a.recognizer == nil {
		return nil, &domain.ExtractionError{Document: doc.Filename, Err: errors.New("no text recognizer configured")}
	}

	start := time.Now()
	image := doc.Data
	mimeType := doc.MIMEType
	if a.preprocess {
		if processed, err := Preprocess(doc.Data); err != nil {
			a.logger.Warn("image preprocessing failed, using original",
				"document", doc.Filename, "error", err)
		} else {
			image = processed
			mimeType = domain.MIMEPNG
		}
	}

	var (
		ocr      *domain.OCRResult
		entities *domain.Entities
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.retry.Do(gctx, func(ctx context.Context) error {
			result, err := a.recognizer.Recognize(ctx, image, mimeType)
			if err != nil {
				return err
			}
			ocr = result
			return nil
		})
	})
	if a.entities != nil {
		g.Go(func() error {
			err := a.retry.Do(gctx, func(ctx context.Context) error {
				result, err := a.entities.ExtractEntities(ctx, doc.Data, doc.MIMEType)
				if err != nil {
					return err
				}
				entities = result
				return nil
			})
			if err != nil && gctx.Err() == nil {
				a.logger.Warn("entity extraction failed, continuing with raw OCR",
					"document", doc.Filename, "backend", a.entities.Name(), "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Error("text recognition failed",
			"document", doc.Filename, "backend", a.recognizer.Name(), "error", err)
		return nil, &domain.ExtractionError{Document: doc.Filename, Err: err}
	}
	if ocr == nil {
		ocr = &domain.OCRResult{}
	}

	ocr.NumPages = doc.Pages()
	ocr.IsMultipage = doc.IsMultipage()
	AnalyzeLayout(ocr)

	rec := &domain.Recognition{OCR: ocr, Entities: entities}
	a.store(ctx, key, doc.Filename, rec)

	a.logger.Info("document recognized",
		"document", doc.Filename,
		"words", len(ocr.Words),
		"entities", !entities.IsEmpty(),
		"duration", time.Since(start))
	return rec, nil
}

func (a *Adapter) cached(ctx context.Context, key, filename string) *domain.Recognition {
	if a.cache == nil {
		return nil
	}
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.Warn("extraction cache read failed", "document", filename, "error", err)
		}
		return nil
	}

	var rec domain.Recognition
	if err := json.Unmarshal(data, &rec); err != nil || rec.OCR == nil {
		a.logger.Warn("invalid cached recognition, processing again", "document", filename)
		return nil
	}
	a.logger.Info("cache hit", "document", filename)
	return &rec
}

func (a *Adapter) store(ctx context.Context, key, filename string, rec *domain.Recognition) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		a.logger.Warn("failed to encode recognition for cache", "document", filename, "error", err)
		return
	}
	if err := a.cache.Set(ctx, key, data, a.cacheTTL); err != nil {
		a.logger.Warn("extraction cache write failed", "document", filename, "error", err)
	}
}

// FlushCache drops every cached recognition result
func (a *Adapter) FlushCache(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	if err := a.cache.FlushAll(ctx); err != nil {
		return fmt.Errorf("flush extraction cache: %w", err)
	}
	return nil
}

package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

// Config holds configuration for the extraction engine
type Config struct {
	Logger *slog.Logger

	// Now returns the current time; defaults to time.Now
	Now func() time.Time
}

// Engine turns recognition output into invoices
type Engine struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates a new extraction engine
func NewEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{logger: cfg.Logger, now: cfg.Now}
}

// Extract builds an invoice for one document. It never fails: a document
// whose fields cannot be read yields an invoice holding only its filename.
func (e *Engine) Extract(ctx context.Context, filename string, pages int, rec *domain.Recognition) (inv *domain.Invoice) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("field extraction failed",
				"filename", filename,
				"error", fmt.Sprint(r))
			inv = domain.NewPlaceholderInvoice(filename)
		}
	}()

	if pages < 1 {
		pages = 1
	}
	in := Input{
		Filename: filename,
		Pages:    pages,
		Today:    civil.DateOf(e.now()),
		Logger:   e.logger,
	}
	if rec != nil {
		in.OCR = rec.OCR
		in.Entities = rec.Entities
	}

	strategy := SelectStrategy(in.Entities)
	inv = strategy.Build(in)
	if _, ok := strategy.(EntityStrategy); ok && !inv.HasCoreFields() {
		e.logger.Debug("entity result has no core fields, using text heuristics", "filename", filename)
		strategy = HeuristicStrategy{}
		inv = strategy.Build(in)
	}

	if inv.Items == nil {
		inv.Items = []domain.InvoiceItem{}
	}
	if inv.Pages < 1 {
		inv.Pages = 1
	}
	inv.ClampDate(in.Today)

	e.logger.Debug("invoice extracted",
		"filename", filename,
		"strategy", strategy.Name(),
		"items", len(inv.Items))
	return inv
}

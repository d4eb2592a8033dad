package export

import (
	"fmt"
	"log/slog"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

// DefaultCurrency prefixes every monetary cell
const DefaultCurrency = "$"

// Config holds configuration for the exporter
type Config struct {
	Logger   *slog.Logger
	Currency string
}

// Exporter renders invoice batches into downloadable tables
type Exporter struct {
	logger   *slog.Logger
	currency string
}

// New creates an exporter
func New(cfg Config) *Exporter {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	return &Exporter{logger: cfg.Logger, currency: cfg.Currency}
}

// Export renders invoices in the given format. Both formats share the same
// rows, including the trailing TOTAL row.
func (e *Exporter) Export(invoices []*domain.Invoice, format domain.ExportFormat) ([]byte, error) {
	rows := buildRows(invoices, e.currency)

	var (
		data []byte
		err  error
	)
	switch format {
	case domain.ExportCSV:
		data, err = writeCSV(rows)
	case domain.ExportExcel:
		data, err = writeXLSX(rows)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidFormat, format)
	}
	if err != nil {
		e.logger.Error("invoice export failed", "format", format, "error", err)
		return nil, fmt.Errorf("export %s: %w", format, err)
	}

	e.logger.Debug("invoices exported", "format", format, "invoices", len(invoices), "bytes", len(data))
	return data, nil
}

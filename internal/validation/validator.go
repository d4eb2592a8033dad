// Package validation checks extracted invoices and flags anomalies.
package validation

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/shopspring/decimal"
)

var invoiceNumberFormat = regexp.MustCompile(`^[A-Za-z0-9-]{5,}$`)

// Config holds configuration for the validator
type Config struct {
	Logger *slog.Logger

	// Now returns the current time; defaults to time.Now
	Now func() time.Time

	// Thresholds for anomaly flags; zero values use the defaults
	HighTotalThreshold decimal.Decimal
	MaxLineItems       int
}

// DefaultHighTotalThreshold is the final total above which an invoice is flagged
var DefaultHighTotalThreshold = decimal.NewFromInt(10000)

// DefaultMaxLineItems is the item count above which an invoice is flagged
const DefaultMaxLineItems = 20

// Validator produces validation reports and anomaly flags. It never
// mutates the invoices it inspects.
type Validator struct {
	logger       *slog.Logger
	now          func() time.Time
	highTotal    decimal.Decimal
	maxLineItems int
}

// New creates a validator
func New(cfg Config) *Validator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HighTotalThreshold.IsZero() {
		cfg.HighTotalThreshold = DefaultHighTotalThreshold
	}
	if cfg.MaxLineItems <= 0 {
		cfg.MaxLineItems = DefaultMaxLineItems
	}
	return &Validator{
		logger:       cfg.Logger,
		now:          cfg.Now,
		highTotal:    cfg.HighTotalThreshold,
		maxLineItems: cfg.MaxLineItems,
	}
}

func (v *Validator) today() civil.Date {
	return civil.DateOf(v.now())
}

// Validate runs every field check on one invoice. Checks are independent and
// their warnings are additive; the report is valid iff no warning was raised.
func (v *Validator) Validate(inv *domain.Invoice) *domain.ValidationReport {
	r := domain.NewValidationReport()
	if inv == nil {
		r.Add(domain.CategoryFilename, "Filename is missing")
		return r
	}

	if blank(inv.Filename) {
		r.Add(domain.CategoryFilename, "Filename is missing")
	}

	switch {
	case blank(inv.InvoiceNumber):
		r.Add(domain.CategoryInvoiceNumber, "Invoice number is missing")
	case !invoiceNumberFormat.MatchString(inv.InvoiceNumber):
		r.Add(domain.CategoryInvoiceNumber, fmt.Sprintf("Unusual invoice number format: %s", inv.InvoiceNumber))
	}

	v.validateVendor(r, inv.Vendor)

	switch {
	case inv.InvoiceDate == nil:
		r.Add(domain.CategoryInvoiceDate, "Invoice date is missing")
	case inv.InvoiceDate.After(v.today()):
		r.Add(domain.CategoryInvoiceDate, fmt.Sprintf("Invoice date %s is in the future", inv.InvoiceDate))
	}

	validateAmount(r, domain.CategoryGrandTotal, "Grand total", inv.GrandTotal)
	validateAmount(r, domain.CategoryTaxes, "Taxes", inv.Taxes)
	validateAmount(r, domain.CategoryFinalTotal, "Final total", inv.FinalTotal)

	if !inv.TotalsConsistent() {
		r.Add(domain.CategoryTotals, fmt.Sprintf("Total amounts may not match: %s + %s ≈ %s",
			formatAmount(*inv.GrandTotal), formatAmount(*inv.Taxes), formatAmount(*inv.FinalTotal)))
	}

	if inv.Pages < 1 {
		r.Add(domain.CategoryPages, fmt.Sprintf("Unusual number of pages: %d", inv.Pages))
	}

	v.validateItems(r, inv.Items)
	return r
}

func (v *Validator) validateVendor(r *domain.ValidationReport, vendor domain.Vendor) {
	if blank(vendor.Name) {
		r.Add(domain.CategoryVendor, "Vendor name is missing")
	}
	a := vendor.Address
	for _, part := range []struct {
		value string
		label string
	}{
		{a.Street, "street"},
		{a.City, "city"},
		{a.State, "state"},
		{a.PostalCode, "postal code"},
		{a.Country, "country"},
	} {
		if blank(part.value) {
			r.Add(domain.CategoryVendor, fmt.Sprintf("Vendor %s is missing", part.label))
		}
	}
}

func (v *Validator) validateItems(r *domain.ValidationReport, items []domain.InvoiceItem) {
	if len(items) == 0 {
		r.Add(domain.CategoryItems, "No line items found in the invoice")
		return
	}
	for i, item := range items {
		n := i + 1
		add := func(msg string) {
			r.Add(domain.CategoryItems, fmt.Sprintf("Item %d: %s", n, msg))
		}
		if blank(item.Description) {
			add("Description is missing")
		}
		switch {
		case item.Quantity == nil:
			add("Quantity is missing")
		case *item.Quantity <= 0:
			add("Unusual quantity")
		}
		switch {
		case item.UnitPrice == nil:
			add("Unit price is missing")
		case item.UnitPrice.IsNegative():
			add("Unusual unit price")
		}
		switch {
		case item.Total == nil:
			add("Total is missing")
		case item.Total.IsNegative():
			add("Unusual total")
		}
		if item.Quantity != nil && item.UnitPrice != nil && item.Total != nil {
			expected := item.UnitPrice.Mul(decimal.NewFromInt(int64(*item.Quantity))).Round(2)
			if expected.Sub(*item.Total).Abs().GreaterThan(domain.TotalsTolerance) {
				add("Total may not match quantity * unit price")
			}
		}
	}
}

func validateAmount(r *domain.ValidationReport, category domain.ValidationCategory, label string, amount *decimal.Decimal) {
	switch {
	case amount == nil:
		r.Add(category, label+" is missing")
	case amount.IsNegative():
		r.Add(category, label+" is negative")
	}
}

// ValidateAll validates each invoice and pairs it with its report
func (v *Validator) ValidateAll(invoices []*domain.Invoice) []domain.InvoiceReport {
	reports := make([]domain.InvoiceReport, 0, len(invoices))
	invalid := 0
	for _, inv := range invoices {
		report := v.Validate(inv)
		if !report.IsValid {
			invalid++
		}
		reports = append(reports, domain.InvoiceReport{
			Filename:      inv.Filename,
			InvoiceNumber: inv.InvoiceNumber,
			Report:        report,
		})
	}
	v.logger.Debug("invoices validated", "count", len(invoices), "with_warnings", invalid)
	return reports
}

// formatAmount keeps at least two decimal places
func formatAmount(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

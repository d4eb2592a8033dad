package extraction

import (
	"log/slog"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

// Input is everything a strategy may read to build an invoice
type Input struct {
	Filename string
	Pages    int
	OCR      *domain.OCRResult
	Entities *domain.Entities
	Today    civil.Date
	Logger   *slog.Logger
}

func (in Input) text() string {
	if in.OCR == nil {
		return ""
	}
	return in.OCR.Text
}

func (in Input) ocrTables() [][][]string {
	if in.OCR == nil {
		return nil
	}
	return in.OCR.Tables
}

// Strategy builds an invoice from recognition output
type Strategy interface {
	Name() string
	Build(in Input) *domain.Invoice
}

// coreEntityFields are the entities that make an entity result worth using
var coreEntityFields = []string{
	domain.EntityInvoiceID,
	domain.EntitySupplierName,
	domain.EntityInvoiceDate,
	domain.EntityNetAmount,
	domain.EntityTotalAmount,
}

// SelectStrategy picks entity-first extraction when the entities carry at
// least one of invoice id, supplier name, invoice date or an amount, and the
// text heuristics otherwise.
func SelectStrategy(entities *domain.Entities) Strategy {
	if entities == nil {
		return HeuristicStrategy{}
	}
	for _, f := range coreEntityFields {
		if entities.Field(f) != "" {
			return EntityStrategy{}
		}
	}
	return HeuristicStrategy{}
}

// EntityStrategy maps structured entities onto an invoice
type EntityStrategy struct{}

func (EntityStrategy) Name() string { return "entities" }

func (EntityStrategy) Build(in Input) *domain.Invoice {
	e := in.Entities
	inv := &domain.Invoice{
		Filename:      in.Filename,
		InvoiceNumber: e.Field(domain.EntityInvoiceID),
		Pages:         in.Pages,
	}

	inv.Vendor.Name = e.Field(domain.EntitySupplierName)
	addressLines := splitLines(e.Field(domain.EntitySupplierAddress))
	if len(addressLines) > 0 {
		inv.Vendor.Address.Street = addressLines[0]
		parsed := addressFromLines(addressLines[1:])
		inv.Vendor.Address.City = parsed.City
		inv.Vendor.Address.State = parsed.State
		inv.Vendor.Address.PostalCode = parsed.PostalCode
	}
	if v := e.Field(domain.EntitySupplierCity); v != "" {
		inv.Vendor.Address.City = v
	}
	if v := e.Field(domain.EntitySupplierState); v != "" {
		inv.Vendor.Address.State = v
	}
	if v := e.Field(domain.EntitySupplierCountry); v != "" {
		inv.Vendor.Address.Country = v
	}
	if v := e.Field(domain.EntitySupplierZip); v != "" {
		inv.Vendor.Address.PostalCode = v
	}

	if v := e.Field(domain.EntityInvoiceDate); v != "" {
		inv.InvoiceDate = ParseEntityDate(v, in.Today)
	}

	inv.GrandTotal = ParseAmount(e.Field(domain.EntityNetAmount))
	inv.Taxes = ParseAmount(e.Field(domain.EntityTotalTaxAmount))
	inv.FinalTotal = ParseAmount(e.Field(domain.EntityTotalAmount))
	reconcileTotals(inv, in.Logger)

	for _, line := range e.LineItems {
		if item := ParseLineItem(line); item != nil {
			inv.Items = append(inv.Items, *item)
		}
	}
	if len(inv.Items) == 0 {
		inv.Items = ItemsFromTables(e.Tables)
	}
	if len(inv.Items) == 0 {
		inv.Items = ItemsFromTables(in.ocrTables())
	}
	return inv
}

// HeuristicStrategy reads invoice fields from raw OCR text and tables
type HeuristicStrategy struct{}

func (HeuristicStrategy) Name() string { return "heuristics" }

func (HeuristicStrategy) Build(in Input) *domain.Invoice {
	text := in.text()
	inv := &domain.Invoice{
		Filename:      in.Filename,
		InvoiceNumber: invoiceNumberFromText(text),
		Vendor:        vendorFromText(text),
		InvoiceDate:   ParseDocumentDate(text, in.Today),
		Pages:         in.Pages,
	}
	if in.OCR != nil && in.OCR.NumPages > inv.Pages {
		inv.Pages = in.OCR.NumPages
	}
	if inv.InvoiceNumber == "" && in.OCR != nil {
		inv.InvoiceNumber = invoiceNumberFromPairs(in.OCR.KeyValuePairs)
	}

	t := totalsFromText(text)
	inv.GrandTotal, inv.Taxes, inv.FinalTotal = t.grand, t.taxes, t.final
	reconcileTotals(inv, in.Logger)

	inv.Items = ItemsFromTables(in.ocrTables())
	if len(inv.Items) == 0 {
		inv.Items = itemsFromText(text)
	}
	return inv
}

func invoiceNumberFromPairs(pairs map[string]string) string {
	for k, v := range pairs {
		key := strings.ToLower(k)
		if strings.Contains(key, "invoice") && (strings.Contains(key, "no") || strings.Contains(key, "number") || strings.Contains(key, "#")) {
			v = strings.TrimSpace(v)
			if len(v) >= 5 && hasDigitRun.MatchString(v) {
				return v
			}
		}
	}
	return ""
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

package domain

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TotalsTolerance is the allowed difference between grand_total + taxes and final_total
var TotalsTolerance = decimal.New(1, -2)

// Address is a vendor postal address; every part is optional
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Parts returns the non-empty address parts in display order
func (a Address) Parts() []string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

// Vendor is the issuer of an invoice
type Vendor struct {
	Name    string  `json:"name,omitempty"`
	Address Address `json:"address"`
}

// InvoiceItem is one line of an invoice
type InvoiceItem struct {
	Description string           `json:"description"`
	Quantity    *int             `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Total       *decimal.Decimal `json:"total,omitempty"`
}

// Invoice is the structured data extracted from one document.
// Absent values are nil, never zero.
type Invoice struct {
	Filename      string           `json:"filename"`
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	Vendor        Vendor           `json:"vendor"`
	InvoiceDate   *civil.Date      `json:"invoice_date,omitempty"`
	GrandTotal    *decimal.Decimal `json:"grand_total,omitempty"`
	Taxes         *decimal.Decimal `json:"taxes,omitempty"`
	FinalTotal    *decimal.Decimal `json:"final_total,omitempty"`
	Items         []InvoiceItem    `json:"items"`
	Pages         int              `json:"pages"`
}

// NewPlaceholderInvoice returns the minimal invoice recorded for a document
// that could not be read.
func NewPlaceholderInvoice(filename string) *Invoice {
	return &Invoice{Filename: filename, Items: []InvoiceItem{}, Pages: 1}
}

// HasCoreFields returns true if any of number, vendor, date or grand total is set
func (inv *Invoice) HasCoreFields() bool {
	return inv.InvoiceNumber != "" || inv.Vendor.Name != "" || inv.InvoiceDate != nil || inv.GrandTotal != nil
}

// TotalsConsistent reports whether grand_total + taxes matches final_total within
// TotalsTolerance. It returns true when any of the three is absent.
func (inv *Invoice) TotalsConsistent() bool {
	if inv.GrandTotal == nil || inv.Taxes == nil || inv.FinalTotal == nil {
		return true
	}
	diff := inv.GrandTotal.Add(*inv.Taxes).Sub(*inv.FinalTotal).Abs()
	return diff.LessThanOrEqual(TotalsTolerance)
}

// ClampDate moves a future invoice date back to today
func (inv *Invoice) ClampDate(today civil.Date) {
	if inv.InvoiceDate != nil && inv.InvoiceDate.After(today) {
		d := today
		inv.InvoiceDate = &d
	}
}

// Dec returns a pointer to a decimal, for building optional amounts
func Dec(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// IntPtr returns a pointer to n
func IntPtr(n int) *int {
	return &n
}

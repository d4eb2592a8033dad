// Package export renders processed invoices as CSV or XLSX tables.
package export

import (
	"strconv"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/shopspring/decimal"
)

// Columns is the fixed header of every export
var Columns = []string{
	"Filename",
	"Invoice Number",
	"Vendor Name",
	"Address",
	"Invoice Date",
	"Grand Total",
	"Taxes",
	"Final Total",
	"Description",
	"Pages",
}

// TotalLabel marks the aggregate row in the Vendor Name column
const TotalLabel = "TOTAL"

// buildRows maps invoices to table rows and appends the aggregate row.
// The header is not included.
func buildRows(invoices []*domain.Invoice, currency string) [][]string {
	rows := make([][]string, 0, len(invoices)+1)
	grandSum := decimal.Zero
	finalSum := decimal.Zero

	for i, inv := range invoices {
		if inv.GrandTotal != nil {
			grandSum = grandSum.Add(*inv.GrandTotal)
		}
		if inv.FinalTotal != nil {
			finalSum = finalSum.Add(*inv.FinalTotal)
		}

		date := ""
		if inv.InvoiceDate != nil {
			date = inv.InvoiceDate.String()
		}

		rows = append(rows, []string{
			inv.Filename,
			inv.InvoiceNumber,
			inv.Vendor.Name,
			strings.Join(inv.Vendor.Address.Parts(), ", "),
			date,
			money(currency, inv.GrandTotal),
			money(currency, inv.Taxes),
			money(currency, inv.FinalTotal),
			"Purchase " + strconv.Itoa(i+1),
			strconv.Itoa(inv.Pages),
		})
	}

	total := make([]string, len(Columns))
	total[2] = TotalLabel
	total[5] = money(currency, &grandSum)
	total[7] = money(currency, &finalSum)
	return append(rows, total)
}

func money(currency string, d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return currency + FormatDecimal(*d)
}

// FormatDecimal renders an amount with two decimal places when it has at
// most two, unchanged with three or four, and truncated to four otherwise.
func FormatDecimal(d decimal.Decimal) string {
	places := int32(0)
	if exp := d.Exponent(); exp < 0 {
		places = -exp
	}
	switch {
	case places <= 2:
		return d.StringFixed(2)
	case places <= 4:
		return d.StringFixed(places)
	default:
		return d.Truncate(4).StringFixed(4)
	}
}

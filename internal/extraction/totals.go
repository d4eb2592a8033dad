package extraction

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/shopspring/decimal"
)

var (
	amountInLine  = regexp.MustCompile(`-?\$?\s*((?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2})\b`)
	subtotalLabel = regexp.MustCompile(`(?i)\b(sub[\s-]*total|net\s+(?:amount|total))\b`)
	taxLabel      = regexp.MustCompile(`(?i)\b(tax|vat|gst|hst|sales\s+tax)\b`)
	strongTotal   = regexp.MustCompile(`(?i)\b(grand\s+total|total\s+due|amount\s+due|balance\s+due|total\s+amount)\b`)
	totalLabel    = regexp.MustCompile(`(?i)\btotal\b`)
)

// totals holds the three invoice-level amounts found in text
type totals struct {
	grand *decimal.Decimal
	taxes *decimal.Decimal
	final *decimal.Decimal
}

// totalsFromText reads subtotal, tax and total lines. A "Subtotal" line is
// never taken as the final total.
func totalsFromText(text string) totals {
	var t totals
	var plainTotal *decimal.Decimal
	for _, line := range strings.Split(text, "\n") {
		amount := lastAmount(line)
		if amount == nil {
			continue
		}
		switch {
		case subtotalLabel.MatchString(line):
			if t.grand == nil {
				t.grand = amount
			}
		case taxLabel.MatchString(line) && !strongTotal.MatchString(line):
			if t.taxes == nil {
				t.taxes = amount
			}
		case strongTotal.MatchString(line):
			if t.final == nil {
				t.final = amount
			}
		case totalLabel.MatchString(line):
			if plainTotal == nil {
				plainTotal = amount
			}
		}
	}
	if t.final == nil {
		t.final = plainTotal
	}
	return t
}

func lastAmount(line string) *decimal.Decimal {
	matches := amountInLine.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil
	}
	return ParseAmount(matches[len(matches)-1][1])
}

// reconcileTotals derives the missing one of grand total, taxes and final
// total when the other two are known. A mismatch among all three is logged
// and left for validation to report.
func reconcileTotals(inv *domain.Invoice, logger *slog.Logger) {
	g, t, f := inv.GrandTotal, inv.Taxes, inv.FinalTotal
	switch {
	case g != nil && t != nil && f == nil:
		inv.FinalTotal = domain.Dec(g.Add(*t))
	case g != nil && t == nil && f != nil:
		inv.Taxes = domain.Dec(f.Sub(*g))
	case g == nil && t != nil && f != nil:
		inv.GrandTotal = domain.Dec(f.Sub(*t))
	case g != nil && t != nil && f != nil:
		if !inv.TotalsConsistent() {
			logger.Warn("invoice totals do not reconcile",
				"filename", inv.Filename,
				"grand_total", g.String(),
				"taxes", t.String(),
				"final_total", f.String())
		}
	}
}

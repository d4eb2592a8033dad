package validation

import "github.com/custodia-labs/ledgerscan/internal/core/domain"

// Anomaly flag texts
const (
	FlagFutureDate    = "Future date"
	FlagHighTotal     = "Unusually high total amount"
	FlagManyLineItems = "Large number of line items"
)

// FlagAnomalies returns the invoices that trip at least one anomaly rule,
// in input order. Invoices without flags are left out.
func (v *Validator) FlagAnomalies(invoices []*domain.Invoice) []domain.FlaggedInvoice {
	today := v.today()
	flagged := []domain.FlaggedInvoice{}
	for _, inv := range invoices {
		var flags []string
		if inv.InvoiceDate != nil && inv.InvoiceDate.After(today) {
			flags = append(flags, FlagFutureDate)
		}
		if inv.FinalTotal != nil && inv.FinalTotal.GreaterThan(v.highTotal) {
			flags = append(flags, FlagHighTotal)
		}
		if len(inv.Items) > v.maxLineItems {
			flags = append(flags, FlagManyLineItems)
		}
		if len(flags) > 0 {
			flagged = append(flagged, domain.FlaggedInvoice{Invoice: inv, Flags: flags})
		}
	}
	if len(flagged) > 0 {
		v.logger.Info("anomalies detected", "flagged", len(flagged), "total", len(invoices))
	}
	return flagged
}

package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonAmountChars = regexp.MustCompile(`[^\d.-]`)
	priceToken     = regexp.MustCompile(`-?\d[\d\s.,']*`)
)

// ParseAmount reads a monetary value. Everything except digits, periods and
// minus signs is stripped first; when that does not yield a number the value
// is read with currency-aware separator rules. Returns nil if nothing parses.
func ParseAmount(s string) *decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if cleaned := nonAmountChars.ReplaceAllString(s, ""); cleaned != "" {
		if d, err := decimal.NewFromString(cleaned); err == nil {
			return &d
		}
	}
	return parsePrice(s)
}

// parsePrice reads what the strip-first pass rejects, such as
// "1.234.567,89" or "12.345.678", by treating the right-most separator
// followed by one or two digits as the decimal point and every other
// separator as grouping.
func parsePrice(s string) *decimal.Decimal {
	token := strings.TrimSpace(priceToken.FindString(s))
	if token == "" {
		return nil
	}
	negative := strings.HasPrefix(token, "-")
	token = strings.TrimPrefix(token, "-")
	token = strings.NewReplacer(" ", "", "'", "", "\u00a0", "").Replace(token)
	token = strings.TrimRight(token, ".,")

	decimalAt := -1
	if i := strings.LastIndexAny(token, ".,"); i >= 0 {
		frac := len(token) - i - 1
		sep := token[i]
		// A lone separator followed by exactly three digits is grouping.
		if frac > 0 && frac <= 2 || (frac != 3 && strings.Count(token, string(sep)) == 1) {
			decimalAt = i
		}
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case i == decimalAt:
			b.WriteByte('.')
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return nil
	}
	return &d
}

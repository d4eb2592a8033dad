package extraction

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

var (
	invoiceNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)invoice\s*(?:number|num\.?|no\.?)\s*[:#]?\s*([A-Za-z0-9-]{5,})`),
		regexp.MustCompile(`(?i)invoice\s*#\s*:?\s*([A-Za-z0-9-]{5,})`),
		regexp.MustCompile(`(?i)\binv\.?\s*[:#]\s*([A-Za-z0-9-]{5,})`),
	}
	postalCode  = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	cityState   = regexp.MustCompile(`([A-Za-z][A-Za-z\s.]*),\s*([A-Z]{2})\b`)
	notAddress  = regexp.MustCompile(`(?i)invoice|date|total|tax|bill\s*to|ship\s*to|phone|tel\b|fax|email|@|#`)
	titleOnly   = regexp.MustCompile(`(?i)^\s*(?:tax\s+)?invoice\s*$`)
	hasDigitRun = regexp.MustCompile(`\d`)
)

// invoiceNumberFromText returns the first invoice number matched in text.
func invoiceNumberFromText(text string) string {
	for _, re := range invoiceNumberPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if hasDigitRun.MatchString(m[1]) {
				return m[1]
			}
		}
	}
	return ""
}

// vendorFromText takes the first line as the vendor name and reads the
// address from the three lines that follow it.
func vendorFromText(text string) domain.Vendor {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > 0 && titleOnly.MatchString(lines[0]) {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return domain.Vendor{}
	}

	vendor := domain.Vendor{Name: lines[0]}
	if notAddress.MatchString(vendor.Name) {
		vendor.Name = ""
	}
	end := 4
	if end > len(lines) {
		end = len(lines)
	}
	vendor.Address = addressFromLines(lines[1:end])
	return vendor
}

// addressFromLines reads street, city, state and postal code from up to
// three address lines.
func addressFromLines(lines []string) domain.Address {
	var addr domain.Address
	for _, line := range lines {
		if notAddress.MatchString(line) {
			continue
		}
		matched := false
		if m := cityState.FindStringSubmatch(line); m != nil {
			if addr.City == "" {
				addr.City = strings.TrimSpace(m[1])
			}
			if addr.State == "" {
				addr.State = m[2]
			}
			matched = true
		}
		if m := postalCode.FindString(line); m != "" && addr.PostalCode == "" {
			addr.PostalCode = m
			matched = matched || strings.TrimSpace(line) == m
		}
		if !matched && addr.Street == "" {
			addr.Street = line
		}
	}
	return addr
}

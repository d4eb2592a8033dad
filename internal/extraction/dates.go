package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/araddon/dateparse"
)

// DateOrder is the field order used to read an all-numeric date
type DateOrder int

const (
	OrderDMY DateOrder = iota
	OrderMDY
	OrderYMD
)

// dateOrders is the order in which numeric field layouts are attempted
var dateOrders = []DateOrder{OrderDMY, OrderMDY, OrderYMD}

// dateKeywords introduce an invoice date; more specific phrases come first.
var dateKeywords = []string{
	"invoice date",
	"date of issue",
	"issue date",
	"billing date",
	"document date",
	"transaction date",
	"statement date",
	"posting date",
	"dated",
	"issued",
	"date",
	"invoice",
	"due date",
}

// keywordWindow is how many characters after a keyword are searched
const keywordWindow = 50

// keywordPatterns match dateKeywords case-insensitively on the original text,
// so offsets stay valid whatever the case mapping does to rune widths.
var keywordPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(dateKeywords))
	for i, kw := range dateKeywords {
		patterns[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
	}
	return patterns
}()

// windowAfter returns up to keywordWindow runes of text starting at byte offset start.
func windowAfter(text string, start int) string {
	rest := text[start:]
	n := 0
	for i := range rest {
		if n == keywordWindow {
			return rest[:i]
		}
		n++
	}
	return rest
}

const monthNames = `jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec`

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}[/.\-]\d{1,2}[/.\-]\d{1,2}\b`),
	regexp.MustCompile(`\b\d{1,2}[/\-]\d{1,2}[/\-](?:\d{4}|\d{2})\b`),
	regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{4}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?(?:\s+of)?[\s\-]+(?:` + monthNames + `)[a-z]*\.?,?[\s\-]+\d{2,4}\b`),
	regexp.MustCompile(`(?i)\b(?:` + monthNames + `)[a-z]*\.?[\s\-]+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`),
}

var (
	dayMonthYear = regexp.MustCompile(`(?i)(\d{1,2})(?:st|nd|rd|th)?(?:\s+of)?[\s\-]+([a-z]+)\.?,?[\s\-]+(\d{2,4})`)
	monthDayYear = regexp.MustCompile(`(?i)([a-z]+)\.?[\s\-]+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)
	eightDigits  = regexp.MustCompile(`\b\d{8}\b`)
	compactMonth = regexp.MustCompile(`(?i)\b(\d{1,2})(` + monthNames + `)[a-z]*(\d{4}|\d{2})\b`)
	monthYear    = regexp.MustCompile(`(?i)\b(` + monthNames + `)[a-z]*\.?\s+(\d{4})\b`)
	dottedShort  = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2})\b`)
	numericParts = regexp.MustCompile(`[/.\-]`)
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseDocumentDate finds the invoice date in free text. It tries, in order:
// keyword windows, the date pattern battery over the whole text, eight-digit
// and month-abbreviation runs, dotted two-digit-year dates, and finally a
// natural-language parse of the entire text. Returns nil if nothing matches.
func ParseDocumentDate(text string, today civil.Date) *civil.Date {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	for _, kw := range keywordPatterns {
		for _, loc := range kw.FindAllStringIndex(text, -1) {
			if d := matchPatterns(windowAfter(text, loc[1]), today); d != nil {
				return d
			}
		}
	}

	if d := matchPatterns(text, today); d != nil {
		return d
	}

	for _, m := range eightDigits.FindAllString(text, -1) {
		if d := parseEightDigits(m, today); d != nil {
			return d
		}
	}
	for _, m := range compactMonth.FindAllStringSubmatch(text, -1) {
		if d := buildDate(m[3], monthFromName(m[2]), m[1], today); d != nil {
			return d
		}
	}
	for _, m := range monthYear.FindAllStringSubmatch(text, -1) {
		if d := buildDate(m[2], monthFromName(m[1]), "1", today); d != nil {
			return d
		}
	}

	for _, m := range dottedShort.FindAllStringSubmatch(text, -1) {
		if d := buildDate(m[3], monthFromNumber(m[2]), m[1], today); d != nil {
			return d
		}
	}

	if t, err := dateparse.ParseIn(strings.TrimSpace(text), time.UTC, dateparse.PreferMonthFirst(false)); err == nil {
		if d := civil.DateOf(t); d.Year >= 1900 && d.Year <= today.Year+20 {
			return &d
		}
	}
	return nil
}

func matchPatterns(s string, today civil.Date) *civil.Date {
	for _, re := range datePatterns {
		for _, m := range re.FindAllString(s, -1) {
			if d := ParseDate(m, today); d != nil {
				return d
			}
		}
	}
	return nil
}

// ParseDate reads a single date string. Numeric dates are tried as DMY, MDY
// and YMD; the first reading that is not after today wins, otherwise the
// first valid reading is returned.
func ParseDate(s string, today civil.Date) *civil.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if hasLetters(s) {
		if m := dayMonthYear.FindStringSubmatch(s); m != nil {
			if d := buildDate(m[3], monthFromName(m[2]), m[1], today); d != nil {
				return d
			}
		}
		if m := monthDayYear.FindStringSubmatch(s); m != nil {
			if d := buildDate(m[3], monthFromName(m[1]), m[2], today); d != nil {
				return d
			}
		}
		return nil
	}

	parts := numericParts.Split(s, -1)
	if len(parts) != 3 {
		return nil
	}
	var first *civil.Date
	for _, order := range dateOrders {
		d := parseNumeric(parts, order, today)
		if d == nil {
			continue
		}
		if !d.After(today) {
			return d
		}
		if first == nil {
			first = d
		}
	}
	return first
}

// ParseEntityDate reads a date returned by an entity back end, trying the
// day-first and ISO layouts directly before the general rules.
func ParseEntityDate(s string, today civil.Date) *civil.Date {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"02/01/2006", "02-01-2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			d := civil.DateOf(t)
			return &d
		}
	}
	if d := ParseDate(s, today); d != nil {
		return d
	}
	return ParseDocumentDate(s, today)
}

func parseNumeric(parts []string, order DateOrder, today civil.Date) *civil.Date {
	var y, m, d string
	switch order {
	case OrderDMY:
		d, m, y = parts[0], parts[1], parts[2]
	case OrderMDY:
		m, d, y = parts[0], parts[1], parts[2]
	case OrderYMD:
		y, m, d = parts[0], parts[1], parts[2]
	}
	if order == OrderYMD && len(y) != 4 {
		return nil
	}
	if order != OrderYMD && len(parts[0]) > 2 {
		return nil
	}
	return buildDate(y, monthFromNumber(m), d, today)
}

func parseEightDigits(s string, today civil.Date) *civil.Date {
	if strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20") {
		if d := buildDate(s[:4], monthFromNumber(s[4:6]), s[6:], today); d != nil {
			return d
		}
	}
	return buildDate(s[4:], monthFromNumber(s[2:4]), s[:2], today)
}

// buildDate assembles and validates a date; two-digit years get a century.
func buildDate(year string, month time.Month, day string, today civil.Date) *civil.Date {
	if month == 0 {
		return nil
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}
	switch len(year) {
	case 2:
		y = inferCentury(y, today)
	case 4:
	default:
		return nil
	}
	dd, err := strconv.Atoi(day)
	if err != nil {
		return nil
	}
	date := civil.Date{Year: y, Month: month, Day: dd}
	if !date.IsValid() || dd < 1 {
		return nil
	}
	return &date
}

// inferCentury places a two-digit year in the current century unless that
// lands more than twenty years after today.
func inferCentury(yy int, today civil.Date) int {
	century := today.Year / 100 * 100
	y := century + yy
	if y > today.Year+20 {
		y -= 100
	}
	return y
}

func monthFromNumber(s string) time.Month {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 12 {
		return 0
	}
	return time.Month(n)
}

func monthFromName(s string) time.Month {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return 0
	}
	return months[s[:3]]
}

func hasLetters(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

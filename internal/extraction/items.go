package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

var (
	quantityFirst = regexp.MustCompile(`^\s*(\d+)\s+(.+)`)
	numberPattern = regexp.MustCompile(`\b(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)\b`)
	summaryRow    = regexp.MustCompile(`(?i)^\s*(sub[\s-]*total|total|grand\s+total|tax|vat|gst|amount\s+due|balance(\s+due)?)\b`)
	itemsHeader   = regexp.MustCompile(`(?i)\b(description|item|service|product)s?\b`)
	itemsHeaderQ  = regexp.MustCompile(`(?i)\b(qty|quantity|units?|price|rate|amount|total)\b`)
)

// Column roles recognised in a table header row
const (
	colDescription = "description"
	colQuantity    = "quantity"
	colUnitPrice   = "unit_price"
	colTotal       = "total"
)

// headerKeywords are checked in this order; the first match wins for a cell.
var headerKeywords = []struct {
	role     string
	keywords []string
}{
	{colQuantity, []string{"qty", "quantity", "count", "units"}},
	{colUnitPrice, []string{"price", "rate", "unit", "cost"}},
	{colTotal, []string{"amount", "total", "sum"}},
	{colDescription, []string{"desc", "item", "service", "product"}},
}

// ParseLineItem reads one free-text line item. Three layouts are tried:
// a leading quantity followed by description, unit price and total; a
// description followed by at least three numbers (quantity, ..., unit price,
// total); and a description followed by a total. Returns nil for blank lines.
func ParseLineItem(line string) *domain.InvoiceItem {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	item := &domain.InvoiceItem{}
	described := false

	if m := quantityFirst.FindStringSubmatch(line); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil {
			item.Quantity = &q
		}
		remaining := strings.TrimSpace(m[2])
		nums := numberPattern.FindAllStringSubmatchIndex(remaining, -1)
		if len(nums) >= 2 {
			price := nums[len(nums)-2]
			total := nums[len(nums)-1]
			item.UnitPrice = ParseAmount(remaining[price[2]:price[3]])
			item.Total = ParseAmount(remaining[total[2]:total[3]])
			item.Description = cleanDescription(remaining[:price[0]])
		} else {
			item.Description = remaining
		}
		described = true
	} else {
		nums := numberPattern.FindAllStringSubmatchIndex(line, -1)
		if len(nums) >= 3 {
			qty := nums[0]
			price := nums[len(nums)-2]
			total := nums[len(nums)-1]
			if q, ok := parseQuantity(line[qty[2]:qty[3]]); ok {
				item.Quantity = &q
				item.UnitPrice = ParseAmount(line[price[2]:price[3]])
				item.Total = ParseAmount(line[total[2]:total[3]])
				item.Description = cleanDescription(line[:qty[0]])
				described = true
			}
		}
		if !described && len(nums) >= 1 {
			total := nums[len(nums)-1]
			item.Total = ParseAmount(line[total[2]:total[3]])
			item.Description = cleanDescription(line[:total[0]])
			described = true
		}
	}

	if !described || item.Description == "" {
		item.Description = line
	}
	return item
}

// ItemsFromTables reads line items from detected tables. A header row is
// classified by keyword when present; otherwise columns are read by position.
func ItemsFromTables(tables [][][]string) []domain.InvoiceItem {
	var items []domain.InvoiceItem
	for _, table := range tables {
		if len(table) == 0 {
			continue
		}
		rows := table
		columns := classifyHeader(table[0])
		if columns != nil {
			rows = table[1:]
		}
		for _, row := range rows {
			cols := columns
			if cols == nil {
				cols = positionalColumns(len(row))
			}
			if item, ok := itemFromRow(row, cols); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

// classifyHeader maps column roles to indexes, or returns nil when the row
// does not look like a header.
func classifyHeader(row []string) map[string]int {
	columns := make(map[string]int)
	for idx, cell := range row {
		cell = strings.ToLower(strings.TrimSpace(cell))
		if cell == "" || numberPattern.MatchString(cell) {
			continue
		}
	roles:
		for _, h := range headerKeywords {
			if _, taken := columns[h.role]; taken {
				continue
			}
			for _, kw := range h.keywords {
				if strings.Contains(cell, kw) {
					columns[h.role] = idx
					break roles
				}
			}
		}
	}
	if len(columns) < 2 {
		return nil
	}
	_, hasDesc := columns[colDescription]
	_, hasTotal := columns[colTotal]
	if !hasDesc && !hasTotal {
		return nil
	}
	return columns
}

func positionalColumns(n int) map[string]int {
	switch {
	case n >= 4:
		return map[string]int{colDescription: 0, colQuantity: 1, colUnitPrice: n - 2, colTotal: n - 1}
	case n == 3:
		return map[string]int{colDescription: 0, colQuantity: 1, colTotal: 2}
	case n == 2:
		return map[string]int{colDescription: 0, colTotal: 1}
	}
	return nil
}

func itemFromRow(row []string, cols map[string]int) (domain.InvoiceItem, bool) {
	cell := func(role string) string {
		idx, ok := cols[role]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var item domain.InvoiceItem
	item.Description = cell(colDescription)
	if item.Description == "" || summaryRow.MatchString(item.Description) {
		return item, false
	}
	if q, ok := parseQuantity(cell(colQuantity)); ok {
		item.Quantity = &q
	}
	item.UnitPrice = ParseAmount(cell(colUnitPrice))
	item.Total = ParseAmount(cell(colTotal))
	return item, true
}

// itemsFromText reads line items from the lines between an item header such
// as "Description  Qty  Amount" and the first summary line.
func itemsFromText(text string) []domain.InvoiceItem {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if itemsHeader.MatchString(line) && itemsHeaderQ.MatchString(line) && !numberPattern.MatchString(line) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	var items []domain.InvoiceItem
	for _, line := range lines[start:] {
		if strings.TrimSpace(line) == "" {
			if len(items) > 0 {
				break
			}
			continue
		}
		if summaryRow.MatchString(line) {
			break
		}
		if item := ParseLineItem(line); item != nil {
			items = append(items, *item)
		}
	}
	return items
}

func parseQuantity(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if q, err := strconv.Atoi(s); err == nil {
		return q, true
	}
	d := ParseAmount(s)
	if d == nil || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return int(d.IntPart()), true
}

func cleanDescription(s string) string {
	return strings.Trim(strings.TrimSpace(s), "$€£@:- \t")
}

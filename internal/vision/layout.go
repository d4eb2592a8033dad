package vision

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
)

var (
	keyValueLine = regexp.MustCompile(`^([^:]{1,40}?)\s*:\s*(\S.*)$`)
	columnGap    = regexp.MustCompile(`\t+|\s{2,}`)
)

// minTableRows is the number of aligned lines that make up a table
const minTableRows = 2

// AnalyzeLayout fills in key/value pairs and tables from the recognized text
// when the back end did not report them. Key/value pairs come from
// "key: value" lines; tables from runs of lines that split into the same
// number of columns on wide gaps.
func AnalyzeLayout(ocr *domain.OCRResult) {
	if ocr == nil || strings.TrimSpace(ocr.Text) == "" {
		return
	}
	lines := strings.Split(strings.ReplaceAll(ocr.Text, "\r\n", "\n"), "\n")

	if len(ocr.KeyValuePairs) == 0 {
		ocr.KeyValuePairs = keyValuePairs(lines)
	}
	if len(ocr.Tables) == 0 {
		ocr.Tables = alignedTables(lines)
	}
}

func keyValuePairs(lines []string) map[string]string {
	pairs := make(map[string]string)
	for _, line := range lines {
		m := keyValueLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		key := strings.TrimSpace(m[1])
		if key == "" {
			continue
		}
		if _, seen := pairs[key]; !seen {
			pairs[key] = strings.TrimSpace(m[2])
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	return pairs
}

func alignedTables(lines []string) [][][]string {
	var (
		tables [][][]string
		run    [][]string
	)
	flush := func() {
		if len(run) >= minTableRows {
			tables = append(tables, run)
		}
		run = nil
	}

	for _, line := range lines {
		cells := splitColumns(line)
		if len(cells) < 2 {
			flush()
			continue
		}
		if len(run) > 0 && len(run[0]) != len(cells) {
			flush()
		}
		run = append(run, cells)
	}
	flush()
	return tables
}

func splitColumns(line string) []string {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	var cells []string
	for _, c := range columnGap.Split(line, -1) {
		if c = strings.TrimSpace(c); c != "" {
			cells = append(cells, c)
		}
	}
	return cells
}

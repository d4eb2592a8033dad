package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the invoice table
const SheetName = "Invoices"

const (
	totalFill     = "E0E0E0"
	borderMedium  = 2
	widePadding   = 5
	narrowPadding = 2
)

// wideColumns get extra padding because their text tends to wrap
var wideColumns = map[string]bool{
	"Vendor Name": true,
	"Address":     true,
	"Description": true,
}

func writeXLSX(rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, err
	}

	table := append([][]string{Columns}, rows...)
	for r, row := range table {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(SheetName, cell, value); err != nil {
				return nil, err
			}
		}
	}

	if err := styleTable(f, len(table)); err != nil {
		return nil, err
	}
	if err := sizeColumns(f, table); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func styleTable(f *excelize.File, rowCount int) error {
	borders := []excelize.Border{
		{Type: "left", Color: "000000", Style: borderMedium},
		{Type: "right", Color: "000000", Style: borderMedium},
		{Type: "top", Color: "000000", Style: borderMedium},
		{Type: "bottom", Color: "000000", Style: borderMedium},
	}
	align := &excelize.Alignment{WrapText: true, Vertical: "center"}

	body, err := f.NewStyle(&excelize.Style{Border: borders, Alignment: align})
	if err != nil {
		return err
	}
	header, err := f.NewStyle(&excelize.Style{Border: borders, Alignment: align, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	total, err := f.NewStyle(&excelize.Style{
		Border:    borders,
		Alignment: align,
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{totalFill}},
	})
	if err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return err
	}
	rowRange := func(row, style int) error {
		return f.SetCellStyle(SheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", lastCol, row), style)
	}

	if err := rowRange(1, header); err != nil {
		return err
	}
	for row := 2; row < rowCount; row++ {
		if err := rowRange(row, body); err != nil {
			return err
		}
	}
	return rowRange(rowCount, total)
}

func sizeColumns(f *excelize.File, table [][]string) error {
	for c, name := range Columns {
		longest := 0
		for _, row := range table {
			if n := utf8.RuneCountInString(row[c]); n > longest {
				longest = n
			}
		}
		padding := narrowPadding
		if wideColumns[name] {
			padding = widePadding
		}
		col, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, float64(longest+padding)); err != nil {
			return err
		}
	}
	return nil
}

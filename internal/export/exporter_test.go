package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sampleInvoices() []*domain.Invoice {
	date := civil.Date{Year: 2024, Month: time.January, Day: 15}
	return []*domain.Invoice{
		{
			Filename:      "scan.png",
			InvoiceNumber: "AB12345",
			InvoiceDate:   &date,
			GrandTotal:    dec("100.00"),
			Taxes:         dec("8.00"),
			FinalTotal:    dec("108.00"),
			Items:         []domain.InvoiceItem{},
			Pages:         1,
		},
		{
			Filename:      "acme.pdf",
			InvoiceNumber: "INV-2",
			Vendor: domain.Vendor{
				Name:    "Acme Corp",
				Address: domain.Address{Street: "1 Main St", City: "Springfield", PostalCode: "62704"},
			},
			GrandTotal: dec("50.5"),
			FinalTotal: dec("50.5"),
			Items:      []domain.InvoiceItem{},
			Pages:      3,
		},
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"100", "100.00"},
		{"100.5", "100.50"},
		{"100.25", "100.25"},
		{"1.125", "1.125"},
		{"1.1250", "1.1250"},
		{"1.123456", "1.1234"},
		{"0", "0.00"},
		{"-3.1", "-3.10"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDecimal(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestExport_CSV(t *testing.T) {
	data, err := New(Config{}).Export(sampleInvoices(), domain.ExportCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, Columns, records[0])
	assert.Equal(t, []string{"scan.png", "AB12345", "", "", "2024-01-15", "$100.00", "$8.00", "$108.00", "Purchase 1", "1"}, records[1])
	assert.Equal(t, []string{"acme.pdf", "INV-2", "Acme Corp", "1 Main St, Springfield, 62704", "", "$50.50", "", "$50.50", "Purchase 2", "3"}, records[2])
	assert.Equal(t, []string{"", "", "TOTAL", "", "", "$150.50", "", "$158.50", "", ""}, records[3])
}

func TestExport_CSV_NoInvoices(t *testing.T) {
	data, err := New(Config{}).Export(nil, domain.ExportCSV)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "TOTAL", records[1][2])
	assert.Equal(t, "$0.00", records[1][5])
}

func TestExport_Currency(t *testing.T) {
	data, err := New(Config{Currency: "€"}).Export(sampleInvoices()[:1], domain.ExportCSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), "€108.00")
}

func TestExport_XLSX(t *testing.T) {
	data, err := New(Config{}).Export(sampleInvoices(), domain.ExportExcel)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "AB12345", rows[1][1])
	assert.Equal(t, "TOTAL", rows[3][2])
	assert.Equal(t, "$158.50", rows[3][7])

	header := cellStyle(t, f, "A1")
	assert.True(t, header.Font.Bold)
	require.Len(t, header.Border, 4)
	assert.Equal(t, borderMedium, header.Border[0].Style)

	body := cellStyle(t, f, "B2")
	assert.True(t, body.Alignment.WrapText)
	assert.Equal(t, "center", body.Alignment.Vertical)
	assert.False(t, body.Font != nil && body.Font.Bold)

	total := cellStyle(t, f, "C4")
	assert.True(t, total.Font.Bold)
	assert.Equal(t, []string{totalFill}, total.Fill.Color)

	// "1 Main St, Springfield, 62704" is the longest Address cell
	width, err := f.GetColWidth(SheetName, "D")
	require.NoError(t, err)
	assert.Equal(t, float64(len("1 Main St, Springfield, 62704")+widePadding), width)

	// "Invoice Number" header is the longest in column B
	width, err = f.GetColWidth(SheetName, "B")
	require.NoError(t, err)
	assert.Equal(t, float64(len("Invoice Number")+narrowPadding), width)
}

func TestExport_InvalidFormat(t *testing.T) {
	_, err := New(Config{}).Export(sampleInvoices(), domain.ExportFormat("pdf"))
	assert.True(t, errors.Is(err, domain.ErrInvalidFormat))
}

func cellStyle(t *testing.T, f *excelize.File, cell string) *excelize.Style {
	t.Helper()
	id, err := f.GetCellStyle(SheetName, cell)
	require.NoError(t, err)
	style, err := f.GetStyle(id)
	require.NoError(t, err)
	return style
}

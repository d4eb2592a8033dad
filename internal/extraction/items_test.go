package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineItem(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		description string
		quantity    *int
		unitPrice   string
		total       string
	}{
		{"quantity first", "2 Widget 10.00 20.00", "Widget", intp(2), "10", "20"},
		{"description then three numbers", "Consulting services 3 150.00 450.00", "Consulting services", intp(3), "150", "450"},
		{"description and total", "Shipping 15.00", "Shipping", nil, "", "15"},
		{"grouped thousands", "1 Server rack $1,200.00 $1,200.00", "Server rack", intp(1), "1200", "1200"},
		{"no numbers", "Miscellaneous", "Miscellaneous", nil, "", ""},
		{"numbers only keeps whole line", "3 10.00 30.00", "3 10.00 30.00", intp(3), "10", "30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := ParseLineItem(tt.line)
			require.NotNil(t, item)
			assert.Equal(t, tt.description, item.Description)
			assert.Equal(t, tt.quantity, item.Quantity)
			if tt.unitPrice == "" {
				assert.Nil(t, item.UnitPrice)
			} else {
				require.NotNil(t, item.UnitPrice)
				assert.Equal(t, tt.unitPrice, item.UnitPrice.String())
			}
			if tt.total == "" {
				assert.Nil(t, item.Total)
			} else {
				require.NotNil(t, item.Total)
				assert.Equal(t, tt.total, item.Total.String())
			}
		})
	}
}

func TestParseLineItem_Blank(t *testing.T) {
	assert.Nil(t, ParseLineItem(""))
	assert.Nil(t, ParseLineItem("   \t"))
}

func TestItemsFromTables_HeaderRow(t *testing.T) {
	tables := [][][]string{{
		{"Description", "Qty", "Unit Price", "Amount"},
		{"Widget", "2", "10.00", "20.00"},
		{"Gadget", "1", "5.50", "5.50"},
		{"Total", "", "", "25.50"},
	}}

	items := ItemsFromTables(tables)

	require.Len(t, items, 2)
	assert.Equal(t, "Widget", items[0].Description)
	assert.Equal(t, intp(2), items[0].Quantity)
	assert.Equal(t, "10", items[0].UnitPrice.String())
	assert.Equal(t, "20", items[0].Total.String())
	assert.Equal(t, "Gadget", items[1].Description)
}

func TestItemsFromTables_ReorderedHeader(t *testing.T) {
	tables := [][][]string{{
		{"Amount", "Item", "Units"},
		{"30.00", "Paper", "3"},
	}}

	items := ItemsFromTables(tables)

	require.Len(t, items, 1)
	assert.Equal(t, "Paper", items[0].Description)
	assert.Equal(t, intp(3), items[0].Quantity)
	assert.Equal(t, "30", items[0].Total.String())
	assert.Nil(t, items[0].UnitPrice)
}

func TestItemsFromTables_Positional(t *testing.T) {
	tests := []struct {
		name  string
		row   []string
		qty   *int
		price string
		total string
	}{
		{"four columns", []string{"Widget", "2", "10.00", "20.00"}, intp(2), "10", "20"},
		{"three columns", []string{"Widget", "2", "20.00"}, intp(2), "", "20"},
		{"two columns", []string{"Widget", "20.00"}, nil, "", "20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := ItemsFromTables([][][]string{{tt.row}})
			require.Len(t, items, 1)
			assert.Equal(t, "Widget", items[0].Description)
			assert.Equal(t, tt.qty, items[0].Quantity)
			if tt.price == "" {
				assert.Nil(t, items[0].UnitPrice)
			} else {
				assert.Equal(t, tt.price, items[0].UnitPrice.String())
			}
			assert.Equal(t, tt.total, items[0].Total.String())
		})
	}
}

func TestItemsFromTables_DiscardsEmptyDescription(t *testing.T) {
	items := ItemsFromTables([][][]string{{{"", "2", "10.00", "20.00"}}})
	assert.Empty(t, items)
}

func TestItemsFromText(t *testing.T) {
	text := "ACME Corp\nDescription   Qty   Price   Amount\n2 Widget 10.00 20.00\n1 Gadget 5.00 5.00\nSubtotal: $25.00\nTotal: $25.00"

	items := itemsFromText(text)

	require.Len(t, items, 2)
	assert.Equal(t, "Widget", items[0].Description)
	assert.Equal(t, "Gadget", items[1].Description)
}

func TestItemsFromText_NoHeader(t *testing.T) {
	assert.Empty(t, itemsFromText("Subtotal: $100.00\nTax: $8.00\nTotal: $108.00"))
}

func intp(n int) *int { return &n }

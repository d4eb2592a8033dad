package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "100", "100"},
		{"currency and grouping", "$1,234.56", "1234.56"},
		{"negative", "-12.50", "-12.5"},
		{"trailing code", "99.99 USD", "99.99"},
		{"european grouping", "1.234.567,89", "1234567.89"},
		{"dotted grouping", "EUR 12.345.678", "12345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAmount(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount_StripFirstWins(t *testing.T) {
	// a single comma is stripped and the period stays the decimal point
	got := ParseAmount("1.234,56 EUR")
	require.NotNil(t, got)
	assert.Equal(t, "1.23456", got.String())
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.234,56 EUR", "1234.56"},
		{"CHF 1'234.50", "1234.5"},
		{"12.345.678", "12345678"},
		{"-7,5", "-7.5"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parsePrice(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount_Unparsable(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", ".", "N/A"} {
		t.Run(in, func(t *testing.T) {
			assert.Nil(t, ParseAmount(in))
		})
	}
}

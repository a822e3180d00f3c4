package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

func TestParseWithRules_Blank(t *testing.T) {
	assert.Empty(t, ParseWithRules(""))
	assert.Empty(t, ParseWithRules("  \n\t\n"))
}

func TestParseWithRules_NoSignalsYieldsOneFallbackItem(t *testing.T) {
	items := ParseWithRules("Supplier: Acme Metals\nThank you for your business\nSee terms overleaf")
	require.Len(t, items, 1)
	assert.Equal(t, "Acme Metals", items[0].Supplier)
	// first non-blank line, even when it is the supplier line
	assert.Equal(t, "Supplier: Acme Metals", items[0].Description)
	assert.Nil(t, items[0].AmountUSD)
}

func TestParseWithRules_NoSupplier(t *testing.T) {
	items := ParseWithRules("hello world")
	require.Len(t, items, 1)
	assert.Equal(t, entity.UnknownSupplier, items[0].Supplier)
	assert.Equal(t, "hello world", items[0].Description)
}

func TestParseWithRules_Signals(t *testing.T) {
	text := `Supplier: Acme Steel
Hot rolled steel coil 1,200 kg $2,400.50
Packaging pallets 50 kilogram
Vendor: FastFreight
Truck transport 5 tons 200 km 350 USD
Handling fee $75`

	items := ParseWithRules(text)
	require.Len(t, items, 4)

	steel := items[0]
	assert.Equal(t, "Acme Steel", steel.Supplier)
	assert.Equal(t, "Hot rolled steel coil 1,200 kg $2,400.50", steel.Description)
	require.NotNil(t, steel.QtyKg)
	assert.Equal(t, 1200.0, *steel.QtyKg)
	require.NotNil(t, steel.AmountUSD)
	assert.Equal(t, 2400.5, *steel.AmountUSD)

	pallets := items[1]
	require.NotNil(t, pallets.QtyKg)
	assert.Equal(t, 50.0, *pallets.QtyKg)
	assert.Nil(t, pallets.AmountUSD)

	freight := items[2]
	assert.Equal(t, "FastFreight", freight.Supplier)
	require.NotNil(t, freight.WeightTons)
	require.NotNil(t, freight.DistanceKm)
	require.NotNil(t, freight.AmountUSD)
	assert.Equal(t, 5.0, *freight.WeightTons)
	assert.Equal(t, 200.0, *freight.DistanceKm)
	assert.Equal(t, 350.0, *freight.AmountUSD)
	assert.Nil(t, freight.QtyKg)

	fee := items[3]
	assert.Equal(t, "FastFreight", fee.Supplier)
	require.NotNil(t, fee.AmountUSD)
	assert.Equal(t, 75.0, *fee.AmountUSD)
}

func TestParseWithRules_SupplierLineUpdates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "from prefix",
			text: "From: Northwind\nWidgets 10",
			want: []string{"Northwind"},
		},
		{
			name: "supplier without colon keeps whole line",
			text: "Supplier Globex\nBolts 12",
			want: []string{"Supplier Globex"},
		},
		{
			name: "empty value falls back to detected supplier",
			text: "Vendor: Initech\nStaples 3\nSupplier:\nPaper 4",
			want: []string{"Initech", "Initech"},
		},
		{
			name: "empty value with no detected supplier",
			text: "Supplier:\nPaper 4",
			want: []string{entity.UnknownSupplier},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := ParseWithRules(tt.text)
			got := make([]string, 0, len(items))
			for _, it := range items {
				got = append(got, it.Supplier)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseWithRules_PlainNumberIsAmount(t *testing.T) {
	items := ParseWithRules("Consulting services 1500")
	require.Len(t, items, 1)
	require.NotNil(t, items[0].AmountUSD)
	assert.Equal(t, 1500.0, *items[0].AmountUSD)
}

func TestParseWithRules_CaseInsensitiveUnits(t *testing.T) {
	items := ParseWithRules("Rail leg 12.5 TONNES 300 Kilometres")
	require.Len(t, items, 1)
	require.NotNil(t, items[0].WeightTons)
	require.NotNil(t, items[0].DistanceKm)
	assert.Equal(t, 12.5, *items[0].WeightTons)
	assert.Equal(t, 300.0, *items[0].DistanceKm)
	assert.Nil(t, items[0].AmountUSD)
}

func TestParseWithRules_CRLF(t *testing.T) {
	items := ParseWithRules("Supplier: A\r\nBeam 10 kg\r\n")
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Supplier)
	assert.Equal(t, "Beam 10 kg", items[0].Description)
}

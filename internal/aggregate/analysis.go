package aggregate

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

// NewInvoiceID returns a fresh "INV-<uuid>" identifier.
func NewInvoiceID() string {
	return common.InvoiceIDPrefix + uuid.New().String()
}

// BuildAnalysis assembles the analysis record for one invoice from its enriched items.
func BuildAnalysis(invoiceID string, items []entity.LineItem) entity.Analysis {
	agg := Aggregate(items)

	var hs entity.Hotspots
	if s, ok := topSupplier(agg.BySupplier); ok {
		hs.TopSupplier = &s
	}
	if c, ok := topCategory(agg.ByCategory); ok {
		hs.TopCategory = &c
	}

	return entity.Analysis{
		InvoiceID: invoiceID,
		Summary: entity.Summary{
			TotalEmissionsKg: round2(agg.TotalEmissions),
			Currency:         entity.CurrencyUSD,
			TotalSpend:       round2(agg.TotalSpend),
		},
		BySupplier:     agg.BySupplier,
		ByCategory:     agg.ByCategory,
		Hotspots:       hs,
		Items:          agg.Items,
		Recommendation: Recommendation(agg.BySupplier),
		CreatedAt:      time.Now().UTC(),
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

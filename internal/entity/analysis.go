package entity

import "time"

const CurrencyUSD = "USD"

// SupplierAggregate is the per-supplier rollup with its relative impact score.
type SupplierAggregate struct {
	Supplier    string  `json:"supplier"`
	EmissionsKg float64 `json:"emissions_kg"`
	Spend       float64 `json:"spend"`
	Score       float64 `json:"score"`
	Comments    string  `json:"comments"`
}

// CategoryAggregate is the per-category emissions rollup.
type CategoryAggregate struct {
	Category    string  `json:"category"`
	EmissionsKg float64 `json:"emissions_kg"`
}

type Summary struct {
	TotalEmissionsKg float64 `json:"total_emissions_kg"`
	Currency         string  `json:"currency"`
	TotalSpend       float64 `json:"total_spend"`
}

// Hotspots name the highest-emitting supplier and category; nil when there is no data.
type Hotspots struct {
	TopSupplier *string `json:"top_supplier"`
	TopCategory *string `json:"top_category"`
}

// Analysis is the externally visible result for one invoice. It is never mutated after creation.
type Analysis struct {
	InvoiceID      string              `json:"invoice_id"`
	Summary        Summary             `json:"summary"`
	BySupplier     []SupplierAggregate `json:"by_supplier"`
	ByCategory     []CategoryAggregate `json:"by_category"`
	Hotspots       Hotspots            `json:"hotspots"`
	Items          []LineItem          `json:"items"`
	Recommendation string              `json:"recommendation"`
	CreatedAt      time.Time           `json:"created_at"`
}

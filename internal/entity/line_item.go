package entity

const (
	UnknownSupplier = "Unknown Supplier"
	UnknownItem     = "Unknown item"
)

// LineItem is one detected invoice row. Optional numeric fields are nil when absent.
// Category and EmissionsKg are filled in by the emissions calculator.
type LineItem struct {
	Supplier    string   `json:"supplier"`
	Description string   `json:"description"`
	AmountUSD   *float64 `json:"amount_usd,omitempty"`
	QtyKg       *float64 `json:"qty_kg,omitempty"`
	WeightTons  *float64 `json:"weight_tons,omitempty"`
	DistanceKm  *float64 `json:"distance_km,omitempty"`
	Category    string   `json:"category,omitempty"`
	EmissionsKg *float64 `json:"emissions_kg,omitempty"`
}

// Clone returns a deep copy so enrichment never aliases the caller's pointers.
func (li LineItem) Clone() LineItem {
	out := li
	out.AmountUSD = cloneFloat(li.AmountUSD)
	out.QtyKg = cloneFloat(li.QtyKg)
	out.WeightTons = cloneFloat(li.WeightTons)
	out.DistanceKm = cloneFloat(li.DistanceKm)
	out.EmissionsKg = cloneFloat(li.EmissionsKg)
	return out
}

// Emissions returns EmissionsKg or 0 when the item was never enriched.
func (li LineItem) Emissions() float64 {
	if li.EmissionsKg == nil {
		return 0
	}
	return *li.EmissionsKg
}

// Spend returns AmountUSD or 0 when absent.
func (li LineItem) Spend() float64 {
	if li.AmountUSD == nil {
		return 0
	}
	return *li.AmountUSD
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Package aggregate rolls enriched line items up into supplier and category totals
// and assembles the final analysis record.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

const (
	CommentHigh     = "High impact, prioritize reduction"
	CommentModerate = "Moderate"
	CommentLower    = "Lower impact"

	noSuppliers = "No suppliers detected."
)

// Result is the output of Aggregate. Groups are ordered by their key.
type Result struct {
	TotalEmissions float64
	TotalSpend     float64
	Items          []entity.LineItem
	BySupplier     []entity.SupplierAggregate
	ByCategory     []entity.CategoryAggregate
}

// Aggregate sums emissions and spend overall, per supplier and per category.
// A missing amount counts as zero spend. Empty input yields zero totals and empty groups.
func Aggregate(items []entity.LineItem) Result {
	res := Result{
		Items:      items,
		BySupplier: []entity.SupplierAggregate{},
		ByCategory: []entity.CategoryAggregate{},
	}
	if len(items) == 0 {
		res.Items = []entity.LineItem{}
		return res
	}

	type supplierSum struct{ emissions, spend decimal.Decimal }
	suppliers := map[string]*supplierSum{}
	categories := map[string]decimal.Decimal{}
	total, spend := decimal.Zero, decimal.Zero

	for _, it := range items {
		e := decimal.NewFromFloat(it.Emissions())
		s := decimal.NewFromFloat(it.Spend())
		total = total.Add(e)
		spend = spend.Add(s)

		sum, ok := suppliers[it.Supplier]
		if !ok {
			sum = &supplierSum{}
			suppliers[it.Supplier] = sum
		}
		sum.emissions = sum.emissions.Add(e)
		sum.spend = sum.spend.Add(s)

		categories[it.Category] = categories[it.Category].Add(e)
	}

	res.TotalEmissions = total.InexactFloat64()
	res.TotalSpend = spend.InexactFloat64()

	maxEmissions := decimal.Zero
	for _, name := range sortedKeys(suppliers) {
		sum := suppliers[name]
		if sum.emissions.GreaterThan(maxEmissions) {
			maxEmissions = sum.emissions
		}
		res.BySupplier = append(res.BySupplier, entity.SupplierAggregate{
			Supplier:    name,
			EmissionsKg: sum.emissions.InexactFloat64(),
			Spend:       sum.spend.InexactFloat64(),
		})
	}
	for i := range res.BySupplier {
		sc := score(decimal.NewFromFloat(res.BySupplier[i].EmissionsKg), maxEmissions)
		res.BySupplier[i].Score = sc
		res.BySupplier[i].Comments = Comment(sc)
	}

	for _, cat := range sortedKeys(categories) {
		res.ByCategory = append(res.ByCategory, entity.CategoryAggregate{
			Category:    cat,
			EmissionsKg: categories[cat].InexactFloat64(),
		})
	}
	return res
}

// score is 100*(1 - e/max) rounded to 2 places, or 0 when max is 0.
func score(e, maxEmissions decimal.Decimal) float64 {
	if maxEmissions.IsZero() {
		return 0
	}
	hundred := decimal.NewFromInt(100)
	s := hundred.Mul(decimal.NewFromInt(1).Sub(e.DivRound(maxEmissions, 16))).Round(2)
	// a negative group sum would otherwise land outside [0, 100]
	if s.LessThan(decimal.Zero) {
		s = decimal.Zero
	}
	if s.GreaterThan(hundred) {
		s = hundred
	}
	return s.InexactFloat64()
}

// Comment maps a supplier score to its qualitative impact label.
func Comment(score float64) string {
	switch {
	case score < 40:
		return CommentHigh
	case score < 70:
		return CommentModerate
	default:
		return CommentLower
	}
}

// Recommendation names the highest-emitting supplier; ties go to the first in slice order.
func Recommendation(bySupplier []entity.SupplierAggregate) string {
	worst, ok := topSupplier(bySupplier)
	if !ok {
		return noSuppliers
	}
	return fmt.Sprintf("Focus decarbonization efforts on %s to reduce Scope 3 emissions.", worst)
}

func topSupplier(groups []entity.SupplierAggregate) (string, bool) {
	if len(groups) == 0 {
		return "", false
	}
	best := 0
	for i := 1; i < len(groups); i++ {
		if groups[i].EmissionsKg > groups[best].EmissionsKg {
			best = i
		}
	}
	return groups[best].Supplier, true
}

func topCategory(groups []entity.CategoryAggregate) (string, bool) {
	if len(groups) == 0 {
		return "", false
	}
	best := 0
	for i := 1; i < len(groups); i++ {
		if groups[i].EmissionsKg > groups[best].EmissionsKg {
			best = i
		}
	}
	return groups[best].Category, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

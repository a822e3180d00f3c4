// Package emissions applies emission factors to categorized line items.
package emissions

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/scope3-tracker/constants"
	"github.com/joseph-ayodele/scope3-tracker/internal/categorize"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

const defaultWorkers = 8

// Calculator enriches items with a category and emissions_kg.
type Calculator struct {
	workers int
	logger  *slog.Logger
}

type Option func(*Calculator)

// WithWorkers bounds ComputeAll's concurrency.
func WithWorkers(n int) Option {
	return func(c *Calculator) {
		if n > 0 {
			c.workers = n
		}
	}
}

func NewCalculator(logger *slog.Logger, opts ...Option) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Calculator{workers: defaultWorkers, logger: logger}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compute is Calculator.Compute with the default logger.
func Compute(item entity.LineItem, f entity.EmissionFactors) entity.LineItem {
	return NewCalculator(nil).Compute(item, f)
}

// Compute returns an enriched copy of item. The input is never modified.
// Negative inputs are clamped so emissions_kg is never below zero.
func (c *Calculator) Compute(item entity.LineItem, f entity.EmissionFactors) entity.LineItem {
	out := item.Clone()
	cat := ResolveCategory(item)
	out.Category = string(cat)

	raw := formula(cat, item, f)
	if raw < 0 {
		c.logger.Debug("emissions.clamped_negative",
			"description", item.Description,
			"category", out.Category,
			"raw_kg", raw,
		)
		raw = 0
	}
	out.EmissionsKg = entity.Float(round2(raw))
	return out
}

// ResolveCategory uses the item's own category when set, then the description
// keywords, then other. A set category outside the known ones means other.
func ResolveCategory(item entity.LineItem) constants.Category {
	if item.Category != "" {
		c, _ := constants.Canonicalize(item.Category)
		return c
	}
	if c, ok := categorize.Categorize(item.Description); ok {
		return c
	}
	return constants.Other
}

func formula(cat constants.Category, it entity.LineItem, f entity.EmissionFactors) float64 {
	switch {
	case cat == constants.Steel && it.QtyKg != nil:
		return *it.QtyKg * f.SteelPerKg
	case cat == constants.Packaging && it.QtyKg != nil:
		return *it.QtyKg * f.PackagingPerKg
	case cat == constants.Transport && it.WeightTons != nil && it.DistanceKm != nil:
		return *it.WeightTons * *it.DistanceKm * f.TransportPerTkm
	case it.AmountUSD != nil:
		return *it.AmountUSD * f.OtherPerUSD
	default:
		return 0
	}
}

// ComputeAll enriches items concurrently and preserves their order.
// A cancelled ctx stops scheduling; items not yet computed are enriched inline so the
// result is always complete.
func (c *Calculator) ComputeAll(ctx context.Context, items []entity.LineItem, f entity.EmissionFactors) []entity.LineItem {
	out := make([]entity.LineItem, len(items))
	done := make([]bool, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range items {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			out[i] = c.Compute(items[i], f)
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for i := range items {
		if !done[i] {
			out[i] = c.Compute(items[i], f)
		}
	}
	return out
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

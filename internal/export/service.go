// Package export renders analyses as XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

const (
	SheetSummary    = "Summary"
	SheetSuppliers  = "Suppliers"
	SheetCategories = "Categories"
	SheetItems      = "Items"
)

// Service produces XLSX bytes for a single analysis.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// AnalysisXLSX returns a workbook with one sheet per view of the analysis.
func (s *Service) AnalysisXLSX(a entity.Analysis) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	// the default "Sheet1" becomes the summary
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetSuppliers, SheetCategories, SheetItems} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
	}

	summary := [][]any{
		{"Invoice ID", a.InvoiceID},
		{"Total Emissions (kg CO2e)", a.Summary.TotalEmissionsKg},
		{"Total Spend", a.Summary.TotalSpend},
		{"Currency", a.Summary.Currency},
		{"Top Supplier", deref(a.Hotspots.TopSupplier)},
		{"Top Category", deref(a.Hotspots.TopCategory)},
		{"Recommendation", a.Recommendation},
	}
	if !a.CreatedAt.IsZero() {
		summary = append(summary, []any{"Created At", a.CreatedAt.UTC().Format(time.RFC3339)})
	}
	if err := writeRows(f, SheetSummary, nil, summary); err != nil {
		return nil, err
	}

	suppliers := make([][]any, 0, len(a.BySupplier))
	for _, sa := range a.BySupplier {
		suppliers = append(suppliers, []any{sa.Supplier, sa.EmissionsKg, sa.Spend, sa.Score, sa.Comments})
	}
	if err := writeRows(f, SheetSuppliers,
		[]string{"Supplier", "Emissions (kg)", "Spend", "Score", "Comments"}, suppliers); err != nil {
		return nil, err
	}

	categories := make([][]any, 0, len(a.ByCategory))
	for _, ca := range a.ByCategory {
		categories = append(categories, []any{ca.Category, ca.EmissionsKg})
	}
	if err := writeRows(f, SheetCategories, []string{"Category", "Emissions (kg)"}, categories); err != nil {
		return nil, err
	}

	items := make([][]any, 0, len(a.Items))
	for _, it := range a.Items {
		items = append(items, []any{
			it.Supplier,
			truncate(it.Description, 140),
			it.Category,
			optional(it.AmountUSD),
			optional(it.QtyKg),
			optional(it.WeightTons),
			optional(it.DistanceKm),
			it.Emissions(),
		})
	}
	if err := writeRows(f, SheetItems, []string{
		"Supplier", "Description", "Category", "Amount (USD)", "Qty (kg)", "Weight (t)", "Distance (km)", "Emissions (kg)",
	}, items); err != nil {
		return nil, err
	}

	// Widen a few columns
	_ = f.SetColWidth(SheetSummary, "A", "A", 26)
	_ = f.SetColWidth(SheetSummary, "B", "B", 60)
	_ = f.SetColWidth(SheetSuppliers, "A", "A", 28)
	_ = f.SetColWidth(SheetSuppliers, "E", "E", 34)
	_ = f.SetColWidth(SheetCategories, "A", "B", 16)
	_ = f.SetColWidth(SheetItems, "A", "A", 24)
	_ = f.SetColWidth(SheetItems, "B", "B", 48)

	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"invoice_id", a.InvoiceID,
		"items", len(a.Items),
		"suppliers", len(a.BySupplier),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// writeRows writes an optional header row followed by rows, starting at A1.
func writeRows(f *excelize.File, sheet string, header []string, rows [][]any) error {
	row := 1
	if len(header) > 0 {
		vals := make([]any, len(header))
		for i, h := range header {
			vals[i] = h
		}
		if err := f.SetSheetRow(sheet, "A1", &vals); err != nil {
			return fmt.Errorf("write %s header: %w", sheet, err)
		}
		row++
	}
	for _, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, row, err)
		}
		row++
	}
	return nil
}

// optional renders an absent value as an empty cell.
func optional(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

// Package pipeline runs one invoice end to end: text, items, emissions, analysis, store.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/scope3-tracker/internal/aggregate"
	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/emissions"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
	"github.com/joseph-ayodele/scope3-tracker/internal/factors"
	"github.com/joseph-ayodele/scope3-tracker/internal/parser"
)

// TextExtractor is satisfied by *ocr.Extractor.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, filename string) string
}

// ItemParser is satisfied by *parser.Parser.
type ItemParser interface {
	ParseInvoiceText(ctx context.Context, text string) parser.ParseResult
}

// AnalysisSaver is satisfied by every repository.AnalysisStore.
type AnalysisSaver interface {
	Save(ctx context.Context, invoiceID string, analysis entity.Analysis) error
}

// Recorder is satisfied by *metrics.Metrics.
type Recorder interface {
	ObserveAnalysis(seconds float64, items int, emissionsKg float64)
}

// Processor coordinates text extraction, item parsing, emissions and aggregation.
type Processor struct {
	logger      *slog.Logger
	text        TextExtractor
	parser      ItemParser
	calc        *emissions.Calculator
	store       AnalysisSaver
	recorder    Recorder
	factorsPath string
}

type Option func(*Processor)

func WithFactorsPath(path string) Option {
	return func(p *Processor) { p.factorsPath = path }
}

func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

func WithCalculator(c *emissions.Calculator) Option {
	return func(p *Processor) {
		if c != nil {
			p.calc = c
		}
	}
}

// NewProcessor wires the stages. text may be nil when only AnalyzeText is used;
// store may be nil when results are not kept.
func NewProcessor(logger *slog.Logger, text TextExtractor, itemParser ItemParser, store AnalysisSaver, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if itemParser == nil {
		itemParser = parser.NewParser(nil, nil, logger)
	}
	p := &Processor{
		logger:      logger,
		text:        text,
		parser:      itemParser,
		calc:        emissions.NewCalculator(logger),
		store:       store,
		factorsPath: factors.DefaultPath,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// AnalyzeText builds and stores the analysis for raw invoice text. Extraction problems never
// fail the run; the worst case is an all-zero analysis. Only a store failure is returned.
func (p *Processor) AnalyzeText(ctx context.Context, text string) (entity.Analysis, error) {
	start := time.Now()
	invoiceID := aggregate.NewInvoiceID()
	ctx = common.WithInvoiceID(ctx, invoiceID)
	logger := p.logger.With("invoice_id", invoiceID)

	f := factors.Load(p.factorsPath, logger)

	var res parser.ParseResult
	if strings.TrimSpace(text) == "" {
		res = parser.ParseResult{Items: []entity.LineItem{}, Strategy: parser.StrategyNone}
		logger.Info("pipeline.analyze.blank_text")
	} else {
		res = p.parser.ParseInvoiceText(ctx, text)
	}

	items := p.calc.ComputeAll(ctx, res.Items, f)
	analysis := aggregate.BuildAnalysis(invoiceID, items)

	if p.store != nil {
		if err := p.store.Save(ctx, invoiceID, analysis); err != nil {
			logger.Error("pipeline.analyze.save_failed", "error", err)
			return analysis, fmt.Errorf("save analysis %s: %w", invoiceID, err)
		}
	}

	elapsed := time.Since(start)
	if p.recorder != nil {
		p.recorder.ObserveAnalysis(elapsed.Seconds(), len(items), analysis.Summary.TotalEmissionsKg)
	}
	logger.Info("pipeline.analyze.ok",
		"strategy", res.Strategy,
		"items", len(items),
		"total_emissions_kg", analysis.Summary.TotalEmissionsKg,
		"total_spend", analysis.Summary.TotalSpend,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return analysis, nil
}

// AnalyzeBytes extracts text from an uploaded file and analyzes it.
func (p *Processor) AnalyzeBytes(ctx context.Context, data []byte, filename string) (entity.Analysis, error) {
	var text string
	if p.text != nil {
		text = p.text.ExtractText(ctx, data, filename)
	} else {
		text = strings.ToValidUTF8(string(data), "")
	}
	p.logger.Debug("pipeline.text.ok", "filename", filename, "bytes", len(data), "chars", len(text))
	return p.AnalyzeText(ctx, text)
}

// AnalyzeFile reads path and analyzes its contents.
func (p *Processor) AnalyzeFile(ctx context.Context, path string) (entity.Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		p.logger.Error("pipeline.read_failed", "path", path, "error", err)
		return entity.Analysis{}, fmt.Errorf("read %s: %w", path, err)
	}
	return p.AnalyzeBytes(ctx, data, filepath.Base(path))
}

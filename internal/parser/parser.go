// Package parser turns invoice text into raw line items, preferring the extraction service
// and falling back to line heuristics.
package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
	"github.com/joseph-ayodele/scope3-tracker/internal/llm"
)

// Strategy names whose output a ParseResult carries.
type Strategy string

const (
	StrategyLLM   Strategy = "llm"
	StrategyRules Strategy = "rules"
	StrategyNone  Strategy = "none"
)

// ItemExtractor is satisfied by *llm.Extractor.
type ItemExtractor interface {
	ExtractInvoiceItems(ctx context.Context, text string) ([]entity.LineItem, error)
}

// StrategyRecorder is satisfied by *metrics.Metrics.
type StrategyRecorder interface {
	ObserveStrategy(strategy string)
}

// ParseResult is the outcome of one parse. Err is the extraction-service error that decided
// the branch, if any; it is informational and never fatal.
type ParseResult struct {
	Items    []entity.LineItem
	Strategy Strategy
	Err      error
}

type Parser struct {
	extractor ItemExtractor
	recorder  StrategyRecorder
	logger    *slog.Logger
}

// NewParser accepts a nil extractor, in which case every parse uses the rules.
func NewParser(extractor ItemExtractor, recorder StrategyRecorder, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{extractor: extractor, recorder: recorder, logger: logger}
}

// ParseInvoiceText runs exactly one strategy per text and never fails.
func (p *Parser) ParseInvoiceText(ctx context.Context, text string) ParseResult {
	res := p.parse(ctx, text)
	if p.recorder != nil {
		p.recorder.ObserveStrategy(string(res.Strategy))
	}
	return res
}

func (p *Parser) parse(ctx context.Context, text string) ParseResult {
	if p.extractor == nil {
		p.logger.Debug("parser.fallback.rules", "reason", "no extractor configured")
		return ParseResult{Items: ParseWithRules(text), Strategy: StrategyRules}
	}

	items, err := p.extract(ctx, text)
	switch {
	case err == nil && len(items) > 0:
		return ParseResult{Items: items, Strategy: StrategyLLM}
	case llm.IsNoItems(err):
		p.logger.Info("parser.no_items", "error", err)
		return ParseResult{Items: []entity.LineItem{}, Strategy: StrategyNone, Err: err}
	case err == nil:
		// an extractor returning nothing without saying so is treated as authoritative
		return ParseResult{Items: []entity.LineItem{}, Strategy: StrategyNone}
	case llm.IsServiceError(err):
		p.logger.Warn("parser.fallback.rules", "reason", "service_error", "error", err)
	default:
		p.logger.Warn("parser.fallback.rules", "reason", "unexpected_error", "error", err)
	}
	return ParseResult{Items: ParseWithRules(text), Strategy: StrategyRules, Err: err}
}

// extract shields the orchestrator from a panicking extractor.
func (p *Parser) extract(ctx context.Context, text string) (items []entity.LineItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	return p.extractor.ExtractInvoiceItems(ctx, text)
}

// Package app wires configuration into the concrete collaborators shared by the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/scope3-tracker/internal/chat"
	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/emissions"
	"github.com/joseph-ayodele/scope3-tracker/internal/export"
	"github.com/joseph-ayodele/scope3-tracker/internal/llm"
	"github.com/joseph-ayodele/scope3-tracker/internal/llm/gemini"
	"github.com/joseph-ayodele/scope3-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/scope3-tracker/internal/metrics"
	"github.com/joseph-ayodele/scope3-tracker/internal/ocr"
	"github.com/joseph-ayodele/scope3-tracker/internal/parser"
	"github.com/joseph-ayodele/scope3-tracker/internal/pipeline"
	"github.com/joseph-ayodele/scope3-tracker/internal/repository"
)

// App holds one fully wired set of collaborators.
type App struct {
	Config    *common.Config
	Completer llm.Completer
	Store     repository.AnalysisStore
	Metrics   *metrics.Metrics
	Processor *pipeline.Processor
	Chat      *chat.Service
	Export    *export.Service
}

// NewCompleter picks the completion client named by cfg.Provider. A missing key is not an
// error here; the client reports it on first use.
func NewCompleter(cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch cfg.Provider {
	case "", "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Endpoint:    cfg.GeminiURL,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	default:
		return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LLM provider %q", cfg.Provider), common.ErrInvalidInput)
	}
}

// New opens the store and builds the pipeline around it. The caller owns Close.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, withRuntimeMetrics bool) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	completer, err := NewCompleter(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	extractor, err := llm.NewExtractor(completer, logger)
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	m := metrics.New(withRuntimeMetrics)
	text := ocr.NewExtractor(ocr.Config{
		Pdftotext: cfg.OCR.Pdftotext,
		Tesseract: cfg.OCR.Tesseract,
		Timeout:   cfg.OCR.Timeout,
	}, logger)

	proc := pipeline.NewProcessor(logger, text, parser.NewParser(extractor, m, logger), store,
		pipeline.WithFactorsPath(cfg.Pipeline.FactorsPath),
		pipeline.WithRecorder(m),
		pipeline.WithCalculator(emissions.NewCalculator(logger, emissions.WithWorkers(cfg.Pipeline.EmissionsWorkers))),
	)

	logger.Info("app.wired",
		"llm_provider", cfg.LLM.Provider,
		"store_driver", cfg.Store.Driver,
		"factors_path", cfg.Pipeline.FactorsPath,
	)
	return &App{
		Config:    cfg,
		Completer: completer,
		Store:     store,
		Metrics:   m,
		Processor: proc,
		Chat:      chat.NewService(store, completer, logger),
		Export:    export.NewService(logger),
	}, nil
}

func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

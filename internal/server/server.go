// Package server exposes the analysis pipeline over HTTP and a gRPC health endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

const defaultMaxUploadBytes = 20 << 20

// Analyzer is satisfied by *pipeline.Processor.
type Analyzer interface {
	AnalyzeBytes(ctx context.Context, data []byte, filename string) (entity.Analysis, error)
}

// AnalysisGetter is satisfied by every repository.AnalysisStore.
type AnalysisGetter interface {
	Get(ctx context.Context, invoiceID string) (entity.Analysis, error)
}

// Replier is satisfied by *chat.Service.
type Replier interface {
	Reply(ctx context.Context, invoiceID, message string) (string, error)
}

// Exporter is satisfied by *export.Service.
type Exporter interface {
	AnalysisXLSX(a entity.Analysis) ([]byte, error)
}

// Deps are the collaborators behind the HTTP routes. Metrics may be nil.
type Deps struct {
	Analyzer       Analyzer
	Store          AnalysisGetter
	Chat           Replier
	Export         Exporter
	Metrics        http.Handler
	MaxUploadBytes int64
}

type Server struct {
	deps   Deps
	logger *slog.Logger
}

func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Server{deps: deps, logger: logger}
}

// Routes returns the chi router with every endpoint mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestContext)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(allowAllOrigins)

	r.Get("/health", s.health)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics)
	}

	r.Post("/analyze_invoice", s.analyzeInvoice)
	r.Post("/chat", s.chat)
	r.Get("/analyses/{invoiceID}", s.getAnalysis)
	r.Get("/analyses/{invoiceID}/export.xlsx", s.exportAnalysis)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

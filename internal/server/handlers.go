package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type analyzeResponse struct {
	InvoiceID string          `json:"invoice_id"`
	Analysis  entity.Analysis `json:"analysis"`
}

type chatRequest struct {
	InvoiceID string `json:"invoice_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) analyzeInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, r, http.StatusBadRequest, errors.New("no file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	analysis, err := s.deps.Analyzer.AnalyzeBytes(r.Context(), data, header.Filename)
	if err != nil {
		s.writeError(w, r, common.HTTPStatus(err), err)
		return
	}
	s.logger.Info("http.analyze_invoice.ok", "invoice_id", analysis.InvoiceID, "filename", header.Filename)
	writeJSON(w, http.StatusOK, analyzeResponse{InvoiceID: analysis.InvoiceID, Analysis: analysis})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: malformed JSON body", common.ErrInvalidInput))
		return
	}
	reply, err := s.deps.Chat.Reply(r.Context(), req.InvoiceID, req.Message)
	if err != nil {
		s.writeError(w, r, common.HTTPStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// loadAnalysis resolves the {invoiceID} path parameter, writing the error response itself.
func (s *Server) loadAnalysis(w http.ResponseWriter, r *http.Request) (string, entity.Analysis, bool) {
	id := chi.URLParam(r, "invoiceID")
	if err := common.NewValidator().Field("invoice_id", id, common.Required, common.InvoiceID).Error(); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return id, entity.Analysis{}, false
	}
	analysis, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, common.HTTPStatus(err), err)
		return id, entity.Analysis{}, false
	}
	return id, analysis, true
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	if _, analysis, ok := s.loadAnalysis(w, r); ok {
		writeJSON(w, http.StatusOK, analysis)
	}
}

func (s *Server) exportAnalysis(w http.ResponseWriter, r *http.Request) {
	id, analysis, ok := s.loadAnalysis(w, r)
	if !ok {
		return
	}
	data, err := s.deps.Export.AnalysisXLSX(analysis)
	if err != nil {
		err = fmt.Errorf("%w: export %s: %v", common.ErrInternal, id, err)
		s.writeError(w, r, common.HTTPStatus(err), err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".xlsx"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("http.export.write_failed", "invoice_id", id, "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	level := s.logger.Warn
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		level = s.logger.Error
	}
	level("http.request.failed", "path", r.URL.Path, "status", status, "error", err,
		"request_id", common.RequestIDFromContext(r.Context()))

	// 500s never leak the cause to the client
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = common.ErrInternal.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

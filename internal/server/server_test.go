package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/scope3-tracker/internal/chat"
	"github.com/joseph-ayodele/scope3-tracker/internal/common"
	"github.com/joseph-ayodele/scope3-tracker/internal/entity"
	"github.com/joseph-ayodele/scope3-tracker/internal/export"
	"github.com/joseph-ayodele/scope3-tracker/internal/llm"
	"github.com/joseph-ayodele/scope3-tracker/internal/metrics"
	"github.com/joseph-ayodele/scope3-tracker/internal/repository"
)

const (
	testInvoiceID    = "INV-6f1c2a9e-3b7d-4c52-9a61-0d2f8e4b7c13"
	unknownInvoiceID = "INV-00000000-0000-4000-8000-000000000000"
)

type stubAnalyzer struct {
	store    *repository.MemoryStore
	gotName  string
	gotBytes int
	err      error
}

func (a *stubAnalyzer) AnalyzeBytes(ctx context.Context, data []byte, filename string) (entity.Analysis, error) {
	a.gotName, a.gotBytes = filename, len(data)
	if a.err != nil {
		return entity.Analysis{}, a.err
	}
	supplier, category := "Acme Steel", "steel"
	analysis := entity.Analysis{
		InvoiceID: testInvoiceID,
		Summary:   entity.Summary{TotalEmissionsKg: 200, Currency: entity.CurrencyUSD, TotalSpend: 500},
		BySupplier: []entity.SupplierAggregate{
			{Supplier: supplier, EmissionsKg: 200, Spend: 500, Score: 0, Comments: "High impact supplier"},
		},
		ByCategory: []entity.CategoryAggregate{{Category: category, EmissionsKg: 200}},
		Hotspots:   entity.Hotspots{TopSupplier: &supplier, TopCategory: &category},
		Items: []entity.LineItem{{Supplier: supplier, Description: "steel coil 100 kg", QtyKg: entity.Float(100),
			AmountUSD: entity.Float(500), Category: category, EmissionsKg: entity.Float(200)}},
		Recommendation: "Focus decarbonization efforts on Acme Steel to reduce Scope 3 emissions.",
		CreatedAt:      time.Now().UTC(),
	}
	return analysis, a.store.Save(ctx, analysis.InvoiceID, analysis)
}

type stubCompleter struct {
	reply string
	err   error
}

func (c stubCompleter) Complete(context.Context, llm.CompletionRequest) (string, error) {
	return c.reply, c.err
}

type fixture struct {
	srv      *httptest.Server
	store    *repository.MemoryStore
	analyzer *stubAnalyzer
}

func newFixture(t *testing.T, completer llm.Completer) *fixture {
	t.Helper()
	store := repository.NewMemoryStore(0, nil)
	analyzer := &stubAnalyzer{store: store}
	m := metrics.New(false)
	s := New(Deps{
		Analyzer: analyzer,
		Store:    store,
		Chat:     chat.NewService(store, completer, nil),
		Export:   export.NewService(nil),
		Metrics:  m.Handler(),
	}, nil)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: store, analyzer: analyzer}
}

func upload(t *testing.T, url, field, filename, body string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(url+"/analyze_invoice", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func postChat(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestAnalyzeInvoice(t *testing.T) {
	f := newFixture(t, nil)
	resp := upload(t, f.srv.URL, "file", "invoice.txt", "Supplier: Acme Steel\nsteel coil 100 kg $500")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		InvoiceID string          `json:"invoice_id"`
		Analysis  entity.Analysis `json:"analysis"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, testInvoiceID, body.InvoiceID)
	assert.Equal(t, body.InvoiceID, body.Analysis.InvoiceID)
	assert.Equal(t, 200.0, body.Analysis.Summary.TotalEmissionsKg)
	assert.Equal(t, "invoice.txt", f.analyzer.gotName)
	assert.Positive(t, f.analyzer.gotBytes)
}

func TestAnalyzeInvoice_MissingFile(t *testing.T) {
	f := newFixture(t, nil)

	resp := upload(t, f.srv.URL, "attachment", "invoice.txt", "x")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	plain, err := http.Post(f.srv.URL+"/analyze_invoice", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	defer plain.Body.Close()
	assert.Equal(t, http.StatusBadRequest, plain.StatusCode)
}

func TestAnalyzeInvoice_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t, nil)
	f.analyzer.err = common.NewAppError("DB_ERROR", "save", common.ErrDatabase)

	resp := upload(t, f.srv.URL, "file", "invoice.txt", "x")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, common.ErrInternal.Error(), body["error"])
	assert.NotContains(t, body["error"], "DB_ERROR")
}

func TestChat(t *testing.T) {
	f := newFixture(t, stubCompleter{reply: "Acme Steel is your largest hotspot."})
	upload(t, f.srv.URL, "file", "invoice.txt", "x").Body.Close()

	resp, body := postChat(t, f.srv.URL, `{"invoice_id":"`+testInvoiceID+`","message":"Where should I focus?"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Acme Steel is your largest hotspot.", body["reply"])
}

func TestChat_Errors(t *testing.T) {
	f := newFixture(t, stubCompleter{err: &llm.ServiceError{Op: "gemini.complete", Err: errors.New("missing GEMINI_API_KEY")}})
	upload(t, f.srv.URL, "file", "invoice.txt", "x").Body.Close()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"missing invoice id", `{"message":"hi"}`, http.StatusBadRequest},
		{"blank message", `{"invoice_id":"`+testInvoiceID+`","message":"   "}`, http.StatusBadRequest},
		{"unknown invoice", `{"invoice_id":"INV-missing","message":"hi"}`, http.StatusNotFound},
		{"service unavailable", `{"invoice_id":"`+testInvoiceID+`","message":"hi"}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postChat(t, f.srv.URL, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetAnalysisAndExport(t *testing.T) {
	f := newFixture(t, nil)
	upload(t, f.srv.URL, "file", "invoice.txt", "x").Body.Close()

	resp, err := http.Get(f.srv.URL + "/analyses/" + testInvoiceID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var a entity.Analysis
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&a))
	assert.Equal(t, testInvoiceID, a.InvoiceID)

	x, err := http.Get(f.srv.URL + "/analyses/" + testInvoiceID + "/export.xlsx")
	require.NoError(t, err)
	defer x.Body.Close()
	require.Equal(t, http.StatusOK, x.StatusCode)
	assert.Equal(t, xlsxContentType, x.Header.Get("Content-Type"))
	assert.Contains(t, x.Header.Get("Content-Disposition"), testInvoiceID+".xlsx")
	data, err := io.ReadAll(x.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")), "xlsx is a zip container")

	missing, err := http.Get(f.srv.URL + "/analyses/" + unknownInvoiceID + "/export.xlsx")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	malformed, err := http.Get(f.srv.URL + "/analyses/not-an-id")
	require.NoError(t, err)
	defer malformed.Body.Close()
	assert.Equal(t, http.StatusBadRequest, malformed.StatusCode)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, nil)

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "content-type", resp.Header.Get("Access-Control-Allow-Headers"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

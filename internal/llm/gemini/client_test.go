package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/scope3-tracker/internal/llm"
)

func newTestClient(srvURL string) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: srvURL, Model: "gemini-test", Timeout: 2 * time.Second}, nil)
}

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "extract this", req.Contents[0].Parts[0].Text)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  {\"items\":[]}  "}]}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Complete(context.Background(), llm.CompletionRequest{Prompt: "extract this", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, out)
}

func TestComplete_PlainModeOmitsMimeType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		cfg, ok := raw["generationConfig"].(map[string]any)
		require.True(t, ok)
		_, has := cfg["responseMimeType"]
		assert.False(t, has)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Complete(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestComplete_EndpointOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/custom", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", Endpoint: srv.URL + "/custom"}, nil)
	out, err := c.Complete(context.Background(), llm.CompletionRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestComplete_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		errSubstr string
	}{
		{"api error detail", http.StatusForbidden, `{"error":{"message":"API key not valid"}}`, "API key not valid"},
		{"non-json body", http.StatusOK, `<html>oops</html>`, "decode gemini response"},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, "no candidates"},
		{"empty text", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`, "empty response"},
		{"no parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`, "empty response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Complete(context.Background(), llm.CompletionRequest{Prompt: "p"})
			require.Error(t, err)
			assert.True(t, llm.IsServiceError(err))
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestComplete_MissingKeyMakesNoCall(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}, nil).Complete(context.Background(), llm.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, llm.IsServiceError(err))
	assert.False(t, called)
}

func TestComplete_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := c.Complete(context.Background(), llm.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, llm.IsServiceError(err))
}

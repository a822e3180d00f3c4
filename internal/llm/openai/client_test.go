package openai

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

func TestComplete_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"items\":[]}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "gpt-test", Timeout: time.Second}, nil)
	out, err := c.Complete(context.Background(), llm.CompletionRequest{Prompt: "p", JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, out)
}

func TestComplete_ErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "bad", BaseURL: srv.URL}, nil)
	_, err := c.Complete(context.Background(), llm.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, llm.IsServiceError(err))
	assert.Contains(t, err.Error(), "Incorrect API key provided")
	assert.Contains(t, err.Error(), "status 401")
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).Complete(context.Background(), llm.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestComplete_MissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient(Config{}, nil).Complete(context.Background(), llm.CompletionRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, llm.IsServiceError(err))
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSON_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Custom"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hi", body["prompt"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	raw, status, err := SendJSON(context.Background(), srv.Client(), srv.URL, "", map[string]string{"prompt": "hi"},
		map[string]string{"X-Custom": "yes"}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestSendJSON_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	raw, status, err := SendJSON(context.Background(), nil, srv.URL, "", map[string]any{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, string(raw), "slow down")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.Status)
}

func TestSendJSON_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, status, err := SendJSON(context.Background(), nil, url, "", map[string]any{}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, 0, status)
}

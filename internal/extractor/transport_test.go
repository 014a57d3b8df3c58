package extractor_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimintake/internal/extractor"
)

func TestPostJSON_SendsHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "k-1", r.Header.Get("X-Api-Key"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "m", body["model"])
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	reply, err := extractor.PostJSON(context.Background(), server.Client(), "claude", server.URL,
		http.Header{"x-api-key": {"k-1"}}, map[string]string{"model": "m"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(reply))
}

func TestPostJSON_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := extractor.PostJSON(context.Background(), server.Client(), "gemini", server.URL, nil, struct{}{})

	var rlErr *extractor.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "gemini", rlErr.Provider)
	assert.Equal(t, 7*time.Second, rlErr.RetryAfter)
}

func TestPostJSON_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	_, err := extractor.PostJSON(context.Background(), server.Client(), "openai", server.URL, nil, struct{}{})

	require.Error(t, err)
	var rlErr *extractor.RateLimitError
	assert.False(t, errors.As(err, &rlErr))
	assert.Contains(t, err.Error(), "openai API error (status 502): upstream down")
}

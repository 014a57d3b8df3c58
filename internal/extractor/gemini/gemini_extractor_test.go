package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimintake/internal/config"
	"claimintake/internal/domain"
	"claimintake/internal/extractor"
	"claimintake/internal/extractor/gemini"
	"claimintake/internal/port"
)

func newTestExtractor(serverURL string) *gemini.Extractor {
	return gemini.NewExtractorWithEndpoint(&config.ProviderConfig{
		Provider: "gemini",
		APIKey:   "g-key",
	}, serverURL)
}

func geminiBody(text, finish string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"candidates": []map[string]interface{}{
			{
				"content":      map[string]interface{}{"parts": []map[string]interface{}{{"text": text}}},
				"finishReason": finish,
			},
		},
	})
	return string(b)
}

func TestGeminiExtractor_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		parts := reqBody["contents"].([]interface{})[0].(map[string]interface{})["parts"].([]interface{})
		inline := parts[0].(map[string]interface{})["inline_data"].(map[string]interface{})
		assert.Equal(t, "application/pdf", inline["mime_type"])
		genCfg := reqBody["generationConfig"].(map[string]interface{})
		assert.Equal(t, "application/json", genCfg["responseMimeType"])

		_, _ = w.Write([]byte(geminiBody(`{"data":{"admission_date":"01/02/2024","discharge_date":"03/02/2024"},"confidence_scores":{"admission_date":0.8}}`, "STOP")))
	}))
	defer server.Close()

	result, err := newTestExtractor(server.URL).Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF"),
		ContentType: "application/pdf",
	})

	require.NoError(t, err)
	assert.Equal(t, "01/02/2024", result.Fields.AdmissionDate)
	assert.Equal(t, "03/02/2024", result.Fields.DischargeDate)
	assert.Equal(t, "gemini-2.0-flash", result.ModelUsed)
}

func TestGeminiExtractor_UnsupportedContentType(t *testing.T) {
	_, err := newTestExtractor("http://unused").Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("x"),
		ContentType: "image/tiff",
	})

	var ef *domain.ExtractionFailure
	require.True(t, errors.As(err, &ef))
	assert.Equal(t, domain.ReasonUnsupportedFormat, ef.Reason)
}

func TestGeminiExtractor_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestExtractor(server.URL).Extract(context.Background(), port.ExtractInput{
		FileBytes:   []byte("%PDF"),
		ContentType: "application/pdf",
	})

	var rlErr *extractor.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, "gemini", rlErr.Provider)
}

func TestGeminiExtractor_ResponseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no candidates", `{"candidates":[]}`, "no candidates"},
		{"no parts", `{"candidates":[{"content":{"parts":[]}}]}`, "no parts"},
		{"truncated", geminiBody(`{"data":`, "MAX_TOKENS"), "MAX_TOKENS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestExtractor(server.URL).Extract(context.Background(), port.ExtractInput{
				FileBytes:   []byte("%PDF"),
				ContentType: "application/pdf",
			})

			assert.ErrorContains(t, err, tt.want)
		})
	}
}

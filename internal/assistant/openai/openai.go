// Package openai is an assistant chat model on the OpenAI or Azure OpenAI
// Chat Completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"claimintake/internal/config"
	"claimintake/internal/extractor"
)

const apiURL = "https://api.openai.com/v1/chat/completions"

// Completer implements assistant.Completer. When an API version is configured
// the endpoint is treated as an Azure OpenAI resource and the model as the
// deployment name.
type Completer struct {
	apiKey      string
	model       string
	url         string
	azure       bool
	temperature float64
	client      *http.Client
}

// NewCompleter creates a chat completions client from the assistant config.
func NewCompleter(cfg *config.AssistantConfig) (*Completer, error) {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	c := &Completer{
		apiKey:      cfg.APIKey,
		model:       model,
		url:         apiURL,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}
	switch {
	case cfg.APIVersion != "":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("azure openai requires an endpoint")
		}
		c.azure = true
		c.url = fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			strings.TrimRight(cfg.Endpoint, "/"), model, cfg.APIVersion)
	case cfg.Endpoint != "":
		c.url = cfg.Endpoint
	}
	return c, nil
}

func (c *Completer) Model() string { return c.model }

func (c *Completer) Complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"messages": []map[string]interface{}{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"temperature":     c.temperature,
		"response_format": map[string]interface{}{"type": "json_object"},
	}
	if !c.azure {
		reqBody["model"] = c.model
	}

	header := http.Header{"Authorization": {"Bearer " + c.apiKey}}
	if c.azure {
		header = http.Header{"api-key": {c.apiKey}}
	}
	respBody, err := extractor.PostJSON(ctx, c.client, "openai", c.url, header, reqBody)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response from API: no choices")
	}
	if parsed.Choices[0].FinishReason == "length" {
		return "", fmt.Errorf("output truncated (finish_reason: length)")
	}
	return parsed.Choices[0].Message.Content, nil
}

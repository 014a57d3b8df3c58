// Package claude is an assistant chat model on the Anthropic Messages API.
package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"claimintake/internal/config"
	"claimintake/internal/extractor"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
)

// Completer implements assistant.Completer.
type Completer struct {
	apiKey      string
	model       string
	endpoint    string
	temperature float64
	client      *http.Client
}

// NewCompleter creates a Messages API client from the assistant config.
func NewCompleter(cfg *config.AssistantConfig) *Completer {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Completer{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    endpoint,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *Completer) Model() string { return c.model }

func (c *Completer) Complete(ctx context.Context, system, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":       c.model,
		"max_tokens":  4096,
		"system":      system,
		"temperature": c.temperature,
		"messages": []map[string]interface{}{
			{"role": "user", "content": prompt},
		},
	}

	respBody, err := extractor.PostJSON(ctx, c.client, "claude", c.endpoint,
		http.Header{"x-api-key": {c.apiKey}, "anthropic-version": {apiVersion}}, reqBody)
	if err != nil {
		return "", err
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("empty response from API")
	}
	if parsed.StopReason == "max_tokens" {
		return "", fmt.Errorf("output truncated (stop_reason: max_tokens)")
	}
	return parsed.Content[0].Text, nil
}

// Package gigachat is an assistant chat model on GigaChat.
package gigachat

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"

	"claimintake/internal/config"
)

const defaultModel = "GigaChat"

// generator produces a reply from a system instruction and a prompt.
type generator interface {
	complete(ctx context.Context, system, prompt string) (string, error)
}

// Completer implements assistant.Completer.
type Completer struct {
	client *gigago.Client
	gen    generator
	model  string
}

// NewCompleter authenticates against GigaChat and prepares a model.
func NewCompleter(ctx context.Context, cfg *config.AssistantConfig, logger *zap.Logger) (*Completer, error) {
	opts := []gigago.Option{}
	if cfg.Scope != "" {
		opts = append(opts, gigago.WithCustomScope(cfg.Scope))
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("gigachat: TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating GigaChat client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = defaultModel
	}
	model := client.GenerativeModel(name)
	model.Temperature = 0.2

	return &Completer{
		client: client,
		gen:    &gigaModel{model: model},
		model:  name,
	}, nil
}

func (c *Completer) Model() string { return c.model }

func (c *Completer) Complete(ctx context.Context, system, prompt string) (string, error) {
	return c.gen.complete(ctx, system, prompt)
}

// Close releases the GigaChat client.
func (c *Completer) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}

// gigaModel serialises calls because the system instruction lives on the
// shared model.
type gigaModel struct {
	mu    sync.Mutex
	model *gigago.GenerativeModel
}

func (g *gigaModel) complete(ctx context.Context, system, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.model.SystemInstruction = system
	messages := []gigago.Message{
		{Role: gigago.RoleUser, Content: prompt},
	}

	resp, err := g.model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("gigachat generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from GigaChat")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

package assistant

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"claimintake/internal/config"
	"claimintake/internal/port"
)

// CompleterFactory creates a Completer from the assistant config.
type CompleterFactory func(cfg *config.AssistantConfig, logger *zap.Logger) (Completer, error)

var providers = map[string]CompleterFactory{}

// RegisterProvider registers a chat model provider by name.
func RegisterProvider(name string, factory CompleterFactory) {
	providers[name] = factory
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the configured assistant. "heuristic" (or no provider) needs no
// registration.
func New(cfg *config.AssistantConfig, logger *zap.Logger) (port.ClaimAssistant, error) {
	if cfg.Provider == "" || cfg.Provider == "heuristic" {
		return NewHeuristic(), nil
	}
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown assistant provider: %s", cfg.Provider)
	}
	c, err := factory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("assistant provider %s: %w", cfg.Provider, err)
	}
	return NewLLMAssistant(c, logger), nil
}

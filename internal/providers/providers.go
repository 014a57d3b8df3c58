// Package providers registers the concrete extraction and assistant providers
// with their factories. Binaries call Register once before building either.
package providers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"claimintake/internal/assistant"
	claudeassistant "claimintake/internal/assistant/claude"
	"claimintake/internal/assistant/gigachat"
	openaiassistant "claimintake/internal/assistant/openai"
	"claimintake/internal/config"
	"claimintake/internal/extractor"
	"claimintake/internal/extractor/azurecu"
	claudeextractor "claimintake/internal/extractor/claude"
	"claimintake/internal/extractor/gemini"
	openaiextractor "claimintake/internal/extractor/openai"
	"claimintake/internal/port"
)

// gigachatAuthTimeout bounds the token exchange done when the client is built.
const gigachatAuthTimeout = 30 * time.Second

var once sync.Once

// Register adds every built-in provider. It is safe to call more than once.
func Register() {
	once.Do(func() {
		extractor.RegisterProvider("azurecu", func(cfg *config.ProviderConfig) (port.DocumentExtractor, error) {
			e, err := azurecu.NewExtractor(cfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		})
		extractor.RegisterProvider("claude", func(cfg *config.ProviderConfig) (port.DocumentExtractor, error) {
			return claudeextractor.NewExtractor(cfg), nil
		})
		extractor.RegisterProvider("openai", func(cfg *config.ProviderConfig) (port.DocumentExtractor, error) {
			return openaiextractor.NewExtractor(cfg), nil
		})
		extractor.RegisterProvider("gemini", func(cfg *config.ProviderConfig) (port.DocumentExtractor, error) {
			return gemini.NewExtractor(cfg), nil
		})

		assistant.RegisterProvider("openai", func(cfg *config.AssistantConfig, _ *zap.Logger) (assistant.Completer, error) {
			c, err := openaiassistant.NewCompleter(cfg)
			if err != nil {
				return nil, err
			}
			return c, nil
		})
		assistant.RegisterProvider("claude", func(cfg *config.AssistantConfig, _ *zap.Logger) (assistant.Completer, error) {
			return claudeassistant.NewCompleter(cfg), nil
		})
		assistant.RegisterProvider("gigachat", func(cfg *config.AssistantConfig, logger *zap.Logger) (assistant.Completer, error) {
			ctx, cancel := context.WithTimeout(context.Background(), gigachatAuthTimeout)
			defer cancel()
			c, err := gigachat.NewCompleter(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			return c, nil
		})
	})
}

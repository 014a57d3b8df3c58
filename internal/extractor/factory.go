package extractor

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"claimintake/internal/config"
	"claimintake/internal/port"
)

// ProviderFactory is a function that creates a DocumentExtractor from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.DocumentExtractor, error)

// registry of provider factories, populated explicitly via RegisterProvider at start-up.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
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

// NewProvider creates a DocumentExtractor from a provider config using the registered factory.
func NewProvider(cfg *config.ProviderConfig) (port.DocumentExtractor, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown extraction provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// Build assembles the provider chain for the configured mode.
func Build(cfg *config.ExtractionConfig, logger *zap.Logger) (port.DocumentExtractor, error) {
	primary, err := NewProvider(cfg.PrimaryConfig())
	if err != nil {
		return nil, fmt.Errorf("primary: %w", err)
	}

	switch cfg.Mode {
	case "dual":
		sc := cfg.SecondaryConfig()
		if sc == nil {
			return nil, fmt.Errorf("dual mode requires a secondary provider")
		}
		secondary, err := NewProvider(sc)
		if err != nil {
			return nil, fmt.Errorf("secondary: %w", err)
		}
		return NewMergeExtractor(primary, secondary, logger), nil

	case "fallback":
		chain := []port.DocumentExtractor{primary}
		names := []string{cfg.Primary.Provider}
		for _, pc := range []*config.ProviderConfig{cfg.SecondaryConfig(), cfg.TertiaryConfig()} {
			if pc == nil {
				continue
			}
			p, err := NewProvider(pc)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", pc.Provider, err)
			}
			chain = append(chain, p)
			names = append(names, pc.Provider)
		}
		if len(chain) == 1 {
			return primary, nil
		}
		return NewFallbackExtractor(chain, names, logger), nil
	}

	return primary, nil
}

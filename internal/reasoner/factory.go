package reasoner

import (
	"fmt"

	"claimflow/internal/config"
	"claimflow/internal/port"
)

// ProviderFactory is a function that creates a Reasoner from a provider config.
type ProviderFactory func(cfg *config.ReasonerProviderConfig) (port.Reasoner, error)

// registry of reasoning provider factories, populated by init() in each
// provider package or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a reasoning provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewReasoner creates a Reasoner from a provider config using the registered factory.
func NewReasoner(cfg *config.ReasonerProviderConfig) (port.Reasoner, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown reasoning provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

package adapters

import (
	"fmt"
	"net/http"

	"llmrelay/internal/engine/completions"
	"llmrelay/internal/pkg/errors"
	"llmrelay/internal/platform/config"
)

// Dispatcher maps provider ids to adapter instances. Providers without a
// configured upstream credential fall back to the deterministic mock.
type Dispatcher struct {
	adapters map[string]completions.Adapter
}

func NewDispatcher(cfg config.ProvidersConfig) *Dispatcher {
	d := &Dispatcher{adapters: make(map[string]completions.Adapter)}

	mock := NewMockAdapter()
	for _, provider := range completions.SupportedProviders {
		d.adapters[provider] = mock
	}

	if cfg.OpenAIAPIKey != "" {
		d.adapters["openai"] = NewOpenAIAdapter(cfg.OpenAIAPIKey)
	}

	return d
}

// Register swaps the adapter for a provider. Used for tests and for wiring
// future Anthropic/Google implementations.
func (d *Dispatcher) Register(provider string, adapter completions.Adapter) {
	d.adapters[provider] = adapter
}

// AdapterFor resolves an adapter or fails with 400 for providers outside
// the supported set. Unreachable in practice given a well-formed registry.
func (d *Dispatcher) AdapterFor(provider string) (completions.Adapter, error) {
	adapter, ok := d.adapters[provider]
	if !ok {
		return nil, errors.New(http.StatusBadRequest, fmt.Sprintf("Unsupported provider: %s", provider))
	}
	return adapter, nil
}

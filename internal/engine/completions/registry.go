package completions

import (
	"fmt"
	"net/http"

	"llmrelay/internal/pkg/errors"
)

// Feature names a model capability flag.
type Feature string

const (
	FeatureStreaming Feature = "streaming"
	FeatureVision    Feature = "vision"
	FeatureFunctions Feature = "functions"
)

// SupportedProviders is the fixed set of upstream providers.
var SupportedProviders = []string{"anthropic", "google", "openai"}

// ModelConfig describes one supported model. Pricing is USD per 1K tokens.
type ModelConfig struct {
	ID                string  `json:"id"`
	Label             string  `json:"label"`
	Provider          string  `json:"provider"`
	ContextWindow     int     `json:"context_window"`
	MaxTokens         int     `json:"max_tokens"`
	SupportsStreaming bool    `json:"supports_streaming"`
	SupportsVision    bool    `json:"supports_vision"`
	SupportsFunctions bool    `json:"supports_functions"`
	PricingInput      float64 `json:"pricing_input"`
	PricingOutput     float64 `json:"pricing_output"`
	Deprecated        bool    `json:"deprecated,omitempty"`
}

// Registry is the immutable catalog of supported models. It is built once
// at startup and injected; there is no runtime mutation path.
type Registry struct {
	models map[string]ModelConfig
	ids    []string
}

func NewRegistry(models ...ModelConfig) Registry {
	r := Registry{models: make(map[string]ModelConfig, len(models))}
	for _, m := range models {
		if _, dup := r.models[m.ID]; dup {
			continue
		}
		r.models[m.ID] = m
		r.ids = append(r.ids, m.ID)
	}
	return r
}

// ModelIDs returns the supported ids in registration order.
func (r Registry) ModelIDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// ValidateAndGetModel resolves a model id or fails with 400.
func (r Registry) ValidateAndGetModel(modelID string) (ModelConfig, error) {
	cfg, ok := r.models[modelID]
	if !ok {
		return ModelConfig{}, errors.New(http.StatusBadRequest, fmt.Sprintf("Invalid model: %s", modelID))
	}
	return cfg, nil
}

// EnsureFeature fails with 400 when the model lacks the capability.
func (r Registry) EnsureFeature(modelID string, feature Feature) error {
	cfg, err := r.ValidateAndGetModel(modelID)
	if err != nil {
		return err
	}

	var ok bool
	switch feature {
	case FeatureStreaming:
		ok = cfg.SupportsStreaming
	case FeatureVision:
		ok = cfg.SupportsVision
	case FeatureFunctions:
		ok = cfg.SupportsFunctions
	}
	if !ok {
		return errors.New(http.StatusBadRequest, fmt.Sprintf("Model %q does not support %s", modelID, feature))
	}
	return nil
}

// MaxTokens returns the per-model output ceiling after validation.
func (r Registry) MaxTokens(modelID string) (int, error) {
	cfg, err := r.ValidateAndGetModel(modelID)
	if err != nil {
		return 0, err
	}
	return cfg.MaxTokens, nil
}

// DefaultRegistry returns the production model catalog.
func DefaultRegistry() Registry {
	return NewRegistry(
		ModelConfig{
			ID: "gpt-4o", Label: "GPT-4o", Provider: "openai",
			ContextWindow: 128000, MaxTokens: 4096,
			SupportsStreaming: true, SupportsVision: true, SupportsFunctions: true,
			PricingInput: 5.0, PricingOutput: 15.0,
		},
		ModelConfig{
			ID: "gpt-4o-mini", Label: "GPT-4o Mini", Provider: "openai",
			ContextWindow: 128000, MaxTokens: 16384,
			SupportsStreaming: true, SupportsVision: true, SupportsFunctions: true,
			PricingInput: 0.15, PricingOutput: 0.6,
		},
		ModelConfig{
			ID: "gpt-4-turbo", Label: "GPT-4 Turbo", Provider: "openai",
			ContextWindow: 128000, MaxTokens: 4096,
			SupportsStreaming: true, SupportsVision: true, SupportsFunctions: true,
			PricingInput: 10.0, PricingOutput: 30.0,
		},
		ModelConfig{
			ID: "gpt-4", Label: "GPT-4", Provider: "openai",
			ContextWindow: 8192, MaxTokens: 4096,
			SupportsStreaming: true, SupportsFunctions: true,
			PricingInput: 30.0, PricingOutput: 60.0,
			Deprecated: true,
		},
		ModelConfig{
			ID: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo", Provider: "openai",
			ContextWindow: 16385, MaxTokens: 4096,
			SupportsStreaming: true, SupportsFunctions: true,
			PricingInput: 0.5, PricingOutput: 1.5,
		},
		ModelConfig{
			ID: "claude-3-5-sonnet-20241022", Label: "Claude 3.5 Sonnet", Provider: "anthropic",
			ContextWindow: 200000, MaxTokens: 8192,
			SupportsStreaming: true, SupportsVision: true,
			PricingInput: 3.0, PricingOutput: 15.0,
		},
		ModelConfig{
			ID: "claude-3-haiku-20240307", Label: "Claude 3 Haiku", Provider: "anthropic",
			ContextWindow: 200000, MaxTokens: 4096,
			SupportsStreaming: true, SupportsVision: true,
			PricingInput: 0.25, PricingOutput: 1.25,
		},
		ModelConfig{
			ID: "gemini-1.5-pro", Label: "Gemini 1.5 Pro", Provider: "google",
			ContextWindow: 2000000, MaxTokens: 8192,
			SupportsStreaming: true, SupportsVision: true, SupportsFunctions: true,
			PricingInput: 3.5, PricingOutput: 10.5,
		},
		ModelConfig{
			ID: "gemini-1.5-flash", Label: "Gemini 1.5 Flash", Provider: "google",
			ContextWindow: 1000000, MaxTokens: 8192,
			SupportsStreaming: true, SupportsVision: true, SupportsFunctions: true,
			PricingInput: 0.075, PricingOutput: 0.3,
		},
		ModelConfig{
			ID: "gemini-pro", Label: "Gemini Pro", Provider: "google",
			ContextWindow: 32768, MaxTokens: 8192,
			SupportsStreaming: true, SupportsFunctions: true,
			PricingInput: 0.5, PricingOutput: 1.5,
			Deprecated: true,
		},
	)
}

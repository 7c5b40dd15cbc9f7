package adapters

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"llmrelay/internal/engine/completions"
	"llmrelay/internal/pkg/errors"
	"llmrelay/internal/platform/config"
)

func TestDispatcher_MockFallback(t *testing.T) {
	d := NewDispatcher(config.ProvidersConfig{})

	for _, provider := range completions.SupportedProviders {
		adapter, err := d.AdapterFor(provider)
		if err != nil {
			t.Fatalf("Unexpected error for %s: %v", provider, err)
		}
		if _, ok := adapter.(*MockAdapter); !ok {
			t.Errorf("Expected mock adapter for unconfigured provider %s, got %T", provider, adapter)
		}
	}
}

func TestDispatcher_OpenAIConfigured(t *testing.T) {
	d := NewDispatcher(config.ProvidersConfig{OpenAIAPIKey: "sk-test"})

	adapter, err := d.AdapterFor("openai")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := adapter.(*OpenAIAdapter); !ok {
		t.Errorf("Expected OpenAI adapter, got %T", adapter)
	}

	// The other providers still fall back to the mock.
	adapter, _ = d.AdapterFor("anthropic")
	if _, ok := adapter.(*MockAdapter); !ok {
		t.Errorf("Expected mock adapter for anthropic, got %T", adapter)
	}
}

func TestDispatcher_UnknownProvider(t *testing.T) {
	d := NewDispatcher(config.ProvidersConfig{})

	_, err := d.AdapterFor("cohere")
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	svcErr, ok := err.(*errors.ServiceError)
	if !ok {
		t.Fatalf("Expected ServiceError, got %T", err)
	}
	if svcErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", svcErr.Status)
	}
}

func TestDispatcher_Register(t *testing.T) {
	d := NewDispatcher(config.ProvidersConfig{})
	custom := NewMockAdapter()
	d.Register("openai", custom)

	adapter, err := d.AdapterFor("openai")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if adapter != completions.Adapter(custom) {
		t.Error("Expected registered adapter to be returned")
	}
}

func TestMockAdapter_Complete(t *testing.T) {
	adapter := NewMockAdapter()
	req := &completions.Request{
		Model: "gpt-4o-mini",
		Messages: []completions.Message{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: "Hello"},
		},
	}

	payload, err := adapter.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(payload.Choices) != 1 {
		t.Fatalf("Expected one choice, got %d", len(payload.Choices))
	}
	choice := payload.Choices[0]
	if choice.Message.Role != "assistant" {
		t.Errorf("Expected assistant role, got %s", choice.Message.Role)
	}
	if !strings.Contains(choice.Message.Content, "gpt-4o-mini") {
		t.Errorf("Expected model id in mock content, got %q", choice.Message.Content)
	}
	if choice.FinishReason != "stop" {
		t.Errorf("Expected finish_reason stop, got %s", choice.FinishReason)
	}
	if payload.Usage.PromptTokens <= 0 || payload.Usage.CompletionTokens <= 0 {
		t.Errorf("Expected positive token counts, got %+v", payload.Usage)
	}
	if payload.Usage.TotalTokens != payload.Usage.PromptTokens+payload.Usage.CompletionTokens {
		t.Errorf("Usage does not sum: %+v", payload.Usage)
	}
}

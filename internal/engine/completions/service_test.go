package completions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"llmrelay/internal/pkg/errors"
)

type stubAdapter struct {
	payload *Payload
	err     error
	calls   int
}

func (a *stubAdapter) Complete(ctx context.Context, req *Request) (*Payload, error) {
	a.calls++
	if a.err != nil {
		return nil, a.err
	}
	return a.payload, nil
}

type stubResolver struct {
	adapters map[string]Adapter
}

func (r *stubResolver) AdapterFor(provider string) (Adapter, error) {
	a, ok := r.adapters[provider]
	if !ok {
		return nil, errors.New(http.StatusBadRequest, fmt.Sprintf("Unsupported provider: %s", provider))
	}
	return a, nil
}

func setupService(adapter Adapter) *Service {
	resolver := &stubResolver{adapters: map[string]Adapter{
		"openai": adapter, "anthropic": adapter, "google": adapter,
	}}
	return NewService(DefaultRegistry(), resolver)
}

func okAdapter() *stubAdapter {
	return &stubAdapter{payload: &Payload{
		Choices: []Choice{{Index: 0, Message: Message{Role: "assistant", Content: "Hi there"}, FinishReason: "stop"}},
		Usage:   Usage{PromptTokens: 3, CompletionTokens: 2, TotalTokens: 5},
	}}
}

func TestService_Process(t *testing.T) {
	adapter := okAdapter()
	svc := setupService(adapter)

	req := &Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "Hello"}},
	}
	result, err := svc.Process(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(result.ID, "chatcmpl-") {
		t.Errorf("Expected chatcmpl- id prefix, got %s", result.ID)
	}
	if result.Object != "chat.completion" {
		t.Errorf("Expected object chat.completion, got %s", result.Object)
	}
	if result.Model != "gpt-4o-mini" {
		t.Errorf("Expected model echoed back, got %s", result.Model)
	}
	if result.Created == 0 {
		t.Error("Expected created timestamp to be set")
	}
	if len(result.Choices) != 1 || result.Choices[0].Message.Content != "Hi there" {
		t.Errorf("Unexpected choices: %+v", result.Choices)
	}
	if result.Usage.TotalTokens != 5 {
		t.Errorf("Unexpected usage: %+v", result.Usage)
	}
	if adapter.calls != 1 {
		t.Errorf("Expected one adapter call, got %d", adapter.calls)
	}

	second, err := svc.Process(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if second.ID == result.ID {
		t.Error("Expected distinct response ids across requests")
	}
}

func TestService_Process_UnknownModel(t *testing.T) {
	adapter := okAdapter()
	svc := setupService(adapter)

	req := &Request{Model: "gpt-99", Messages: []Message{{Role: "user", Content: "hi"}}}
	_, err := svc.Process(context.Background(), "user-1", req)
	assertBadRequest(t, err)
	if !strings.Contains(err.Error(), "Invalid model: gpt-99") {
		t.Errorf("Expected invalid model message, got %q", err.Error())
	}
	if adapter.calls != 0 {
		t.Error("Adapter must not be called for an unknown model")
	}
}

func TestService_Process_StreamingRejected(t *testing.T) {
	adapter := okAdapter()
	svc := setupService(adapter)

	req := &Request{
		Model:    "gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "hi"}},
		Stream:   true,
	}
	_, err := svc.Process(context.Background(), "user-1", req)
	assertBadRequest(t, err)
	if !strings.Contains(err.Error(), "Streaming is not supported") {
		t.Errorf("Unexpected message: %q", err.Error())
	}
	if adapter.calls != 0 {
		t.Error("Adapter must not be called for a streaming request")
	}
}

func TestService_Process_MaxTokensCeiling(t *testing.T) {
	adapter := okAdapter()
	svc := setupService(adapter)

	over := 5000 // gpt-4o caps at 4096
	req := &Request{
		Model:     "gpt-4o",
		Messages:  []Message{{Role: "user", Content: "hi"}},
		MaxTokens: &over,
	}
	_, err := svc.Process(context.Background(), "user-1", req)
	assertBadRequest(t, err)
	if !strings.Contains(err.Error(), "5000") || !strings.Contains(err.Error(), "4096") {
		t.Errorf("Expected message to cite requested and maximum values, got %q", err.Error())
	}

	within := 100
	req.MaxTokens = &within
	if _, err := svc.Process(context.Background(), "user-1", req); err != nil {
		t.Errorf("Expected max_tokens within limit to pass: %v", err)
	}
}

func TestService_Process_AdapterFailure(t *testing.T) {
	adapter := &stubAdapter{err: fmt.Errorf("upstream timeout")}
	svc := setupService(adapter)

	req := &Request{Model: "gpt-4o-mini", Messages: []Message{{Role: "user", Content: "hi"}}}
	_, err := svc.Process(context.Background(), "user-1", req)
	if err == nil {
		t.Fatal("Expected error from failing adapter")
	}
	if _, ok := err.(*errors.ServiceError); ok {
		t.Error("Adapter failures must surface as plain errors, not client-facing ones")
	}
}

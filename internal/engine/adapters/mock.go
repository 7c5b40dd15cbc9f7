package adapters

import (
	"context"
	"fmt"

	"llmrelay/internal/engine/completions"
)

// MockAdapter returns a deterministic response without calling any
// upstream. It stands in for providers that have no configured credential
// and backs the test suite.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{}
}

// estimateTokens approximates usage at four characters per token, floor 1.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

func (a *MockAdapter) Complete(_ context.Context, req *completions.Request) (*completions.Payload, error) {
	content := fmt.Sprintf("This is a mock response for model %q. Real provider adapters are not configured.", req.Model)

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += estimateTokens(m.Content)
	}
	completionTokens := estimateTokens(content)

	return &completions.Payload{
		Choices: []completions.Choice{
			{
				Index:        0,
				Message:      completions.Message{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: completions.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	}, nil
}

package adapters

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"llmrelay/internal/engine/completions"
)

// OpenAIAdapter calls the OpenAI chat completions API. It returns choices
// and usage only; the orchestrator composes the response envelope.
type OpenAIAdapter struct {
	client *openai.Client
}

func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{client: openai.NewClient(apiKey)}
}

func (a *OpenAIAdapter) Complete(ctx context.Context, req *completions.Request) (*completions.Payload, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	upstream := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: messages,
		Stop:     req.Stop,
	}
	if req.Temperature != nil {
		upstream.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		upstream.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		upstream.TopP = float32(*req.TopP)
	}
	if req.FrequencyPenalty != nil {
		upstream.FrequencyPenalty = float32(*req.FrequencyPenalty)
	}
	if req.PresencePenalty != nil {
		upstream.PresencePenalty = float32(*req.PresencePenalty)
	}

	resp, err := a.client.CreateChatCompletion(ctx, upstream)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}

	choices := make([]completions.Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, completions.Choice{
			Index:        c.Index,
			Message:      completions.Message{Role: c.Message.Role, Content: c.Message.Content},
			FinishReason: string(c.FinishReason),
		})
	}

	return &completions.Payload{
		Choices: choices,
		Usage: completions.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

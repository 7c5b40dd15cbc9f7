package completions

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"llmrelay/internal/pkg/errors"
)

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Payload is what an adapter returns: choices and usage only. The response
// id, creation timestamp and echoed model id are composed here, never by
// an adapter, so there is exactly one source of those fields.
type Payload struct {
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Result is the canonical OpenAI-compatible response envelope.
type Result struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Adapter fulfills a completion request against one upstream provider.
type Adapter interface {
	Complete(ctx context.Context, req *Request) (*Payload, error)
}

// AdapterResolver maps a provider id to its adapter.
type AdapterResolver interface {
	AdapterFor(provider string) (Adapter, error)
}

// Service is the request pipeline: model validation, capability and limit
// gates, adapter dispatch, response composition.
type Service struct {
	registry Registry
	resolver AdapterResolver
}

func NewService(registry Registry, resolver AdapterResolver) *Service {
	return &Service{registry: registry, resolver: resolver}
}

func (s *Service) Registry() Registry {
	return s.registry
}

// Process runs one completion request through the pipeline. The user id is
// an accounting hook from the authentication layer and does not affect
// control flow yet.
func (s *Service) Process(ctx context.Context, userID string, req *Request) (*Result, error) {
	cfg, err := s.registry.ValidateAndGetModel(req.Model)
	if err != nil {
		return nil, err
	}

	// Streaming is not part of this gateway's contract yet, whatever the
	// model itself supports.
	if req.Stream {
		return nil, errors.New(http.StatusBadRequest, "Streaming is not supported")
	}

	if req.MaxTokens != nil {
		if *req.MaxTokens <= 0 || *req.MaxTokens > cfg.MaxTokens {
			return nil, errors.New(http.StatusBadRequest,
				fmt.Sprintf("max_tokens %d exceeds the limit for model %s (max %d)", *req.MaxTokens, cfg.ID, cfg.MaxTokens))
		}
	}

	adapter, err := s.resolver.AdapterFor(cfg.Provider)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	payload, err := adapter.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("adapter %s failed: %w", cfg.Provider, err)
	}

	log.Debug().
		Str("user_id", userID).
		Str("model", req.Model).
		Str("provider", cfg.Provider).
		Dur("duration", time.Since(started)).
		Int("total_tokens", payload.Usage.TotalTokens).
		Msg("completion dispatched")

	return &Result{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: payload.Choices,
		Usage:   payload.Usage,
	}, nil
}

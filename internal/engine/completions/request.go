package completions

import (
	"encoding/json"
	"fmt"

	"llmrelay/internal/pkg/errors"
)

// Global parameter bounds, independent of any model.
const (
	minTemperature = 0.0
	maxTemperature = 2.0
	minTopP        = 0.0
	maxTopP        = 1.0
	minPenalty     = -2.0
	maxPenalty     = 2.0
	minMaxTokens   = 1
	maxMaxTokens   = 4096
	maxStopCount   = 4
)

var validRoles = map[string]bool{
	"system":    true,
	"user":      true,
	"assistant": true,
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StopList accepts the OpenAI union form: a single string or an array.
type StopList []string

func (s *StopList) UnmarshalJSON(data []byte) error {
	// A literal null means no stop sequences, not one empty sequence.
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StopList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("stop must be a string or an array of strings")
	}
	*s = StopList(many)
	return nil
}

func (s StopList) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(s))
}

// Request is the inbound completion request. Pointer fields distinguish
// absent parameters from zero values.
type Request struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        *int      `json:"max_tokens,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	Stop             StopList  `json:"stop,omitempty"`
	Stream           bool      `json:"stream,omitempty"`
}

// Validate checks shape and the global parameter bounds. Model-specific
// limits stay in the orchestrator. Failures are 422 with fieldErrors.
func (r *Request) Validate() error {
	fieldErrors := make(map[string]string)

	if r.Model == "" {
		fieldErrors["model"] = "Model is required"
	}
	if len(r.Messages) == 0 {
		fieldErrors["messages"] = "At least one message is required"
	}
	for i, m := range r.Messages {
		if !validRoles[m.Role] {
			fieldErrors[fmt.Sprintf("messages.%d.role", i)] = fmt.Sprintf("Invalid role: %s", m.Role)
		}
		if m.Content == "" {
			fieldErrors[fmt.Sprintf("messages.%d.content", i)] = "Message content cannot be empty"
		}
	}

	if r.Temperature != nil && (*r.Temperature < minTemperature || *r.Temperature > maxTemperature) {
		fieldErrors["temperature"] = fmt.Sprintf("temperature must be between %g and %g", minTemperature, maxTemperature)
	}
	if r.TopP != nil && (*r.TopP < minTopP || *r.TopP > maxTopP) {
		fieldErrors["top_p"] = fmt.Sprintf("top_p must be between %g and %g", minTopP, maxTopP)
	}
	if r.FrequencyPenalty != nil && (*r.FrequencyPenalty < minPenalty || *r.FrequencyPenalty > maxPenalty) {
		fieldErrors["frequency_penalty"] = fmt.Sprintf("frequency_penalty must be between %g and %g", minPenalty, maxPenalty)
	}
	if r.PresencePenalty != nil && (*r.PresencePenalty < minPenalty || *r.PresencePenalty > maxPenalty) {
		fieldErrors["presence_penalty"] = fmt.Sprintf("presence_penalty must be between %g and %g", minPenalty, maxPenalty)
	}
	if r.MaxTokens != nil && (*r.MaxTokens < minMaxTokens || *r.MaxTokens > maxMaxTokens) {
		fieldErrors["max_tokens"] = fmt.Sprintf("max_tokens must be between %d and %d", minMaxTokens, maxMaxTokens)
	}
	if len(r.Stop) > maxStopCount {
		fieldErrors["stop"] = fmt.Sprintf("at most %d stop sequences are allowed", maxStopCount)
	}

	if len(fieldErrors) > 0 {
		return errors.NewValidation("Validation failed", fieldErrors)
	}
	return nil
}

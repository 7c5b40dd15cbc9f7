package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apiContext "llmrelay/internal/api/context"
	"llmrelay/internal/api/middleware"
	"llmrelay/internal/engine/adapters"
	"llmrelay/internal/engine/completions"
	"llmrelay/internal/pkg/errors"
	"llmrelay/internal/platform/config"
)

func setupCompletionHandler() *CompletionHandler {
	dispatcher := adapters.NewDispatcher(config.ProvidersConfig{})
	svc := completions.NewService(completions.DefaultRegistry(), dispatcher)
	return NewCompletionHandler(svc, nil, nil)
}

func completionRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/completions", strings.NewReader(body))
	ctx := context.WithValue(req.Context(), apiContext.AccessKey,
		&middleware.Identity{UserID: "user-1", KeyID: "key-1"})
	return req.WithContext(ctx)
}

func TestCompletionHandler_Create(t *testing.T) {
	h := setupCompletionHandler()

	body := `{"model":"gpt-4o-mini","messages":[{"role":"user","content":"Say hello"}]}`
	rec := httptest.NewRecorder()
	h.Create(rec, completionRequest(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result completions.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !strings.HasPrefix(result.ID, "chatcmpl-") {
		t.Errorf("Expected chatcmpl- id, got %s", result.ID)
	}
	if result.Model != "gpt-4o-mini" {
		t.Errorf("Expected model echoed, got %s", result.Model)
	}
	if len(result.Choices) < 1 {
		t.Fatal("Expected at least one choice")
	}
	if result.Usage.TotalTokens != result.Usage.PromptTokens+result.Usage.CompletionTokens {
		t.Errorf("Usage does not sum: %+v", result.Usage)
	}

	// A second call gets a fresh response id.
	rec2 := httptest.NewRecorder()
	h.Create(rec2, completionRequest(body))
	var second completions.Result
	if err := json.NewDecoder(rec2.Body).Decode(&second); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if second.ID == result.ID {
		t.Error("Expected distinct ids across calls")
	}
}

func TestCompletionHandler_ValidationFailure(t *testing.T) {
	h := setupCompletionHandler()

	rec := httptest.NewRecorder()
	h.Create(rec, completionRequest(`{"model":"","messages":[]}`))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", rec.Code)
	}
	var env errors.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if env.Error.Code != errors.ErrCodeValidation {
		t.Errorf("Expected VALIDATION_ERROR, got %s", env.Error.Code)
	}
	if len(env.FieldErrors) == 0 {
		t.Error("Expected fieldErrors in 422 response")
	}
}

func TestCompletionHandler_DomainFailures(t *testing.T) {
	h := setupCompletionHandler()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"unknown model", `{"model":"gpt-99","messages":[{"role":"user","content":"hi"}]}`, "Invalid model"},
		{"streaming", `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}],"stream":true}`, "Streaming is not supported"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, completionRequest(tc.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tc.want) {
				t.Errorf("Expected %q in body, got %s", tc.want, rec.Body.String())
			}
		})
	}
}

func TestCompletionHandler_InvalidBody(t *testing.T) {
	h := setupCompletionHandler()

	rec := httptest.NewRecorder()
	h.Create(rec, completionRequest(`{not json`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestModelHandler_List(t *testing.T) {
	h := NewModelHandler(completions.DefaultRegistry())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/v1/models", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var list struct {
		Object string `json:"object"`
		Data   []struct {
			ID      string `json:"id"`
			Object  string `json:"object"`
			OwnedBy string `json:"owned_by"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if list.Object != "list" || len(list.Data) == 0 {
		t.Fatalf("Unexpected list shape: %+v", list)
	}
	found := false
	for _, m := range list.Data {
		if m.ID == "gpt-4o-mini" {
			found = true
			if m.Object != "model" || m.OwnedBy != "openai" {
				t.Errorf("Unexpected model entry: %+v", m)
			}
		}
	}
	if !found {
		t.Error("Expected gpt-4o-mini in the catalog")
	}
}

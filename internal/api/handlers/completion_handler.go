package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"llmrelay/internal/api/middleware"
	"llmrelay/internal/engine/completions"
	"llmrelay/internal/engine/usage"
	"llmrelay/internal/pkg/errors"
	"llmrelay/internal/pkg/metrics"
)

type CompletionHandler struct {
	svc      *completions.Service
	recorder *usage.Recorder
	metrics  *metrics.Metrics
}

func NewCompletionHandler(svc *completions.Service, recorder *usage.Recorder, m *metrics.Metrics) *CompletionHandler {
	return &CompletionHandler{svc: svc, recorder: recorder, metrics: m}
}

func (h *CompletionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Unauthorized", nil)
		return
	}

	var req completions.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeBadRequest, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		errors.HandleError(w, "completions.create", err)
		return
	}

	started := time.Now()
	result, err := h.svc.Process(r.Context(), id.UserID, &req)
	if err != nil {
		errors.HandleError(w, "completions.create", err)
		return
	}

	if h.metrics != nil {
		provider := ""
		if cfg, err := h.svc.Registry().ValidateAndGetModel(req.Model); err == nil {
			provider = cfg.Provider
		}
		h.metrics.CompletionsTotal.WithLabelValues(req.Model, provider).Inc()
		h.metrics.CompletionDurations.WithLabelValues(req.Model).Observe(time.Since(started).Seconds())
		h.metrics.TokensTotal.WithLabelValues(req.Model, "prompt").Add(float64(result.Usage.PromptTokens))
		h.metrics.TokensTotal.WithLabelValues(req.Model, "completion").Add(float64(result.Usage.CompletionTokens))
	}
	if h.recorder != nil {
		h.recorder.Record(id.UserID, id.KeyID, req.Model, result.Usage)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

package handlers

import (
	"encoding/json"
	"net/http"

	"llmrelay/internal/engine/completions"
)

type ModelHandler struct {
	registry completions.Registry
}

func NewModelHandler(registry completions.Registry) *ModelHandler {
	return &ModelHandler{registry: registry}
}

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

// List serves the catalog in the OpenAI list shape so existing SDKs can
// discover models without translation.
func (h *ModelHandler) List(w http.ResponseWriter, r *http.Request) {
	list := modelList{Object: "list", Data: []modelEntry{}}
	for _, id := range h.registry.ModelIDs() {
		cfg, err := h.registry.ValidateAndGetModel(id)
		if err != nil {
			continue
		}
		list.Data = append(list.Data, modelEntry{
			ID:      cfg.ID,
			Object:  "model",
			OwnedBy: cfg.Provider,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

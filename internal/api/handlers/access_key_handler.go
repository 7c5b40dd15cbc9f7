package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "llmrelay/internal/api/context"
	"llmrelay/internal/engine/accesskeys"
	"llmrelay/internal/pkg/errors"
	"llmrelay/internal/platform/auth"
)

type AccessKeyHandler struct {
	keys *accesskeys.Service
}

func NewAccessKeyHandler(keys *accesskeys.Service) *AccessKeyHandler {
	return &AccessKeyHandler{keys: keys}
}

func (h *AccessKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	keys, err := h.keys.ListForUser(claims.UserID)
	if err != nil {
		errors.HandleError(w, "accesskeys.list", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"accessKeys": keys})
}

type createKeyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *AccessKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)

	var req createKeyRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeBadRequest, "Invalid request body", nil)
			return
		}
	}

	result, err := h.keys.Create(claims.UserID, req.Name, req.Description)
	if err != nil {
		errors.HandleError(w, "accesskeys.create", err)
		return
	}

	// The plaintext secret appears in this response and nowhere else.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"accessKey": result})
}

// updateKeyRequest keeps expiresAt as raw JSON so an explicit null can be
// told apart from an absent field.
type updateKeyRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Revoked     *bool           `json:"revoked"`
	ExpiresAt   json.RawMessage `json:"expiresAt"`
}

func (r *updateKeyRequest) patch() (accesskeys.UpdatePatch, error) {
	patch := accesskeys.UpdatePatch{
		Name:        r.Name,
		Description: r.Description,
		Revoked:     r.Revoked,
	}

	if len(r.ExpiresAt) > 0 {
		if string(r.ExpiresAt) == "null" {
			patch.ClearExpiry = true
		} else {
			var ts string
			if err := json.Unmarshal(r.ExpiresAt, &ts); err != nil {
				return patch, errors.New(http.StatusBadRequest, "expiresAt must be an ISO-8601 date-time string or null")
			}
			patch.ExpiresAt = &ts
		}
	}
	return patch, nil
}

func (h *AccessKeyHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	keyID := params.ByName("key_id")

	var req updateKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeBadRequest, "Invalid request body", nil)
		return
	}

	patch, err := req.patch()
	if err != nil {
		errors.HandleError(w, "accesskeys.update", err)
		return
	}

	updated, err := h.keys.Update(keyID, claims.UserID, patch)
	if err != nil {
		errors.HandleError(w, "accesskeys.update", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"accessKey": updated})
}

func (h *AccessKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := r.Context().Value(apiContext.Claims).(*auth.Claims)
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	keyID := params.ByName("key_id")

	if err := h.keys.Delete(keyID, claims.UserID); err != nil {
		errors.HandleError(w, "accesskeys.delete", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

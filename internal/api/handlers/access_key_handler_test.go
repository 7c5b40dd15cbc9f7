package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	_ "github.com/mattn/go-sqlite3"

	apiContext "llmrelay/internal/api/context"
	"llmrelay/internal/engine/accesskeys"
	"llmrelay/internal/pkg/errors"
	"llmrelay/internal/platform/auth"
	"llmrelay/internal/platform/database"
)

func setupKeyHandler(t *testing.T) *AccessKeyHandler {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	svc := accesskeys.NewService(accesskeys.NewRepository(db), accesskeys.NewHasher(1, 16*1024, 1))
	return NewAccessKeyHandler(svc)
}

func authedRequest(method, path, body, userID string, params httprouter.Params) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	ctx := context.WithValue(req.Context(), apiContext.Claims, &auth.Claims{UserID: userID})
	if params != nil {
		ctx = context.WithValue(ctx, apiContext.Params, params)
	}
	return req.WithContext(ctx)
}

func createKey(t *testing.T, h *AccessKeyHandler, userID string) (id, key string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(http.MethodPost, "/api/v1/access-keys", `{"name":"ci"}`, userID, nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessKey struct {
			ID        string `json:"id"`
			Key       string `json:"key"`
			CreatedAt int64  `json:"created_at"`
		} `json:"accessKey"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.AccessKey.ID == "" || resp.AccessKey.CreatedAt == 0 {
		t.Fatal("Expected id and created_at in create response")
	}
	if !strings.HasPrefix(resp.AccessKey.Key, "lr_") {
		t.Fatalf("Expected lr_ prefixed key, got %q", resp.AccessKey.Key)
	}
	return resp.AccessKey.ID, resp.AccessKey.Key
}

func TestAccessKeyHandler_CreateAndList(t *testing.T) {
	h := setupKeyHandler(t)

	id, key := createKey(t, h, "user-1")

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/v1/access-keys", "", "user-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var list struct {
		AccessKeys []accesskeys.SafeKey `json:"accessKeys"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(list.AccessKeys) != 1 || list.AccessKeys[0].ID != id {
		t.Fatalf("Expected the created key in the list, got %+v", list.AccessKeys)
	}
	if !strings.HasPrefix(list.AccessKeys[0].Preview, "lr_") {
		t.Errorf("Expected preview with key prefix, got %q", list.AccessKeys[0].Preview)
	}
	// List responses never carry the secret.
	if strings.Contains(rec.Body.String(), key) {
		t.Error("List response must not contain the plaintext secret")
	}

	// Other users see an empty list.
	rec = httptest.NewRecorder()
	h.List(rec, authedRequest(http.MethodGet, "/api/v1/access-keys", "", "user-2", nil))
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(list.AccessKeys) != 0 {
		t.Errorf("Expected empty list for another user, got %+v", list.AccessKeys)
	}
}

func TestAccessKeyHandler_Update(t *testing.T) {
	h := setupKeyHandler(t)
	id, _ := createKey(t, h, "user-1")
	params := httprouter.Params{{Key: "key_id", Value: id}}

	rec := httptest.NewRecorder()
	h.Update(rec, authedRequest(http.MethodPatch, "/api/v1/access-keys/"+id,
		`{"revoked":true,"expiresAt":"2030-01-01T00:00:00Z"}`, "user-1", params))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessKey accesskeys.SafeKey `json:"accessKey"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.AccessKey.Revoked {
		t.Error("Expected key to be revoked")
	}
	if resp.AccessKey.ExpiresAt == nil {
		t.Error("Expected expiry to be set")
	}

	// Explicit null clears the expiry.
	rec = httptest.NewRecorder()
	h.Update(rec, authedRequest(http.MethodPatch, "/api/v1/access-keys/"+id,
		`{"expiresAt":null}`, "user-1", params))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.AccessKey.ExpiresAt != nil {
		t.Error("Expected expiry to be cleared")
	}
}

func TestAccessKeyHandler_UpdateFailures(t *testing.T) {
	h := setupKeyHandler(t)
	id, _ := createKey(t, h, "user-1")
	params := httprouter.Params{{Key: "key_id", Value: id}}

	// Empty patch.
	rec := httptest.NewRecorder()
	h.Update(rec, authedRequest(http.MethodPatch, "/api/v1/access-keys/"+id, `{}`, "user-1", params))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty patch, got %d", rec.Code)
	}

	// Malformed expiry.
	rec = httptest.NewRecorder()
	h.Update(rec, authedRequest(http.MethodPatch, "/api/v1/access-keys/"+id,
		`{"expiresAt":12345}`, "user-1", params))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-string expiry, got %d", rec.Code)
	}

	// Another user's key looks like it does not exist.
	rec = httptest.NewRecorder()
	h.Update(rec, authedRequest(http.MethodPatch, "/api/v1/access-keys/"+id,
		`{"revoked":true}`, "user-2", params))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for foreign key, got %d", rec.Code)
	}
	var env errors.Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if env.Error.Message != "Access key not found or access denied" {
		t.Errorf("Unexpected message: %q", env.Error.Message)
	}
}

func TestAccessKeyHandler_Delete(t *testing.T) {
	h := setupKeyHandler(t)
	id, _ := createKey(t, h, "user-1")
	params := httprouter.Params{{Key: "key_id", Value: id}}

	// Another user cannot delete it.
	rec := httptest.NewRecorder()
	h.Delete(rec, authedRequest(http.MethodDelete, "/api/v1/access-keys/"+id, "", "user-2", params))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for foreign key, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Delete(rec, authedRequest(http.MethodDelete, "/api/v1/access-keys/"+id, "", "user-1", params))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}

	// Deleting again reports not found.
	rec = httptest.NewRecorder()
	h.Delete(rec, authedRequest(http.MethodDelete, "/api/v1/access-keys/"+id, "", "user-1", params))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

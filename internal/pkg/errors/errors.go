package errors

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeInternal         = "INTERNAL"
)

// CodeForStatus maps an HTTP status to its canonical error code.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeBadRequest
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusForbidden:
		return ErrCodeForbidden
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusMethodNotAllowed:
		return ErrCodeMethodNotAllowed
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusUnprocessableEntity:
		return ErrCodeValidation
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	default:
		return ErrCodeInternal
	}
}

// ServiceError is the single structured error type raised by the service
// layer. Handlers translate it into the JSON envelope verbatim.
type ServiceError struct {
	Status      int
	Code        string
	Message     string
	FieldErrors map[string]string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// New creates a ServiceError with the code derived from the status.
func New(status int, message string) *ServiceError {
	return &ServiceError{Status: status, Code: CodeForStatus(status), Message: message}
}

// NewValidation creates a 422 error carrying field-level details.
func NewValidation(message string, fieldErrors map[string]string) *ServiceError {
	return &ServiceError{
		Status:      http.StatusUnprocessableEntity,
		Code:        ErrCodeValidation,
		Message:     message,
		FieldErrors: fieldErrors,
	}
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Envelope is the wire shape of every failure response.
type Envelope struct {
	Error       errorBody         `json:"error"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
	RequestID   string            `json:"requestId"`
	TS          string            `json:"ts"`
}

// WriteError writes the canonical error envelope with a fresh request id.
func WriteError(w http.ResponseWriter, status int, code, message string, fieldErrors map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(Envelope{
		Error:       errorBody{Message: message, Code: code},
		FieldErrors: fieldErrors,
		RequestID:   uuid.NewString(),
		TS:          time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleError translates any error into the envelope. ServiceErrors pass
// through with their status and code; anything else is logged with full
// context and returned as a generic 500 so internals never reach the client.
func HandleError(w http.ResponseWriter, route string, err error) {
	if svcErr, ok := err.(*ServiceError); ok {
		log.Warn().
			Str("route", route).
			Int("status", svcErr.Status).
			Str("code", svcErr.Code).
			Msg(svcErr.Message)
		WriteError(w, svcErr.Status, svcErr.Code, svcErr.Message, svcErr.FieldErrors)
		return
	}

	log.Error().Str("route", route).Err(err).Msg("unhandled error")
	WriteError(w, http.StatusInternalServerError, ErrCodeInternal, "Internal server error", nil)
}

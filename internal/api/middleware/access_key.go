package middleware

import (
	"context"
	"net/http"
	"strings"

	apiContext "llmrelay/internal/api/context"
	"llmrelay/internal/engine/accesskeys"
	"llmrelay/internal/pkg/errors"
	"llmrelay/internal/pkg/metrics"
)

// Identity is the authenticated principal behind an access key. The raw
// secret never travels past this middleware.
type Identity struct {
	UserID string
	KeyID  string
}

// AccessKeyMiddleware guards the completion surface. Every failure mode,
// missing header, wrong scheme, unknown or revoked or expired key, yields
// the same generic 401 so callers cannot tell key states apart.
type AccessKeyMiddleware struct {
	keys    *accesskeys.Service
	metrics *metrics.Metrics
}

func NewAccessKeyMiddleware(keys *accesskeys.Service, m *metrics.Metrics) *AccessKeyMiddleware {
	return &AccessKeyMiddleware{keys: keys, metrics: m}
}

func (m *AccessKeyMiddleware) reject(w http.ResponseWriter) {
	if m.metrics != nil {
		m.metrics.AuthFailuresTotal.Inc()
	}
	errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Unauthorized", nil)
}

func (m *AccessKeyMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.reject(w)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			m.reject(w)
			return
		}

		userID, keyID, err := m.keys.Authenticate(parts[1])
		if err != nil {
			// Only authentication failures become the generic 401; an
			// infrastructure error is not a bad credential.
			if _, ok := err.(*errors.ServiceError); ok {
				m.reject(w)
				return
			}
			errors.HandleError(w, "middleware.access_key", err)
			return
		}

		ctx := context.WithValue(r.Context(), apiContext.AccessKey, &Identity{UserID: userID, KeyID: keyID})
		next(w, r.WithContext(ctx))
	}
}

// IdentityFrom pulls the authenticated identity out of a request context.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(apiContext.AccessKey).(*Identity)
	return id, ok
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"llmrelay/internal/pkg/metrics"
)

func TestMetricsMiddleware_Handle(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	mw := NewMetricsMiddleware(m)

	handler := mw.Handle("/api/v1/completions")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/completions", nil))

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("POST", "/api/v1/completions", "400"))
	if got != 1 {
		t.Errorf("Expected one counted request, got %v", got)
	}

	// A handler that never calls WriteHeader counts as 200.
	handler = mw.Handle("/health")(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	got = testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/health", "200"))
	if got != 1 {
		t.Errorf("Expected implicit 200 to be counted, got %v", got)
	}
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"llmrelay/internal/pkg/metrics"
)

// statusWriter captures the response status for the request counter.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware observes request counts and latencies per route. The
// path label is the registered route pattern, not the raw URL, so label
// cardinality stays bounded.
type MetricsMiddleware struct {
	metrics *metrics.Metrics
}

func NewMetricsMiddleware(m *metrics.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: m}
}

func (m *MetricsMiddleware) Handle(path string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			started := time.Now()

			next(sw, r)

			m.metrics.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
			m.metrics.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(started).Seconds())
		}
	}
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for the gateway.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	AuthFailuresTotal   prometheus.Counter
	CompletionsTotal    *prometheus.CounterVec
	CompletionDurations *prometheus.HistogramVec
	TokensTotal         *prometheus.CounterVec
}

// New initializes and registers the gateway collectors on a fresh registry.
// Tests construct their own instance so collectors never collide.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmrelay_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llmrelay_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "llmrelay_auth_failures_total",
				Help: "Total number of rejected access-key authentications",
			},
		),
		CompletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmrelay_completions_total",
				Help: "Total number of completion requests by model",
			},
			[]string{"model", "provider"},
		),
		CompletionDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llmrelay_completion_duration_seconds",
				Help:    "Duration of completion requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		TokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmrelay_tokens_total",
				Help: "Total tokens consumed, split by direction",
			},
			[]string{"model", "direction"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.AuthFailuresTotal,
		m.CompletionsTotal,
		m.CompletionDurations,
		m.TokensTotal,
	)

	return m
}

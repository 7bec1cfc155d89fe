// Package observability provides Prometheus instrumentation for model
// requests, tool execution, and planning phases.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records runtime counters and histograms. A nil *Metrics is
// valid and records nothing, so callers never need to guard.
type Metrics struct {
	registry *prometheus.Registry

	modelDuration     *prometheus.HistogramVec
	modelRequests     *prometheus.CounterVec
	modelErrors       *prometheus.CounterVec
	modelInputTokens  *prometheus.CounterVec
	modelOutputTokens *prometheus.CounterVec

	toolDuration *prometheus.HistogramVec
	toolCalls    *prometheus.CounterVec
	toolErrors   *prometheus.CounterVec

	phaseDuration *prometheus.HistogramVec
	sessions      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		modelDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfarer_model_request_duration_seconds",
			Help:    "Model request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		modelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_model_requests_total",
			Help: "Total model requests",
		}, []string{"provider"}),
		modelErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_model_errors_total",
			Help: "Total model request errors",
		}, []string{"provider", "code"}),
		modelInputTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_model_tokens_input_total",
			Help: "Total input tokens sent to the model",
		}, []string{"provider"}),
		modelOutputTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_model_tokens_output_total",
			Help: "Total output tokens received from the model",
		}, []string{"provider"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfarer_tool_execution_duration_seconds",
			Help:    "Tool execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"server", "tool"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_tool_calls_total",
			Help: "Total tool calls",
		}, []string{"server", "tool"}),
		toolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_tool_errors_total",
			Help: "Total failed tool calls",
		}, []string{"server", "tool"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfarer_phase_duration_seconds",
			Help:    "Planning phase duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase", "status"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfarer_sessions_total",
			Help: "Total planning sessions by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.modelDuration, m.modelRequests, m.modelErrors,
		m.modelInputTokens, m.modelOutputTokens,
		m.toolDuration, m.toolCalls, m.toolErrors,
		m.phaseDuration, m.sessions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordModelRequest(provider string, duration time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.modelRequests.WithLabelValues(provider).Inc()
	m.modelDuration.WithLabelValues(provider).Observe(duration.Seconds())
	m.modelInputTokens.WithLabelValues(provider).Add(float64(inputTokens))
	m.modelOutputTokens.WithLabelValues(provider).Add(float64(outputTokens))
}

func (m *Metrics) RecordModelError(provider, code string) {
	if m == nil {
		return
	}
	m.modelErrors.WithLabelValues(provider, code).Inc()
}

func (m *Metrics) RecordToolCall(server, tool string, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(server, tool).Inc()
	m.toolDuration.WithLabelValues(server, tool).Observe(duration.Seconds())
	if failed {
		m.toolErrors.WithLabelValues(server, tool).Inc()
	}
}

func (m *Metrics) RecordPhase(phase, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase, status).Observe(duration.Seconds())
}

func (m *Metrics) RecordSession(outcome string) {
	if m == nil {
		return
	}
	m.sessions.WithLabelValues(outcome).Inc()
}

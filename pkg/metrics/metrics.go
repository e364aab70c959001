// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// GatewayCallDuration tracks AI gateway call duration, retries included.
	GatewayCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_gateway_call_duration_seconds",
			Help:    "AI gateway chat completion duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model", "outcome"},
	)

	// GatewayCallsTotal tracks AI gateway calls by outcome.
	GatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gateway_calls_total",
			Help: "Total AI gateway chat completion calls",
		},
		[]string{"model", "outcome"},
	)

	// GatewayRetriesTotal tracks retried gateway attempts.
	GatewayRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_gateway_retries_total",
			Help: "Total retried AI gateway attempts",
		},
		[]string{"model"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// FallbacksTotal tracks responses replaced by a hardcoded default.
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_function_fallbacks_total",
			Help: "Upstream replies replaced by a fallback value",
		},
		[]string{"function", "part"},
	)

	// FunctionEventsTotal tracks published function events.
	FunctionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_function_events_total",
			Help: "Function events published to the event stream",
		},
		[]string{"function", "result"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordGatewayCall records metrics for one AI gateway completion.
func RecordGatewayCall(model, outcome string, duration float64, tokensIn, tokensOut int) {
	GatewayCallDuration.WithLabelValues(model, outcome).Observe(duration)
	GatewayCallsTotal.WithLabelValues(model, outcome).Inc()
	if tokensIn > 0 || tokensOut > 0 {
		LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
		LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
	}
}

// RecordRetry records a retried gateway attempt.
func RecordRetry(model string) {
	GatewayRetriesTotal.WithLabelValues(model).Inc()
}

// RecordFallback records a fallback substitution.
func RecordFallback(function, part string) {
	FallbacksTotal.WithLabelValues(function, part).Inc()
}

// RecordEvent records a function event publication.
func RecordEvent(function, result string) {
	FunctionEventsTotal.WithLabelValues(function, result).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}

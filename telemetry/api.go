// Package telemetry provides simple, production-ready metrics emission.
package telemetry

import "context"

// Counter increments a counter metric by 1.
// Example: Counter("circuit_breaker.calls", "name", "gemini", "state", "success")
func Counter(name string, labels ...string) {
	Emit(name, 1, labels...)
}

// Histogram records a value in a distribution: latencies, sizes, durations.
// Example: Histogram("circuit_breaker.duration_ms", 125.3, "name", "gemini")
func Histogram(name string, value float64, labels ...string) {
	Emit(name, value, labels...)
}

// Gauge sets a current-value metric: active connections, queue depth,
// circuit breaker state. Recorded as a histogram internally since
// OpenTelemetry gauges otherwise require callback registration.
func Gauge(name string, value float64, labels ...string) {
	if registry := globalRegistry.Load(); registry != nil {
		r := registry.(*Registry)
		_ = r.metrics.RecordHistogram(context.Background(), name, value)
	}
	Emit(name, value, labels...)
}

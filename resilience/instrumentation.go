package resilience

import "github.com/autoweb/agent/telemetry"

// init declares, but does not emit, the metric names a circuit breaker
// using TelemetryMetrics can produce, so the telemetry registry's
// cardinality limiter knows about them before the first emission.
func init() {
	telemetry.DeclareMetrics("circuit_breaker", telemetry.ModuleConfig{
		Metrics: []telemetry.MetricDefinition{
			{
				Name:   "circuit_breaker.calls",
				Type:   "counter",
				Help:   "Total circuit breaker calls",
				Labels: []string{"name", "state"},
			},
			{
				Name:   "circuit_breaker.failures",
				Type:   "counter",
				Help:   "Circuit breaker failures",
				Labels: []string{"name", "error_type"},
			},
			{
				Name:   "circuit_breaker.state_changes",
				Type:   "counter",
				Help:   "Circuit breaker state transitions",
				Labels: []string{"name", "from_state", "to_state"},
			},
			{
				Name:   "circuit_breaker.current_state",
				Type:   "gauge",
				Help:   "Current circuit breaker state (0=closed, 0.5=half-open, 1=open)",
				Labels: []string{"name"},
			},
			{
				Name:   "circuit_breaker.rejected",
				Type:   "counter",
				Help:   "Requests rejected by an open circuit",
				Labels: []string{"name"},
			},
		},
	})
}

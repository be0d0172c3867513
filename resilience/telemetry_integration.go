package resilience

import "github.com/autoweb/agent/telemetry"

// TelemetryMetrics is the MetricsCollector a CircuitBreaker uses once
// telemetry has been initialized (see CreateCircuitBreaker).
type TelemetryMetrics struct{}

func NewTelemetryMetrics() *TelemetryMetrics {
	return &TelemetryMetrics{}
}

func (t *TelemetryMetrics) RecordSuccess(name string) {
	telemetry.Counter("circuit_breaker.calls", "name", name, "state", "success")
}

func (t *TelemetryMetrics) RecordFailure(name string, errorType string) {
	telemetry.Counter("circuit_breaker.calls", "name", name, "state", "failure")
	telemetry.Counter("circuit_breaker.failures", "name", name, "error_type", errorType)
}

func (t *TelemetryMetrics) RecordStateChange(name string, from, to string) {
	telemetry.Counter("circuit_breaker.state_changes", "name", name, "from_state", from, "to_state", to)

	stateValue := 0.0
	switch to {
	case "half-open":
		stateValue = 0.5
	case "open":
		stateValue = 1.0
	}
	telemetry.Gauge("circuit_breaker.current_state", stateValue, "name", name)
}

func (t *TelemetryMetrics) RecordRejection(name string) {
	telemetry.Counter("circuit_breaker.rejected", "name", name)
}

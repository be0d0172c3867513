package resilience

import (
	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/telemetry"
)

// ResilienceDependencies holds the dependencies a circuit breaker can be
// built with; both are optional.
type ResilienceDependencies struct {
	Logger    core.Logger
	Telemetry core.Telemetry
}

// globalTelemetryAvailable reports whether telemetry.Initialize has run,
// so CreateCircuitBreaker can opt into metrics emission without every
// caller having to thread a telemetry handle through explicitly.
func globalTelemetryAvailable() bool {
	return telemetry.GetRegistry() != nil
}

// CreateCircuitBreaker builds a breaker named for the upstream it
// guards (e.g. "openai", "gemini"), wiring in a logger and, when
// telemetry is available, metrics emission.
func CreateCircuitBreaker(name string, deps ResilienceDependencies) (*CircuitBreaker, error) {
	config := DefaultConfig()
	config.Name = name

	if deps.Logger != nil {
		config.Logger = deps.Logger
	} else {
		config.Logger = core.NewProductionLogger(
			core.LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
			core.DevelopmentConfig{},
			"circuit-breaker",
		)
	}

	if deps.Telemetry != nil || globalTelemetryAvailable() {
		config.Metrics = NewTelemetryMetrics()
	}

	return NewCircuitBreaker(config)
}

package telemetry

// Config configures the telemetry system initialized by Initialize.
type Config struct {
	ServiceName string
	Endpoint    string

	// CardinalityLimit is logged at startup (defaulting to 10000) but the
	// limiter does not apply it. CardinalityLimits sets the per-label caps
	// (e.g. "error_type"); when nil, name=100, error_type=50 and state=10
	// apply. Labels without an entry are not capped.
	CardinalityLimit  int
	CardinalityLimits map[string]int

	CircuitBreaker CircuitConfig
}

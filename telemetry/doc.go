/*
Package telemetry provides metric emission for autoweb's circuit breakers,
retries, and AI provider calls via OpenTelemetry.

Layering:

 1. Simple API (Emit, Counter, Histogram, Gauge) - what callers use
 2. Registry - global singleton managing the OTel provider, cardinality
    limiter, and self-protecting circuit breaker
 3. OTelProvider - actual span/metric export

Thread safety:

Emit and friends are safe for concurrent use. The global registry is
held in an atomic.Value for lock-free reads on the hot path; Initialize
uses sync.Once so only the first call takes effect.

Fail-safe by design: metric emission never panics or blocks the caller.
Before Initialize runs, Emit is a silent no-op. After initialization, a
tripped internal circuit breaker (see circuit.go) drops metrics rather
than let a slow telemetry backend back up into request handling.

Usage:

	if _, err := telemetry.EnableTelemetry(logger, "autoweb", ""); err != nil {
		logger.Error("telemetry disabled", map[string]interface{}{"error": err.Error()})
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Counter("circuit_breaker.calls", "name", "gemini", "state", "success")
	telemetry.Histogram("retry.attempts", float64(attempt), "name", "gemini")

Safety features:

  - Cardinality limiting: bounds the distinct label values per key
  - Circuit breaker: stops exporting when the backend is unhealthy
  - Rate-limited error logging: avoids log spam on sustained export failures
*/
package telemetry

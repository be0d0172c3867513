package telemetry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autoweb/agent/core"
)

var (
	// globalRegistry holds the singleton Registry instance. atomic.Value
	// gives lock-free reads on the hot path (metric emission); it's
	// written once by Initialize and read many times by Emit.
	globalRegistry atomic.Value // *Registry

	initOnce sync.Once

	// declaredMetrics stores metric declarations made via DeclareMetrics
	// before Initialize runs, so package init() functions can register
	// their metric names without caring about initialization order.
	declaredMetrics sync.Map // map[string]ModuleConfig

	telemetryErrors  atomic.Int64
	telemetryDropped atomic.Int64
)

// ModuleConfig groups the metrics one package wants to declare.
type ModuleConfig struct {
	Metrics []MetricDefinition
}

// MetricDefinition describes a metric's name, type and labels, used by
// DeclareMetrics to pre-register instruments before first emission.
type MetricDefinition struct {
	Name    string
	Type    string // counter, histogram, gauge, updowncounter
	Help    string
	Labels  []string
	Unit    string
	Buckets []float64
}

// Registry coordinates the metric instruments, cardinality limiter and
// self-protecting circuit breaker behind the package-level Emit/Counter/
// Gauge/Histogram functions.
type Registry struct {
	config   Config
	provider *OTelProvider
	limiter  *CardinalityLimiter
	circuit  *TelemetryCircuitBreaker
	metrics  *MetricInstruments
	logger   *TelemetryLogger

	emitted   atomic.Int64
	startTime time.Time
	lastError atomic.Value

	errorLimiter *RateLimiter
}

// DeclareMetrics registers a module's metric definitions. Safe to call
// from init() before Initialize runs — declarations are processed once
// Initialize does.
func DeclareMetrics(module string, config ModuleConfig) {
	declaredMetrics.Store(module, config)
}

// Initialize activates the telemetry system. Call once from main()
// before any metrics are emitted; safe to call more than once, only the
// first call takes effect. If it fails, Emit and friends keep working as
// silent no-ops rather than panicking the caller.
func Initialize(config Config) error {
	var initErr error
	initOnce.Do(func() {
		logger := NewTelemetryLogger(config.ServiceName)
		logger.Info("telemetry initialization starting", map[string]interface{}{
			"service_name":      config.ServiceName,
			"endpoint":          config.Endpoint,
			"cardinality_limit": config.CardinalityLimit,
			"circuit_enabled":   config.CircuitBreaker.Enabled,
		})

		registry, err := newRegistry(config)
		if err != nil {
			initErr = err
			logger.Error("telemetry initialization failed", map[string]interface{}{
				"error":    err.Error(),
				"endpoint": config.Endpoint,
			})
			return
		}
		registry.logger = logger

		declaredCount := 0
		declaredMetrics.Range(func(key, value interface{}) bool {
			module := key.(string)
			moduleConfig := value.(ModuleConfig)
			registry.registerModule(module, moduleConfig)
			declaredCount++
			return true
		})

		globalRegistry.Store(registry)
		logger.EnableMetrics()

		logger.Info("telemetry system initialized", map[string]interface{}{
			"declared_modules": declaredCount,
			"circuit_enabled":  registry.circuit != nil,
			"init_ms":          time.Since(registry.startTime).Milliseconds(),
		})
	})
	return initErr
}

func newRegistry(config Config) (*Registry, error) {
	startTime := time.Now()

	if config.Endpoint == "" {
		config.Endpoint = "localhost:4318"
	}
	if config.ServiceName == "" {
		config.ServiceName = "autoweb"
	}
	if config.CardinalityLimit == 0 {
		config.CardinalityLimit = 10000
	}

	provider, err := NewOTelProvider(config.ServiceName, config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("create otel provider: %w", err)
	}

	limits := config.CardinalityLimits
	if limits == nil {
		limits = map[string]int{
			"name":       100,
			"error_type": 50,
			"state":      10,
		}
	}

	r := &Registry{
		config:       config,
		provider:     provider,
		limiter:      NewCardinalityLimiter(limits),
		circuit:      NewTelemetryCircuitBreaker(config.CircuitBreaker),
		metrics:      provider.metrics,
		startTime:    startTime,
		errorLimiter: NewRateLimiter(1 * time.Second),
	}
	r.lastError.Store("")
	return r, nil
}

// registerModule pre-creates instruments for a module's declared metrics
// so the first real emission doesn't pay instrument-creation cost.
func (r *Registry) registerModule(_ string, config ModuleConfig) {
	ctx := context.Background()
	for _, metric := range config.Metrics {
		switch metric.Type {
		case "counter":
			_ = r.metrics.RecordCounter(ctx, metric.Name, 0)
		case "histogram":
			_ = r.metrics.RecordHistogram(ctx, metric.Name, 0)
		}
	}
}

func (r *Registry) emit(name string, value float64, labels map[string]string) error {
	if r.circuit != nil && !r.circuit.Allow() {
		telemetryDropped.Add(1)
		return fmt.Errorf("telemetry circuit breaker open")
	}

	if r.limiter != nil {
		for key, val := range labels {
			if limited := r.limiter.CheckAndLimit(name, key, val); limited != val {
				labels[key] = limited
			}
		}
	}

	if r.provider != nil {
		r.provider.RecordMetric(name, value, labels)
		r.emitted.Add(1)
		if r.circuit != nil {
			r.circuit.RecordSuccess()
		}
	}
	return nil
}

// Emit is the lowest-level entry point; Counter/Histogram/Gauge build on
// top of it. A no-op until Initialize has run.
func Emit(name string, value float64, labels ...string) {
	registry := globalRegistry.Load()
	if registry == nil {
		return
	}

	r := registry.(*Registry)
	if err := r.emit(name, value, parseLabels(labels...)); err != nil {
		telemetryErrors.Add(1)
		r.lastError.Store(err.Error())

		if r.logger != nil && r.errorLimiter != nil && r.errorLimiter.Allow() {
			r.logger.Error("failed to emit metric", map[string]interface{}{
				"metric": name,
				"value":  value,
				"error":  err.Error(),
			})
		}
		if r.circuit != nil {
			r.circuit.RecordFailure()
		}
	}
}

func parseLabels(labels ...string) map[string]string {
	m := make(map[string]string)
	for i := 0; i < len(labels)-1; i += 2 {
		m[labels[i]] = labels[i+1]
	}
	return m
}

// Shutdown gracefully stops the telemetry system, flushing the
// OpenTelemetry provider and clearing the global registry so Emit
// becomes a no-op again.
func Shutdown(ctx context.Context) error {
	registry := globalRegistry.Load()
	if registry == nil {
		return nil
	}
	r := registry.(*Registry)

	if r.logger != nil {
		r.logger.Info("shutting down telemetry system", map[string]interface{}{
			"total_emitted": r.emitted.Load(),
			"uptime_ms":     time.Since(r.startTime).Milliseconds(),
		})
	}

	if r.limiter != nil {
		r.limiter.Stop()
	}

	var err error
	if r.provider != nil {
		err = r.provider.Shutdown(ctx)
		if err != nil && r.logger != nil {
			r.logger.Error("error during provider shutdown", map[string]interface{}{"error": err.Error()})
		}
	}

	globalRegistry.Store(nil)
	return err
}

// GetRegistry returns the active registry, or nil if Initialize hasn't
// run. resilience.globalTelemetryAvailable uses this to decide whether
// to attach metrics to a circuit breaker.
func GetRegistry() *Registry {
	r := globalRegistry.Load()
	if r == nil {
		return nil
	}
	return r.(*Registry)
}

// GetTelemetryProvider returns the initialized OTelProvider as a
// core.Telemetry, or nil if Initialize hasn't run.
func GetTelemetryProvider() core.Telemetry {
	r := globalRegistry.Load()
	if r == nil {
		return nil
	}
	registry := r.(*Registry)
	if registry.provider == nil {
		return nil
	}
	return registry.provider
}

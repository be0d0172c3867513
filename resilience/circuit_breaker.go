package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autoweb/agent/core"
)

// CircuitState is one of closed (requests flow), open (requests rejected)
// or half-open (a limited number of probe requests are let through to
// decide whether to recover).
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MetricsCollector receives circuit breaker lifecycle events. Callers
// that don't care about metrics get noopMetrics via DefaultConfig.
type MetricsCollector interface {
	RecordSuccess(name string)
	RecordFailure(name string, errorType string)
	RecordStateChange(name string, from, to string)
	RecordRejection(name string)
}

type noopMetrics struct{}

func (noopMetrics) RecordSuccess(name string)                      {}
func (noopMetrics) RecordFailure(name string, errorType string)    {}
func (noopMetrics) RecordStateChange(name string, from, to string) {}
func (noopMetrics) RecordRejection(name string)                    {}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Name string

	// ErrorThreshold is the error rate (0.0-1.0) that trips the circuit.
	ErrorThreshold float64
	// VolumeThreshold is the minimum request count before ErrorThreshold
	// is evaluated, so a handful of early failures doesn't trip a
	// breaker that has barely seen traffic.
	VolumeThreshold int
	// SleepWindow is how long the circuit stays open before probing.
	SleepWindow time.Duration
	// HalfOpenRequests caps how many probes run during recovery.
	HalfOpenRequests int
	// SuccessThreshold is the probe success rate needed to close again.
	SuccessThreshold float64

	WindowSize  time.Duration
	BucketCount int

	Logger  core.Logger
	Metrics MetricsCollector
}

// DefaultConfig returns the breaker settings used for every AI provider
// client unless a caller overrides them.
func DefaultConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             "default",
		ErrorThreshold:   0.5,
		VolumeThreshold:  10,
		SleepWindow:      30 * time.Second,
		HalfOpenRequests: 5,
		SuccessThreshold: 0.6,
		WindowSize:       60 * time.Second,
		BucketCount:      10,
		Logger:           &core.NoOpLogger{},
		Metrics:          noopMetrics{},
	}
}

func (c *CircuitBreakerConfig) fillDefaults() {
	if c.WindowSize == 0 {
		c.WindowSize = 60 * time.Second
	}
	if c.BucketCount == 0 {
		c.BucketCount = 10
	}
	if c.Logger == nil {
		c.Logger = &core.NoOpLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = noopMetrics{}
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 0.6
	}
	if c.HalfOpenRequests == 0 {
		c.HalfOpenRequests = 5
	}
}

func (c *CircuitBreakerConfig) validate() error {
	if c.Name == "" {
		return errors.New("circuit breaker name is required")
	}
	if c.ErrorThreshold < 0 || c.ErrorThreshold > 1 {
		return errors.New("error threshold must be between 0 and 1")
	}
	if c.VolumeThreshold < 0 {
		return errors.New("volume threshold must be non-negative")
	}
	if c.BucketCount < 0 {
		return errors.New("bucket count must be non-negative")
	}
	return nil
}

// CircuitBreaker tracks a rolling error rate for one upstream (an AI
// provider, in practice) and short-circuits calls once that rate crosses
// ErrorThreshold, so a dead endpoint fails fast instead of burning a
// caller's retry budget on every attempt.
type CircuitBreaker struct {
	config *CircuitBreakerConfig

	state          atomic.Value // CircuitState
	stateChangedAt atomic.Value // time.Time

	window *SlidingWindow

	halfOpenTotal     atomic.Int32
	halfOpenSuccesses atomic.Int32
	halfOpenFailures  atomic.Int32

	mu sync.Mutex
}

// NewCircuitBreaker validates config and returns a breaker starting in
// the closed state.
func NewCircuitBreaker(config *CircuitBreakerConfig) (*CircuitBreaker, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.fillDefaults()

	cb := &CircuitBreaker{
		config: config,
		window: newSlidingWindow(config.WindowSize, config.BucketCount, config.Logger, config.Name),
	}
	cb.state.Store(StateClosed)
	cb.stateChangedAt.Store(time.Now())

	config.Logger.Info("circuit breaker created", map[string]interface{}{
		"name":             config.Name,
		"error_threshold":  config.ErrorThreshold,
		"volume_threshold": config.VolumeThreshold,
	})
	return cb, nil
}

// SetLogger replaces the breaker's logger, tagging it with the
// resilience component if the logger supports that.
func (cb *CircuitBreaker) SetLogger(logger core.Logger) {
	if logger == nil {
		cb.config.Logger = &core.NoOpLogger{}
		return
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		cb.config.Logger = cal.WithComponent("framework/resilience")
	} else {
		cb.config.Logger = logger
	}
}

// CanExecute reports whether a call should be attempted right now. In
// the open state it opportunistically transitions to half-open once
// SleepWindow has elapsed; in half-open it admits at most
// HalfOpenRequests probes per recovery attempt.
func (cb *CircuitBreaker) CanExecute() bool {
	switch cb.state.Load().(CircuitState) {
	case StateClosed:
		return true

	case StateOpen:
		changedAt := cb.stateChangedAt.Load().(time.Time)
		if time.Since(changedAt) <= cb.config.SleepWindow {
			return false
		}
		cb.mu.Lock()
		if cb.state.Load().(CircuitState) == StateOpen {
			cb.transitionLocked(StateHalfOpen)
		}
		cb.mu.Unlock()
		return cb.CanExecute()

	case StateHalfOpen:
		for {
			current := cb.halfOpenTotal.Load()
			if int(current) >= cb.config.HalfOpenRequests {
				return false
			}
			if cb.halfOpenTotal.CompareAndSwap(current, current+1) {
				return true
			}
		}

	default:
		return false
	}
}

// RecordSuccess records a successful call and re-evaluates state.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.window.recordSuccess()
	cb.config.Metrics.RecordSuccess(cb.config.Name)
	if cb.state.Load().(CircuitState) == StateHalfOpen {
		cb.halfOpenSuccesses.Add(1)
	}
	cb.evaluateState()
}

// RecordFailure records a failed call and re-evaluates state. Callers
// are expected to have already filtered out errors that shouldn't count
// against the breaker (client errors, cancellation); base.go's
// ExecuteWithRetry treats 4xx responses other than 429 as a non-erroring outcome for
// exactly this reason.
func (cb *CircuitBreaker) RecordFailure() {
	cb.window.recordFailure()
	cb.config.Metrics.RecordFailure(cb.config.Name, "upstream_error")
	if cb.state.Load().(CircuitState) == StateHalfOpen {
		cb.halfOpenFailures.Add(1)
	}
	cb.evaluateState()
}

// GetState returns the breaker's current state as a string.
func (cb *CircuitBreaker) GetState() string {
	return cb.state.Load().(CircuitState).String()
}

func (cb *CircuitBreaker) evaluateState() {
	switch cb.state.Load().(CircuitState) {
	case StateClosed:
		errorRate := cb.window.errorRate()
		total := cb.window.total()
		if cb.config.VolumeThreshold > 0 && total >= uint64(cb.config.VolumeThreshold) && errorRate >= cb.config.ErrorThreshold {
			cb.mu.Lock()
			cb.transitionLocked(StateOpen)
			cb.mu.Unlock()
		}

	case StateHalfOpen:
		successes := cb.halfOpenSuccesses.Load()
		failures := cb.halfOpenFailures.Load()
		total := successes + failures
		if total < int32(cb.config.HalfOpenRequests) {
			return
		}

		successRate := float64(successes) / float64(total)
		cb.mu.Lock()
		if successRate >= cb.config.SuccessThreshold {
			cb.transitionLocked(StateClosed)
		} else {
			cb.transitionLocked(StateOpen)
			// Back off a little longer each time recovery fails.
			cb.config.SleepWindow = time.Duration(float64(cb.config.SleepWindow) * 1.5)
			if cb.config.SleepWindow > 5*time.Minute {
				cb.config.SleepWindow = 5 * time.Minute
			}
		}
		cb.mu.Unlock()
	}
}

// transitionLocked changes state; callers must hold cb.mu.
func (cb *CircuitBreaker) transitionLocked(newState CircuitState) {
	oldState := cb.state.Load().(CircuitState)
	if oldState == newState {
		return
	}

	cb.state.Store(newState)
	cb.stateChangedAt.Store(time.Now())

	if newState == StateHalfOpen {
		cb.halfOpenTotal.Store(0)
		cb.halfOpenSuccesses.Store(0)
		cb.halfOpenFailures.Store(0)
	}

	cb.config.Logger.Info("circuit breaker state changed", map[string]interface{}{
		"name": cb.config.Name,
		"from": oldState.String(),
		"to":   newState.String(),
	})
	cb.config.Metrics.RecordStateChange(cb.config.Name, oldState.String(), newState.String())
}

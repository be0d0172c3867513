package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/resilience"
)

// BaseClient provides common functionality for all AI providers
type BaseClient struct {
	// HTTP client with timeout
	HTTPClient *http.Client

	// Logger for debugging
	Logger core.Logger

	// Breaker trips once the provider's error rate crosses the
	// framework's default threshold, so a dead endpoint fails fast
	// instead of burning the retry budget on every call.
	Breaker *resilience.CircuitBreaker

	// Retry configuration
	MaxRetries int
	RetryDelay time.Duration

	// Default configuration
	DefaultModel        string
	DefaultTemperature  float32
	DefaultMaxTokens    int
	DefaultSystemPrompt string
}

// NewBaseClient creates a new base client with defaults. name identifies
// the provider's circuit breaker (e.g. "openai", "gemini") in logs and
// metrics.
func NewBaseClient(name string, timeout time.Duration, logger core.Logger) *BaseClient {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	breaker, err := resilience.CreateCircuitBreaker(name, resilience.ResilienceDependencies{Logger: logger})
	if err != nil {
		// DefaultConfig() always validates, so this path is unreachable
		// in practice; fall back rather than leave Breaker nil.
		breaker, _ = resilience.NewCircuitBreaker(resilience.DefaultConfig())
	}

	return &BaseClient{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Logger:             logger,
		Breaker:            breaker,
		MaxRetries:         3,
		RetryDelay:         time.Second,
		DefaultTemperature: 0.7,
		DefaultMaxTokens:   1000,
	}
}

// ExecuteWithRetry performs an HTTP request with exponential backoff retry,
// short-circuiting through the provider's breaker so a sustained outage
// stops generating traffic instead of retrying every call to exhaustion.
func (b *BaseClient) ExecuteWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response

	retryCfg := &resilience.RetryConfig{
		MaxAttempts:   b.MaxRetries + 1,
		InitialDelay:  b.RetryDelay,
		MaxDelay:      b.RetryDelay * time.Duration(1<<uint(minInt(b.MaxRetries, 16))),
		BackoffFactor: 2.0,
		JitterEnabled: false,
	}

	err := resilience.RetryWithCircuitBreaker(ctx, retryCfg, b.Breaker, func() error {
		reqClone := req.Clone(ctx)

		r, doErr := b.HTTPClient.Do(reqClone)
		if doErr != nil {
			return doErr
		}

		if r.StatusCode < 400 {
			resp = r
			return nil
		}
		if r.StatusCode >= 400 && r.StatusCode < 500 && r.StatusCode != 429 {
			// Non-retryable client error: hand it back as a success so
			// the breaker doesn't trip on malformed requests, and let
			// the caller inspect the status code itself.
			resp = r
			return nil
		}

		r.Body.Close()
		return fmt.Errorf("server error: status %d", r.StatusCode)
	})
	if err != nil {
		if err == core.ErrCircuitBreakerOpen {
			b.Logger.Warn("circuit breaker open, request skipped", map[string]interface{}{})
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// LogError logs an error with provider context
func (b *BaseClient) LogError(provider string, err error) {
	b.Logger.Error("Provider error", map[string]interface{}{
		"provider": provider,
		"error":    err.Error(),
	})
}

// ApplyDefaults applies default values to options if not set
func (b *BaseClient) ApplyDefaults(options *core.AIOptions) *core.AIOptions {
	if options == nil {
		options = &core.AIOptions{}
	}

	// Apply defaults for unset values
	if options.Model == "" && b.DefaultModel != "" {
		options.Model = b.DefaultModel
	}

	if options.Temperature == 0 {
		options.Temperature = b.DefaultTemperature
	}

	if options.MaxTokens == 0 {
		options.MaxTokens = b.DefaultMaxTokens
	}

	if options.SystemPrompt == "" && b.DefaultSystemPrompt != "" {
		options.SystemPrompt = b.DefaultSystemPrompt
	}

	return options
}

// isRetryableError determines if an error is retryable
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	errStr := err.Error()

	// Check for specific HTTP status codes that are retryable
	if strings.Contains(errStr, "(429)") || // Rate limit
		strings.Contains(errStr, "(500)") || // Internal server error
		strings.Contains(errStr, "(502)") || // Bad gateway
		strings.Contains(errStr, "(503)") || // Service unavailable
		strings.Contains(errStr, "(504)") { // Gateway timeout
		return true
	}

	// Check for context timeout/deadline
	if err == context.DeadlineExceeded {
		return true
	}

	return false
}

// HandleError processes API errors consistently
func (b *BaseClient) HandleError(statusCode int, body []byte, provider string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s API error: invalid or missing API key", provider)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s API error: rate limit exceeded", provider)
	case http.StatusBadRequest:
		return fmt.Errorf("%s API error: invalid request - %s", provider, string(body))
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%s API error: service temporarily unavailable (status %d)", provider, statusCode)
	default:
		return fmt.Errorf("%s API error (status %d): %s", provider, statusCode, string(body))
	}
}

// LogRequest logs outgoing API requests
func (b *BaseClient) LogRequest(provider, model, prompt string) {
	b.Logger.Debug("AI request", map[string]interface{}{
		"provider":      provider,
		"model":         model,
		"prompt_length": len(prompt),
	})
}

// LogResponse logs API responses
func (b *BaseClient) LogResponse(provider, model string, tokens core.TokenUsage, duration time.Duration) {
	b.Logger.Debug("AI response", map[string]interface{}{
		"provider":          provider,
		"model":             model,
		"prompt_tokens":     tokens.PromptTokens,
		"completion_tokens": tokens.CompletionTokens,
		"total_tokens":      tokens.TotalTokens,
		"duration":          duration,
	})
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	// Optional: custom retry predicate
	ShouldRetry func(resp *http.Response, err error) bool
}

// DefaultRetryConfig returns sensible retry defaults
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelay: time.Second,
		ShouldRetry: func(resp *http.Response, err error) bool {
			// Retry on network errors
			if err != nil {
				return true
			}
			// Retry on 5xx errors
			if resp != nil && resp.StatusCode >= 500 {
				return true
			}
			// Retry on rate limit (with backoff)
			if resp != nil && resp.StatusCode == 429 {
				return true
			}
			return false
		},
	}
}

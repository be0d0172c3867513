// Package gemini implements core.AIClient against the Gemini API using
// the official google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/resilience"
)

// Client implements core.AIClient for Gemini models.
type Client struct {
	genaiClient  *genai.Client
	logger       core.Logger
	defaultModel string
	maxRetries   int
	retryDelay   time.Duration
	breaker      *resilience.CircuitBreaker
}

// NewClient builds a Gemini client backed by the Gemini Developer API.
// Plan/code/verify prompts run at temperature 0 by default.
func NewClient(ctx context.Context, apiKey string, logger core.Logger) (*Client, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	breaker, err := resilience.CreateCircuitBreaker("gemini", resilience.ResilienceDependencies{Logger: logger})
	if err != nil {
		breaker, _ = resilience.NewCircuitBreaker(resilience.DefaultConfig())
	}
	return &Client{
		genaiClient:  c,
		logger:       logger,
		defaultModel: "gemini-2.0-flash",
		maxRetries:   3,
		retryDelay:   time.Second,
		breaker:      breaker,
	}, nil
}

func applyDefaults(c *Client, options *core.AIOptions) *core.AIOptions {
	if options == nil {
		options = &core.AIOptions{}
	}
	if options.Model == "" {
		options.Model = c.defaultModel
	}
	if options.MaxTokens == 0 {
		options.MaxTokens = 2000
	}
	return options
}

// GenerateResponse invokes the Gemini model and returns its first candidate's text.
func (c *Client) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	options = applyDefaults(c, options)
	c.logger.Debug("AI request", map[string]interface{}{
		"provider":      "gemini",
		"model":         options.Model,
		"prompt_length": len(prompt),
	})
	start := time.Now()

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(options.Temperature),
		MaxOutputTokens: int32(options.MaxTokens),
	}
	if options.SystemPrompt != "" {
		config.SystemInstruction = genai.NewContentFromText(options.SystemPrompt, genai.RoleUser)
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if !c.breaker.CanExecute() {
			lastErr = core.ErrCircuitBreakerOpen
			break
		}

		resp, err := c.genaiClient.Models.GenerateContent(ctx, options.Model, contents, config)
		if err == nil {
			c.breaker.RecordSuccess()
			return c.toAIResponse(resp, options.Model, start), nil
		}
		c.breaker.RecordFailure()
		lastErr = err
		if !isRetryable(err) || attempt == c.maxRetries {
			break
		}
		delay := c.retryDelay * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.logger.Error("Provider error", map[string]interface{}{
		"provider": "gemini",
		"error":    lastErr.Error(),
	})
	return nil, fmt.Errorf("gemini: generate content: %w", lastErr)
}

func (c *Client) toAIResponse(resp *genai.GenerateContentResponse, model string, start time.Time) *core.AIResponse {
	text := resp.Text()
	usage := core.TokenUsage{}
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	c.logger.Debug("AI response", map[string]interface{}{
		"provider":     "gemini",
		"model":        model,
		"total_tokens": usage.TotalTokens,
		"duration":     time.Since(start),
	})
	return &core.AIResponse{
		Content:  text,
		Model:    model,
		Provider: "gemini",
		Usage:    usage,
	}
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, keyword := range []string{"429", "500", "502", "503", "504", "deadline", "unavailable"} {
		if strings.Contains(msg, keyword) {
			return true
		}
	}
	return false
}

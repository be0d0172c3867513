// Package ai provides the text-to-vector embedding contract shared by the
// code cache and DOM cache vector stores, plus the concrete AI provider
// clients under ai/providers.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/autoweb/agent/core"
)

// EmbeddingClient turns text into dense vectors. Dimension is stable per
// model and probed lazily by the vector store base (see vectorstore package).
type EmbeddingClient interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// openAIEmbeddingClient calls an OpenAI-compatible /embeddings endpoint.
type openAIEmbeddingClient struct {
	httpClient *http.Client
	logger     core.Logger
	apiKey     string
	baseURL    string
	model      string
	maxRetries int
	retryDelay time.Duration

	dimMu sync.RWMutex
	dim   int
}

// NewOpenAIEmbeddingClient builds an embedding client against an
// OpenAI-compatible endpoint. model defaults to "text-embedding-3-small".
func NewOpenAIEmbeddingClient(apiKey, baseURL, model string, logger core.Logger) EmbeddingClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &openAIEmbeddingClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *openAIEmbeddingClient) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("embedding client: API key not configured")
	}
	reqBody := embeddingRequest{Model: c.model, Input: texts}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("build embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if resp.StatusCode == http.StatusOK {
				var parsed embeddingResponse
				if err := json.Unmarshal(body, &parsed); err != nil {
					return nil, fmt.Errorf("parse embedding response: %w", err)
				}
				vectors := make([][]float32, len(parsed.Data))
				for _, d := range parsed.Data {
					vectors[d.Index] = d.Embedding
				}
				if len(vectors) > 0 {
					c.dimMu.Lock()
					c.dim = len(vectors[0])
					c.dimMu.Unlock()
				}
				return vectors, nil
			} else if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return nil, fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, string(body))
			} else {
				lastErr = fmt.Errorf("embedding API error (status %d): %s", resp.StatusCode, string(body))
			}
		}

		if attempt < c.maxRetries {
			delay := c.retryDelay * time.Duration(1<<uint(attempt))
			c.logger.Debug("retrying embedding request", map[string]interface{}{
				"attempt": attempt + 1,
				"delay":   delay,
				"error":   lastErr,
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("embedding request failed after %d retries: %w", c.maxRetries, lastErr)
}

// EmbedQuery embeds a single string.
func (c *openAIEmbeddingClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding client: empty response")
	}
	return vectors[0], nil
}

// EmbedDocuments embeds a batch of strings in one request.
func (c *openAIEmbeddingClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return c.embed(ctx, texts)
}

// Dimension returns the last observed embedding dimension, or 0 if no
// embedding has been produced yet. Callers probe it with a sentinel string.
func (c *openAIEmbeddingClient) Dimension() int {
	c.dimMu.RLock()
	defer c.dimMu.RUnlock()
	return c.dim
}

var (
	singletonOnce   sync.Once
	singletonClient EmbeddingClient
)

// SharedEmbeddingClient returns a process-wide cached embedding client,
// constructing it on first use via factory. Subsequent calls ignore factory
// and return the cached instance — mirrors the single-instance-per-process
// embedding model used throughout the cache subsystem.
func SharedEmbeddingClient(factory func() EmbeddingClient) EmbeddingClient {
	singletonOnce.Do(func() {
		singletonClient = factory()
	})
	return singletonClient
}

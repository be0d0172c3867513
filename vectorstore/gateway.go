// Package vectorstore wraps LanceDB behind the typed contract the cache
// and knowledge-base subsystems need: connect-with-retry, hybrid multi-field
// search, insert+flush, and TTL filtering.
package vectorstore

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lancedb/lancedb-go/pkg/contracts"
	"github.com/lancedb/lancedb-go/pkg/lancedb"

	"github.com/autoweb/agent/core"
)

// RetryConfig controls connect(uri)'s exponential backoff.
type RetryConfig struct {
	BaseDelay   time.Duration
	Factor      float64
	MaxAttempts int
}

// DefaultRetryConfig matches the (0.3s, 3x, 3 attempts) backoff used
// throughout the cache subsystem's connection logic.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:   300 * time.Millisecond,
		Factor:      3,
		MaxAttempts: 3,
	}
}

// Gateway is a connected handle to the backing vector store, scoped to one
// on-disk database directory. Collections (tables) are opened lazily by
// name through Collection.
type Gateway struct {
	conn   contracts.IConnection
	logger core.Logger
	retry  RetryConfig
}

// Connect dials the LanceDB database at uri (a filesystem directory),
// retrying transient failures with exponential backoff. Schema, missing
// field, dimension, and param errors are never retried — they won't
// resolve themselves on a second attempt.
func Connect(ctx context.Context, uri string, logger core.Logger, retry RetryConfig) (*Gateway, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	var lastErr error
	for attempt := 0; attempt < retry.MaxAttempts; attempt++ {
		conn, err := lancedb.Connect(ctx, uri, nil)
		if err == nil {
			return &Gateway{conn: conn, logger: logger, retry: retry}, nil
		}
		lastErr = err

		if !classifyConnectError(err) {
			return nil, fmt.Errorf("vectorstore: non-retryable connect error: %w", err)
		}

		if attempt == retry.MaxAttempts-1 {
			break
		}
		delay := time.Duration(float64(retry.BaseDelay) * math.Pow(retry.Factor, float64(attempt)))
		logger.Debug("retrying vector store connect", map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
			"error":   err.Error(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("vectorstore: connect failed after %d attempts: %w", retry.MaxAttempts, lastErr)
}

// Close releases the underlying connection.
func (g *Gateway) Close() error {
	if g.conn == nil {
		return nil
	}
	return g.conn.Close()
}

// Conn exposes the raw connection for collection-level schema management.
func (g *Gateway) Conn() contracts.IConnection {
	return g.conn
}

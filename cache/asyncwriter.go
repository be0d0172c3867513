package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/autoweb/agent/core"
)

// AsyncWriter is the single-worker executor every cache manager's writes
// go through, so submission order is preserved even though the caller
// never blocks on the insert+flush round trip. Mirrors the same
// ThreadPoolExecutor(max_workers=1) shape kb.Writer uses for KB ingestion.
type AsyncWriter struct {
	name   string
	logger core.Logger
	jobs   chan func() error
	done   chan struct{}
}

// NewAsyncWriter starts the worker goroutine immediately.
func NewAsyncWriter(name string, logger core.Logger) *AsyncWriter {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	w := &AsyncWriter{
		name:   name,
		logger: logger,
		jobs:   make(chan func() error, 64),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *AsyncWriter) run() {
	defer close(w.done)
	for job := range w.jobs {
		if err := job(); err != nil {
			w.logger.Warn(fmt.Sprintf("%s: async write failed", w.name), map[string]interface{}{"error": err.Error()})
		}
	}
}

// Submit enqueues job to run on the worker goroutine. Never blocks the
// caller beyond the channel buffer filling up.
func (w *AsyncWriter) Submit(job func() error) {
	w.jobs <- job
}

// Shutdown closes the queue and waits up to timeout for the worker to
// drain whatever was already submitted.
func (w *AsyncWriter) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	close(w.jobs)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: shutdown timed out after %s", w.name, timeout)
	}
}

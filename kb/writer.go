package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/autoweb/agent/core"
)

// flushThreshold is the buffer size that triggers an automatic flush.
const flushThreshold = 10

// textKeys are tried in order when a dict-shaped item has no free-text
// field named exactly "text" — the first present string value wins.
var textKeys = []string{"text", "content", "page_content", "description", "summary"}

type writerOp struct {
	kind string // "add", "flush", "shutdown"
	item interface{}
	done chan error
}

// Writer is the Knowledge-Base ingestion singleton: a 1-worker executor
// draining a buffer, so every LLM-facing document write is serialized
// through a single goroutine regardless of how many nodes call Add
// concurrently.
type Writer struct {
	store    *Store
	registry *FieldRegistry
	postgres *PostgresSink
	localDir string
	logger   core.Logger

	ops  chan writerOp
	done chan struct{}
}

// NewWriter starts the worker goroutine. postgres may be nil (sink
// disabled); localDir may be empty (no local mirror).
func NewWriter(store *Store, registry *FieldRegistry, postgres *PostgresSink, localDir string, logger core.Logger) *Writer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	w := &Writer{
		store:    store,
		registry: registry,
		postgres: postgres,
		localDir: localDir,
		logger:   logger,
		ops:      make(chan writerOp, 64),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Add accepts a string, a map[string]interface{}, a []map[string]interface{},
// or a []interface{} of either, converts it to one or more Documents, and
// enqueues them on the worker. Blocks until the worker has buffered (not
// necessarily flushed) the item.
func (w *Writer) Add(ctx context.Context, item interface{}) error {
	return w.submit(ctx, writerOp{kind: "add", item: item})
}

// Flush forces an immediate buffer drain regardless of size.
func (w *Writer) Flush(ctx context.Context) error {
	return w.submit(ctx, writerOp{kind: "flush"})
}

// Shutdown flushes whatever remains and stops the worker. Blocks up to
// timeout; on timeout the worker keeps draining in the background but the
// call returns an error so the caller can log a noisy shutdown.
func (w *Writer) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := w.submit(ctx, writerOp{kind: "shutdown"}); err != nil {
		return err
	}
	close(w.ops)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("kb: writer shutdown timed out after %s", timeout)
	}
}

func (w *Writer) submit(ctx context.Context, op writerOp) error {
	op.done = make(chan error, 1)
	select {
	case w.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-op.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)

	var buffer []Document
	for op := range w.ops {
		switch op.kind {
		case "add":
			docs, err := convertItem(op.item)
			if err != nil {
				op.done <- err
				continue
			}
			if err := w.registerDynamicFields(docs); err != nil {
				op.done <- err
				continue
			}
			buffer = append(buffer, docs...)
			op.done <- nil
			if len(buffer) >= flushThreshold {
				if err := w.drain(buffer); err != nil {
					w.logger.Error("kb: auto-flush failed", map[string]interface{}{"error": err.Error()})
				}
				buffer = nil
			}
		case "flush":
			err := w.drain(buffer)
			buffer = nil
			op.done <- err
		case "shutdown":
			err := w.drain(buffer)
			buffer = nil
			op.done <- err
		}
	}
}

// registerDynamicFields updates the field registry before the documents
// are persisted, so query-time prompts always see the schema of rows
// that are about to become visible.
func (w *Writer) registerDynamicFields(docs []Document) error {
	if w.registry == nil {
		return nil
	}
	for _, d := range docs {
		for name, v := range d.Dynamic {
			kind := FieldKindString
			if _, isNum := v.(float64); isNum {
				kind = FieldKindNumber
			}
			if err := w.registry.Register(context.Background(), name, kind); err != nil {
				return fmt.Errorf("kb: register field %s: %w", name, err)
			}
		}
	}
	return nil
}

func (w *Writer) drain(buffer []Document) error {
	if len(buffer) == 0 {
		return nil
	}
	ctx := context.Background()
	if w.localDir != "" {
		if _, err := SaveToLocalFile(buffer, w.localDir); err != nil {
			w.logger.Warn("kb: local file mirror failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := w.store.InsertBatch(ctx, buffer); err != nil {
		return err
	}
	if w.postgres != nil {
		if err := w.postgres.Insert(ctx, buffer); err != nil {
			w.logger.Warn("kb: postgres sink insert failed", map[string]interface{}{"error": err.Error()})
		}
	}
	w.logger.Info("kb: flushed batch", map[string]interface{}{"count": len(buffer)})
	return nil
}

// convertItem normalizes any accepted input shape into one or more
// Documents, applying text extraction, fixed-metadata defaulting, dynamic
// field type inference, and the batch consistency check.
func convertItem(item interface{}) ([]Document, error) {
	switch v := item.(type) {
	case string:
		return []Document{{Text: v, Metadata: defaultMetadata(nil)}}, nil
	case map[string]interface{}:
		return convertMaps([]map[string]interface{}{v})
	case []map[string]interface{}:
		return convertMaps(v)
	case []interface{}:
		maps := make([]map[string]interface{}, 0, len(v))
		for _, elem := range v {
			m, ok := elem.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("kb: unsupported list element type %T", elem)
			}
			maps = append(maps, m)
		}
		return convertMaps(maps)
	default:
		return nil, fmt.Errorf("kb: unsupported item type %T", item)
	}
}

func convertMaps(maps []map[string]interface{}) ([]Document, error) {
	type pending struct {
		text     string
		metadata map[string]string
		rawDyn   map[string]string
	}

	pendings := make([]pending, len(maps))
	fieldValues := map[string][]inferredValue{}
	fieldOwners := map[string][]int{}

	for i, m := range maps {
		text, usedKey := extractText(m)
		pendings[i].text = text
		pendings[i].metadata = defaultMetadata(m)
		pendings[i].rawDyn = map[string]string{}

		for k, raw := range m {
			if k == usedKey || isFixedField(k) {
				continue
			}
			s, ok := scalarToString(raw)
			if !ok {
				continue
			}
			iv, keep := inferValue(s)
			if !keep {
				continue
			}
			fieldValues[k] = append(fieldValues[k], iv)
			fieldOwners[k] = append(fieldOwners[k], i)
		}
	}

	finalized := map[string][]inferredValue{}
	for name, values := range fieldValues {
		finalized[name] = applyBatchConsistency(values)
	}

	docs := make([]Document, len(maps))
	for i := range maps {
		dyn := map[string]interface{}{}
		for name, owners := range fieldOwners {
			values := finalized[name]
			for idx, ownerDoc := range owners {
				if ownerDoc != i {
					continue
				}
				v := values[idx]
				if v.isNumber {
					dyn[name] = v.asFloat
				} else {
					dyn[name] = v.asString
				}
			}
		}
		docs[i] = Document{Text: pendings[i].text, Metadata: pendings[i].metadata, Dynamic: dyn}
	}
	return docs, nil
}

func extractText(m map[string]interface{}) (text string, usedKey string) {
	for _, key := range textKeys {
		if raw, ok := m[key]; ok {
			if s, ok := raw.(string); ok && s != "" {
				return s, key
			}
		}
	}
	serialized, _ := json.Marshal(m)
	return string(serialized), ""
}

func defaultMetadata(m map[string]interface{}) map[string]string {
	meta := map[string]string{
		"source":     "",
		"title":      "",
		"category":   "",
		"data_type":  "",
		"platform":   "",
		"crawled_at": time.Now().UTC().Format(time.RFC3339),
	}
	for _, f := range FixedFields {
		if raw, ok := m[f]; ok {
			if s, ok := scalarToString(raw); ok {
				meta[f] = s
			}
		}
	}
	return meta
}

func isFixedField(name string) bool {
	for _, f := range FixedFields {
		if f == name {
			return true
		}
	}
	return false
}

func scalarToString(raw interface{}) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

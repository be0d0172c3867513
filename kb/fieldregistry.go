// Package kb implements the Knowledge-Base writer: a buffered, async
// single-worker ingestion pipeline with type inference over dynamic
// fields, a pluggable field registry, and Postgres/local-file sinks.
package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// FixedFields are always present on every ingested document, regardless
// of what dynamic fields the source data carries.
var FixedFields = []string{"source", "title", "category", "data_type", "platform", "crawled_at"}

// FieldKind is the promoted type of a dynamic field, tracked across every
// value ever registered for it. Number wins over string: once a field has
// been seen holding a parseable number, it stays numeric even if a later
// value fails to parse (that value is simply dropped upstream).
type FieldKind string

const (
	FieldKindString FieldKind = "string"
	FieldKindNumber FieldKind = "number"
)

// FieldStat is what the registry tracks per dynamic field name.
type FieldStat struct {
	Name       string    `json:"name"`
	FirstSeen  time.Time `json:"first_seen"`
	Count      int       `json:"count"`
	Kind       FieldKind `json:"kind"`
}

// FieldRegistryBackend persists FieldStat entries. JSON and Redis
// implementations are provided; either is swappable behind the
// FieldRegistry that wraps one.
type FieldRegistryBackend interface {
	Load(ctx context.Context) (map[string]FieldStat, error)
	Save(ctx context.Context, stats map[string]FieldStat) error
}

// FieldRegistry registers every dynamic field name seen across KB
// inserts and exposes a prompt-friendly formatter so an LLM-driven query
// analyzer can see the full set of filterable fields, not just whatever
// a sampled page of rows happens to contain.
type FieldRegistry struct {
	backend FieldRegistryBackend

	mu    sync.Mutex
	stats map[string]FieldStat
}

// NewFieldRegistry loads existing stats from backend (if any) and
// returns a ready-to-use registry.
func NewFieldRegistry(ctx context.Context, backend FieldRegistryBackend) (*FieldRegistry, error) {
	stats, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("kb: load field registry: %w", err)
	}
	if stats == nil {
		stats = map[string]FieldStat{}
	}
	return &FieldRegistry{backend: backend, stats: stats}, nil
}

// Register records one observed value for a dynamic field, promoting its
// kind to number if the value is numeric — a field never demotes back to
// string once it has been seen as a number.
func (r *FieldRegistry) Register(ctx context.Context, name string, kind FieldKind) error {
	r.mu.Lock()
	stat, ok := r.stats[name]
	if !ok {
		stat = FieldStat{Name: name, FirstSeen: time.Now(), Kind: kind}
	}
	stat.Count++
	if kind == FieldKindNumber {
		stat.Kind = FieldKindNumber
	}
	r.stats[name] = stat
	snapshot := make(map[string]FieldStat, len(r.stats))
	for k, v := range r.stats {
		snapshot[k] = v
	}
	r.mu.Unlock()

	return r.backend.Save(ctx, snapshot)
}

// FormatForPrompt renders fixed fields plus dynamic fields ranked by
// occurrence count, each annotated with its promoted type — the shape a
// query-analysis prompt needs to ground LLM-generated filter expressions
// in fields that actually exist.
func (r *FieldRegistry) FormatForPrompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ranked := make([]FieldStat, 0, len(r.stats))
	for _, s := range r.stats {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})

	var b strings.Builder
	b.WriteString("Fixed fields: ")
	b.WriteString(strings.Join(FixedFields, ", "))
	b.WriteString("\n")
	if len(ranked) == 0 {
		b.WriteString("Dynamic fields: (none seen yet)")
		return b.String()
	}
	b.WriteString("Dynamic fields:\n")
	for _, s := range ranked {
		fmt.Fprintf(&b, "  - %s (%s, seen %d times)\n", s.Name, s.Kind, s.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// jsonRegistryBackend persists field stats as a single JSON file.
type jsonRegistryBackend struct {
	mu   sync.Mutex
	path string
}

// NewJSONRegistryBackend stores field registry state at path.
func NewJSONRegistryBackend(path string) FieldRegistryBackend {
	return &jsonRegistryBackend{path: path}
}

func (b *jsonRegistryBackend) Load(ctx context.Context) (map[string]FieldStat, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return map[string]FieldStat{}, nil
	}
	if err != nil {
		return nil, err
	}
	var stats map[string]FieldStat
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (b *jsonRegistryBackend) Save(ctx context.Context, stats map[string]FieldStat) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0644)
}

// redisRegistryBackend persists field stats as a single hash key so the
// registry survives process restarts in a multi-instance deployment.
type redisRegistryBackend struct {
	client *redis.Client
	key    string
}

// NewRedisRegistryBackend stores field registry state under key in redis.
func NewRedisRegistryBackend(client *redis.Client, key string) FieldRegistryBackend {
	return &redisRegistryBackend{client: client, key: key}
}

func (b *redisRegistryBackend) Load(ctx context.Context) (map[string]FieldStat, error) {
	raw, err := b.client.Get(ctx, b.key).Bytes()
	if err == redis.Nil {
		return map[string]FieldStat{}, nil
	}
	if err != nil {
		return nil, err
	}
	var stats map[string]FieldStat
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (b *redisRegistryBackend) Save(ctx context.Context, stats map[string]FieldStat) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.key, data, 0).Err()
}

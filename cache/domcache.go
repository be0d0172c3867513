package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autoweb/agent/state"
	"github.com/autoweb/agent/vectorstore"
)

const (
	maxDOMCompactedLen = 12000

	defaultDOMSimilarityThreshold = 0.90
	defaultTaskMinSimilarity      = 0.80
	defaultTTLHours               = 7 * 24
	defaultDOMTopK                = 5
)

var defaultDOMWeights = map[string]float64{
	"url_vector":  0.2,
	"dom_vector":  0.7,
	"task_vector": 0.1,
}

var integerRunRe = regexp.MustCompile(`[0-9]+`)
var whitespaceRe = regexp.MustCompile(`\s+`)

// CompactDOM collapses whitespace and replaces integer runs with "0" so the
// skeleton stays stable across session/pagination IDs, then truncates to
// the embedding input's max length.
func CompactDOM(raw string) string {
	s := whitespaceRe.ReplaceAllString(raw, " ")
	s = integerRunRe.ReplaceAllString(s, "0")
	s = strings.TrimSpace(s)
	if len(s) > maxDOMCompactedLen {
		s = s[:maxDOMCompactedLen]
	}
	return s
}

// DOMHit is a DOM Cache search result that has passed both the similarity
// threshold and the hard task-intent gate.
type DOMHit struct {
	ID                 string
	Score              float64
	LocatorSuggestions []state.StrategyEntry
	URLPattern         string
	DOMHash            string
	TaskIntent         string
}

// DOMCache stores (url, DOM skeleton, task intent) -> locator strategy
// list, with a TTL and a hard task-intent gate: DOM similarity alone
// routinely matches the wrong page-level intent (list page vs. detail
// page), so a hit is only trusted if its task_intent also matches.
type DOMCache struct {
	*Base

	SimilarityThreshold float64
	TaskMinSimilarity   float64
	TTLHours            int
	TopK                int
	Weights             map[string]float64

	auditMu   sync.Mutex
	auditPath string
}

// DOMCacheFields are the three vectors every DOM cache row carries.
var DOMCacheFields = []string{"url_vector", "dom_vector", "task_vector"}

// DOMCacheScalars are the scalar payload columns, including the TTL field.
var DOMCacheScalars = []string{
	"url_pattern", "dom_hash", "task_intent", "locator_suggestions",
	"cache_id", "expire_at", "created_at",
}

// NewDOMCache wraps a Base configured with the DOM cache's schema.
// auditPath may be empty to disable failure auditing.
func NewDOMCache(base *Base, auditPath string) *DOMCache {
	return &DOMCache{
		Base:                base,
		SimilarityThreshold: defaultDOMSimilarityThreshold,
		TaskMinSimilarity:   defaultTaskMinSimilarity,
		TTLHours:            defaultTTLHours,
		TopK:                defaultDOMTopK,
		Weights:             defaultDOMWeights,
		auditPath:           auditPath,
	}
}

// RecordFailure appends a failure event to the shared cache-failure audit
// log for a DOM cache hit whose replayed strategies were followed by a
// failed step. Never deletes the cache row — that stays a human action.
func (d *DOMCache) RecordFailure(cacheID, failureType, reason string) error {
	if d.auditPath == "" {
		return nil
	}
	d.auditMu.Lock()
	defer d.auditMu.Unlock()

	f, err := os.OpenFile(d.auditPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("domcache: open audit log: %w", err)
	}
	defer f.Close()

	rec := auditRecord{
		CacheID:   cacheID,
		Type:      failureType,
		Timestamp: time.Now().Unix(),
		Reason:    reason,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("domcache: marshal audit record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("domcache: write audit record: %w", err)
	}
	return nil
}

// Search embeds url/dom/task, runs a weighted hybrid search, drops expired
// rows, then applies the hard task-intent gate: it re-embeds the hit's
// stored task_intent and only keeps hits whose cosine similarity to the
// query task vector clears TaskMinSimilarity.
func (d *DOMCache) Search(ctx context.Context, rawURL, domSkeleton, taskIntent string, unmarshalLocators func(string) []state.StrategyEntry) ([]DOMHit, error) {
	urlPattern := NormalizeURL(rawURL)
	compacted := CompactDOM(domSkeleton)

	vectors, err := d.Embeddings.EmbedDocuments(ctx, []string{urlPattern, compacted, taskIntent})
	if err != nil {
		return nil, fmt.Errorf("domcache: embed query fields: %w", err)
	}
	taskVector := vectors[2]

	queries := []vectorstore.FieldQuery{
		{Field: "url_vector", Vector: vectors[0]},
		{Field: "dom_vector", Vector: vectors[1]},
		{Field: "task_vector", Vector: taskVector},
	}
	weights := vectorstore.NormalizeWeights(d.Weights, defaultDOMWeights)

	topK := d.TopK
	if topK <= 0 {
		topK = defaultDOMTopK
	}
	hits, err := vectorstore.HybridSearch(ctx, d.collection, queries, weights, topK, "")
	if err != nil {
		return nil, fmt.Errorf("domcache: hybrid search: %w", err)
	}

	hits = vectorstore.FilterNotExpired(hits, "expire_at", time.Now())

	results := make([]DOMHit, 0, len(hits))
	for _, h := range hits {
		score := NormalizeSimilarity(h.Score)
		if score < d.SimilarityThreshold {
			continue
		}

		hitIntent := vectorstore.ReadHitStringField(h, "task_intent")
		intentVec, err := d.Embeddings.EmbedQuery(ctx, hitIntent)
		if err != nil {
			d.Logger.Warn("domcache: failed to re-embed task_intent for gate", map[string]interface{}{"error": err.Error()})
			continue
		}
		if cosineSimilarity(intentVec, taskVector) < d.TaskMinSimilarity {
			continue
		}

		var locators []state.StrategyEntry
		if unmarshalLocators != nil {
			locators = unmarshalLocators(vectorstore.ReadHitStringField(h, "locator_suggestions"))
		}

		results = append(results, DOMHit{
			ID:                 vectorstore.ReadHitStringField(h, "cache_id"),
			Score:              score,
			LocatorSuggestions: locators,
			URLPattern:         vectorstore.ReadHitStringField(h, "url_pattern"),
			DOMHash:            vectorstore.ReadHitStringField(h, "dom_hash"),
			TaskIntent:         hitIntent,
		})
	}
	return results, nil
}

// Save writes a new DOM cache entry asynchronously (the caller is expected
// to call this from the write-behind worker goroutine). Refuses to store
// an entry with no locator suggestions — there would be nothing useful to
// replay on a future hit.
func (d *DOMCache) Save(ctx context.Context, rawURL, domSkeleton, taskIntent string, locatorSuggestions []state.StrategyEntry, marshalLocators func([]state.StrategyEntry) string) error {
	if len(locatorSuggestions) == 0 {
		return nil
	}

	urlPattern := NormalizeURL(rawURL)
	compacted := CompactDOM(domSkeleton)

	vectors, err := d.Embeddings.EmbedDocuments(ctx, []string{urlPattern, compacted, taskIntent})
	if err != nil {
		return fmt.Errorf("domcache: embed save fields: %w", err)
	}

	id := uuid.NewString()
	now := time.Now()
	expireAt := now.Add(time.Duration(d.TTLHours) * time.Hour).Unix()

	locatorJSON := ""
	if marshalLocators != nil {
		locatorJSON = marshalLocators(locatorSuggestions)
	}

	row := vectorstore.Row{
		ID: id,
		Vectors: map[string][]float32{
			"url_vector":  vectors[0],
			"dom_vector":  vectors[1],
			"task_vector": vectors[2],
		},
		Scalars: map[string]string{
			"url_pattern":         urlPattern,
			"dom_hash":            domHashOf(compacted),
			"task_intent":         taskIntent,
			"locator_suggestions": locatorJSON,
			"cache_id":            id,
			"expire_at":           fmt.Sprintf("%d", expireAt),
			"created_at":          fmt.Sprintf("%d", now.Unix()),
		},
	}

	if err := vectorstore.InsertAndFlush(ctx, d.collection, row); err != nil {
		return fmt.Errorf("domcache: insert: %w", err)
	}
	return nil
}

// DOMHash fingerprints an already-compacted DOM skeleton. Exported so the
// Observer node can compute dom_hash itself (to decide whether analysis
// should re-run) using the exact same scheme Save uses internally.
func DOMHash(compacted string) string {
	return domHashOf(compacted)
}

// domHashOf fingerprints a compacted DOM skeleton so callers can cheaply
// detect whether the page changed without re-comparing full text.
func domHashOf(compacted string) string {
	sum := sha256.Sum256([]byte(compacted))
	return hex.EncodeToString(sum[:])[:16]
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

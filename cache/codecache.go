package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autoweb/agent/vectorstore"
)

const (
	maxGoalLen     = 2000
	maxLocatorLen  = 6400
	maxUserTaskLen = 6400
	maxCodeLen     = 16000

	defaultCodeSimilarityThreshold = 0.90
	defaultDuplicateThreshold      = 0.90
)

var defaultCodeWeights = map[string]float64{
	"goal_vector":      0.6,
	"locator_vector":   0.2,
	"user_task_vector": 0.1,
	"url_vector":       0.1,
}

var navigateOnlyRe = regexp.MustCompile(`navigate\(\s*["'][^"']*["']\s*\)`)

// CodeHit is a Code Cache search result, already scored and gated.
type CodeHit struct {
	ID            string
	Code          string
	Score         float64
	URLPattern    string
	Goal          string
	UserTask      string
	SuccessCount  int
}

// CodeCache stores (goal, locator summary, user task, URL) -> generated
// code, with hybrid retrieval and parameter-aware substitution so similar
// tasks reuse a cached program without another LLM call.
type CodeCache struct {
	*Base

	SimilarityThreshold float64
	DuplicateThreshold  float64
	Weights             map[string]float64

	auditMu   sync.Mutex
	auditPath string
}

// CodeCacheFields are the four vectors every code cache row carries.
var CodeCacheFields = []string{"goal_vector", "locator_vector", "user_task_vector", "url_vector"}

// CodeCacheScalars are the scalar payload columns (see spec §4.2).
var CodeCacheScalars = []string{
	"goal", "locator_info", "user_task", "url_pattern", "code",
	"cache_id", "dom_hash", "success_count", "fail_count",
	"created_at", "updated_at",
}

// NewCodeCache wraps a Base configured with the code cache's schema.
func NewCodeCache(base *Base, auditPath string) *CodeCache {
	return &CodeCache{
		Base:                 base,
		SimilarityThreshold:  defaultCodeSimilarityThreshold,
		DuplicateThreshold:   defaultDuplicateThreshold,
		Weights:              defaultCodeWeights,
		auditPath:            auditPath,
	}
}

// isPureNavigation reports whether code is just a navigate(url) call with
// no other meaningful content: short, few non-blank lines, and contains a
// navigate() call. These entries are never worth caching — there is no
// locator work to reuse.
func isPureNavigation(code string) bool {
	if len(code) > 200 {
		return false
	}
	lines := strings.Split(code, "\n")
	nonBlank := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonBlank++
		}
	}
	return nonBlank <= 3 && navigateOnlyRe.MatchString(code)
}

// Search embeds goal/locator/user_task/url in parallel, runs a hybrid
// search, and returns hits passing SimilarityThreshold.
func (c *CodeCache) Search(ctx context.Context, goal, locatorSummary, userTask, rawURL string, topK int) ([]CodeHit, error) {
	urlPattern := NormalizeURL(rawURL)

	vectors, err := c.Embeddings.EmbedDocuments(ctx, []string{goal, locatorSummary, userTask, urlPattern})
	if err != nil {
		return nil, fmt.Errorf("codecache: embed query fields: %w", err)
	}

	queries := []vectorstore.FieldQuery{
		{Field: "goal_vector", Vector: vectors[0]},
		{Field: "locator_vector", Vector: vectors[1]},
		{Field: "user_task_vector", Vector: vectors[2]},
		{Field: "url_vector", Vector: vectors[3]},
	}
	weights := vectorstore.NormalizeWeights(c.Weights, defaultCodeWeights)

	hits, err := vectorstore.HybridSearch(ctx, c.collection, queries, weights, topK, "")
	if err != nil {
		return nil, fmt.Errorf("codecache: hybrid search: %w", err)
	}

	results := make([]CodeHit, 0, len(hits))
	for _, h := range hits {
		score := NormalizeSimilarity(h.Score)
		if score < c.SimilarityThreshold {
			continue
		}
		results = append(results, CodeHit{
			ID:           vectorstore.ReadHitStringField(h, "cache_id"),
			Code:         vectorstore.ReadHitStringField(h, "code"),
			Score:        score,
			URLPattern:   vectorstore.ReadHitStringField(h, "url_pattern"),
			Goal:         vectorstore.ReadHitStringField(h, "goal"),
			UserTask:     vectorstore.ReadHitStringField(h, "user_task"),
		})
	}
	return results, nil
}

// Save embeds and inserts a new code cache entry, skipping pure-navigation
// snippets and near-duplicates of what's already stored.
func (c *CodeCache) Save(ctx context.Context, goal, locatorSummary, userTask, rawURL, code, domHash string) (skipped bool, err error) {
	if isPureNavigation(code) {
		return true, nil
	}
	if len(code) > maxCodeLen {
		c.Logger.Warn("code cache: entry exceeds max length", map[string]interface{}{
			"length": len(code),
			"max":    maxCodeLen,
		})
	}

	urlPattern := NormalizeURL(rawURL)

	dupHits, err := c.Search(ctx, goal, locatorSummary, userTask, rawURL, 1)
	if err != nil {
		return false, fmt.Errorf("codecache: dedup search: %w", err)
	}
	for _, h := range dupHits {
		if h.Score >= c.DuplicateThreshold {
			return true, nil
		}
	}

	vectors, err := c.Embeddings.EmbedDocuments(ctx, []string{
		truncate(goal, maxGoalLen),
		truncate(locatorSummary, maxLocatorLen),
		truncate(userTask, maxUserTaskLen),
		urlPattern,
	})
	if err != nil {
		return false, fmt.Errorf("codecache: embed save fields: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().Unix()
	row := vectorstore.Row{
		ID: id,
		Vectors: map[string][]float32{
			"goal_vector":      vectors[0],
			"locator_vector":   vectors[1],
			"user_task_vector": vectors[2],
			"url_vector":       vectors[3],
		},
		Scalars: map[string]string{
			"goal":          truncate(goal, maxGoalLen),
			"locator_info":  truncate(locatorSummary, maxLocatorLen),
			"user_task":     truncate(userTask, maxUserTaskLen),
			"url_pattern":   urlPattern,
			"code":          truncate(code, maxCodeLen),
			"cache_id":      id,
			"dom_hash":      domHash,
			"success_count": "0",
			"fail_count":    "0",
			"created_at":    fmt.Sprintf("%d", now),
			"updated_at":    fmt.Sprintf("%d", now),
		},
	}

	if err := vectorstore.InsertAndFlush(ctx, c.collection, row); err != nil {
		return false, fmt.Errorf("codecache: insert: %w", err)
	}
	return false, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// auditRecord is one JSONL line recording a cache entry's failure — never
// auto-deletes the entry; that's an explicit human action (Invalidate).
type auditRecord struct {
	CacheID   string `json:"cache_id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Reason    string `json:"reason"`
}

// RecordFailure appends a failure event to the audit log for a cache hit
// that produced code which then failed execution or verification.
func (c *CodeCache) RecordFailure(cacheID, failureType, reason string) error {
	if c.auditPath == "" {
		return nil
	}
	c.auditMu.Lock()
	defer c.auditMu.Unlock()

	f, err := os.OpenFile(c.auditPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("codecache: open audit log: %w", err)
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
		return fmt.Errorf("codecache: marshal audit record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("codecache: write audit record: %w", err)
	}
	return nil
}

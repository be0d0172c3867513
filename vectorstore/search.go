package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Hit is one scored row returned by HybridSearch, with its raw fields
// still attached for ReadHitField to pull typed values out of.
type Hit struct {
	Score  float64
	Fields map[string]interface{}
}

// FieldQuery is one field's embedded query vector for a hybrid search.
type FieldQuery struct {
	Field  string
	Vector []float32
}

// HybridSearch runs one ANN search per field in parallel (LanceDB has no
// native multi-field hybrid search, unlike Milvus — see the `contracts`
// surface), then combines per-field scores client-side via a weighted sum,
// mirroring the WeightedRanker the cache subsystem specifies.
func HybridSearch(ctx context.Context, col *Collection, queries []FieldQuery, weights map[string]float64, limit int, filterExpr string) ([]Hit, error) {
	if limit < 1 {
		limit = 10
	}
	perFieldLimit := limit
	if perFieldLimit < 10 {
		perFieldLimit = 10
	}

	type fieldResult struct {
		field string
		rows  []map[string]interface{}
		err   error
	}
	results := make([]fieldResult, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q FieldQuery) {
			defer wg.Done()
			var rows []map[string]interface{}
			var err error
			if filterExpr != "" {
				rows, err = col.table.VectorSearchWithFilter(ctx, q.Field, q.Vector, perFieldLimit, filterExpr)
			} else {
				rows, err = col.table.VectorSearch(ctx, q.Field, q.Vector, perFieldLimit)
			}
			results[i] = fieldResult{field: q.Field, rows: rows, err: err}
		}(i, q)
	}
	wg.Wait()

	combined := make(map[string]*Hit)
	for _, res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("vectorstore: search field %s: %w", res.field, res.err)
		}
		weight := weights[res.field]
		for _, row := range res.rows {
			id, _ := row["id"].(string)
			if id == "" {
				continue
			}
			fieldScore := distanceToSimilarity(readDistance(row))
			hit, ok := combined[id]
			if !ok {
				hit = &Hit{Fields: row}
				combined[id] = hit
			} else {
				// later rows may carry fields the first didn't; merge, first wins on conflict.
				for k, v := range row {
					if _, exists := hit.Fields[k]; !exists {
						hit.Fields[k] = v
					}
				}
			}
			hit.Score += weight * fieldScore
		}
	}

	hits := make([]Hit, 0, len(combined))
	for _, h := range combined {
		hits = append(hits, *h)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func readDistance(row map[string]interface{}) float64 {
	switch v := row["_distance"].(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}

// distanceToSimilarity maps an L2 distance to (0,1] as 1/(1+distance):
// distance 0 gives 1, larger distances give smaller scores, and a negative
// distance counts as 0, so a score never goes negative or unbounded.
func distanceToSimilarity(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	sim := 1.0 / (1.0 + distance)
	if sim > 1 {
		sim = 1
	}
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

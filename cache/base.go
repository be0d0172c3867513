// Package cache implements the two-tier vector cache: a generated-code
// cache keyed by (goal, locator summary, user task, URL) and a DOM-analysis
// cache keyed by (URL, DOM skeleton, task intent). Both build on the same
// Base: schema/dimension management and score normalization.
package cache

import (
	"context"
	"fmt"

	"github.com/autoweb/agent/ai"
	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/vectorstore"
)

// sentinelProbeText is embedded once per Base to discover the embedding
// model's dimension — its content doesn't matter, only len(vector).
const sentinelProbeText = "dimension probe"

// Base owns one collection and the embedding client used to populate its
// vector fields. Code Cache and DOM Cache each embed a Base configured
// with their own field layout.
type Base struct {
	Gateway    *vectorstore.Gateway
	Embeddings ai.EmbeddingClient
	Logger     core.Logger

	collectionName string
	vectorFields    []string
	scalarFields    []string

	collection *vectorstore.Collection
	dimension  int
}

// NewBase lazily probes the embedding dimension and ensures the backing
// collection exists with the right schema, rebuilding it if a prior run
// left a stale one (missing field or mismatched vector dimension).
func NewBase(ctx context.Context, gw *vectorstore.Gateway, embeddings ai.EmbeddingClient, logger core.Logger, collectionName string, vectorFieldNames, scalarFields []string) (*Base, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	dim := embeddings.Dimension()
	if dim == 0 {
		probe, err := embeddings.EmbedQuery(ctx, sentinelProbeText)
		if err != nil {
			return nil, fmt.Errorf("cache: probe embedding dimension: %w", err)
		}
		dim = len(probe)
	}

	vectorFields := make([]vectorstore.VectorField, len(vectorFieldNames))
	for i, name := range vectorFieldNames {
		vectorFields[i] = vectorstore.VectorField{Name: name, Dimension: dim}
	}

	col, err := vectorstore.EnsureCollection(ctx, gw, collectionName, vectorFields, scalarFields)
	if err != nil {
		return nil, fmt.Errorf("cache: ensure collection %s: %w", collectionName, err)
	}

	return &Base{
		Gateway:         gw,
		Embeddings:      embeddings,
		Logger:          logger,
		collectionName:  collectionName,
		vectorFields:    vectorFieldNames,
		scalarFields:    scalarFields,
		collection:      col,
		dimension:       dim,
	}, nil
}

// NormalizeSimilarity maps a raw combined score into [0,1]: scores already
// in range pass through unchanged; anything else is squashed monotonically
// so a hybrid search's weighted sum can never report an out-of-range score.
func NormalizeSimilarity(score float64) float64 {
	if score >= 0 && score <= 1 {
		return score
	}
	if score < 0 {
		return 0
	}
	// score > 1: squash into (0.5, 1), keeping the order among scores above
	// 1; such a score can end up below an in-range score close to 1.
	return score / (1 + score)
}

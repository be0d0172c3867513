package kb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/autoweb/agent/ai"
	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/vectorstore"
)

// Document is one ingested knowledge-base record: free text plus the
// fixed metadata fields every row carries and whatever dynamic scalar
// fields the source data contributed.
type Document struct {
	Text     string                 `json:"text"`
	Metadata map[string]string      `json:"metadata"`
	Dynamic  map[string]interface{} `json:"dynamic,omitempty"`
}

// contentVectorField is the single embedding column the KB collection
// carries — unlike the two caches, the KB has no locator/goal/url facets
// to weight against each other; it's a plain semantic document store.
const contentVectorField = "content_vector"

// Store owns the KB's vector collection: one text embedding per document
// plus its fixed and dynamic scalar fields flattened for storage.
type Store struct {
	gateway    *vectorstore.Gateway
	embeddings ai.EmbeddingClient
	logger     core.Logger
	collection *vectorstore.Collection
}

// NewStore probes the embedding dimension and ensures the backing
// collection exists.
func NewStore(ctx context.Context, gw *vectorstore.Gateway, embeddings ai.EmbeddingClient, logger core.Logger, collectionName string) (*Store, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	dim := embeddings.Dimension()
	if dim == 0 {
		probe, err := embeddings.EmbedQuery(ctx, "dimension probe")
		if err != nil {
			return nil, fmt.Errorf("kb: probe embedding dimension: %w", err)
		}
		dim = len(probe)
	}

	scalarFields := append(append([]string{}, FixedFields...), "dynamic_fields", "doc_id")
	col, err := vectorstore.EnsureCollection(ctx, gw, collectionName,
		[]vectorstore.VectorField{{Name: contentVectorField, Dimension: dim}}, scalarFields)
	if err != nil {
		return nil, fmt.Errorf("kb: ensure collection: %w", err)
	}

	return &Store{gateway: gw, embeddings: embeddings, logger: logger, collection: col}, nil
}

// Query runs a plain semantic search over the content vector, optionally
// narrowed by filterExpr (a vector-store filter expression grounded in
// fields the field registry has observed — see QueryAnalyzer). Hits are
// decoded back into Documents; dynamic fields round-trip through the
// dynamic_fields JSON scalar column written by InsertBatch.
func (s *Store) Query(ctx context.Context, searchQuery, filterExpr string, topK int) ([]Document, error) {
	vector, err := s.embeddings.EmbedQuery(ctx, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("kb: embed query: %w", err)
	}

	queries := []vectorstore.FieldQuery{{Field: contentVectorField, Vector: vector}}
	hits, err := vectorstore.HybridSearch(ctx, s.collection, queries, map[string]float64{contentVectorField: 1.0}, topK, filterExpr)
	if err != nil {
		return nil, fmt.Errorf("kb: query search: %w", err)
	}

	docs := make([]Document, 0, len(hits))
	for _, h := range hits {
		metadata := map[string]string{}
		for _, f := range FixedFields {
			metadata[f] = vectorstore.ReadHitStringField(h, f)
		}
		var dynamic map[string]interface{}
		if raw := vectorstore.ReadHitStringField(h, "dynamic_fields"); raw != "" {
			_ = json.Unmarshal([]byte(raw), &dynamic)
		}
		docs = append(docs, Document{Metadata: metadata, Dynamic: dynamic})
	}
	return docs, nil
}

// InsertBatch embeds and inserts every document's text. Returns on first
// embedding error; already-inserted rows in this batch stay inserted —
// retrying the whole batch re-embeds but the vector store's insert is not
// otherwise transactional across documents.
func (s *Store) InsertBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := s.embeddings.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("kb: embed batch: %w", err)
	}

	for i, d := range docs {
		dynamicJSON, err := json.Marshal(d.Dynamic)
		if err != nil {
			return fmt.Errorf("kb: marshal dynamic fields: %w", err)
		}

		scalars := map[string]string{
			"dynamic_fields": string(dynamicJSON),
			"doc_id":         uuid.NewString(),
		}
		for _, f := range FixedFields {
			scalars[f] = d.Metadata[f]
		}

		row := vectorstore.Row{
			ID:      scalars["doc_id"],
			Vectors: map[string][]float32{contentVectorField: vectors[i]},
			Scalars: scalars,
		}
		if err := vectorstore.InsertAndFlush(ctx, s.collection, row); err != nil {
			return fmt.Errorf("kb: insert document %d: %w", i, err)
		}
	}
	return nil
}

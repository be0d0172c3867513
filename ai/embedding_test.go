package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedQuery_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [{"embedding": [0.1, 0.2, 0.3], "index": 0}]}`))
	}))
	defer server.Close()

	client := NewOpenAIEmbeddingClient("test-key", server.URL, "", nil)
	vec, err := client.EmbedQuery(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3-dim vector, got %d", len(vec))
	}
	if client.Dimension() != 3 {
		t.Errorf("expected dimension probe to record 3, got %d", client.Dimension())
	}
}

func TestEmbedDocuments_PreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [
			{"embedding": [1, 1], "index": 1},
			{"embedding": [0, 0], "index": 0}
		]}`))
	}))
	defer server.Close()

	client := NewOpenAIEmbeddingClient("test-key", server.URL, "", nil)
	vecs, err := client.EmbedDocuments(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs[0][0] != 0 || vecs[1][0] != 1 {
		t.Errorf("expected index-ordered vectors, got %v", vecs)
	}
}

func TestEmbedDocuments_Empty(t *testing.T) {
	client := NewOpenAIEmbeddingClient("test-key", "http://localhost", "", nil)
	vecs, err := client.EmbedDocuments(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil for empty input, got %v", vecs)
	}
}

func TestEmbedQuery_MissingKey(t *testing.T) {
	client := NewOpenAIEmbeddingClient("", "http://localhost", "", nil)
	_, err := client.EmbedQuery(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestSharedEmbeddingClient_SingletonAcrossCalls(t *testing.T) {
	calls := 0
	factory := func() EmbeddingClient {
		calls++
		return NewOpenAIEmbeddingClient("key", "http://localhost", "", nil)
	}
	a := SharedEmbeddingClient(factory)
	b := SharedEmbeddingClient(factory)
	if a != b {
		t.Error("expected the same cached client instance")
	}
}

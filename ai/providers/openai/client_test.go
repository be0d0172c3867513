package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/autoweb/agent/core"
)

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("test-key", "", nil)

	if client.baseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base URL, got %q", client.baseURL)
	}
	if client.DefaultTemperature != 0 {
		t.Errorf("expected default temperature 0, got %v", client.DefaultTemperature)
	}
	if client.DefaultModel == "" {
		t.Error("expected a default model to be set")
	}
}

func TestGenerateResponse_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing or wrong auth header: %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"role": "assistant", "content": "hello there"}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7}
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, nil)
	resp, err := client.GenerateResponse(context.Background(), "hi", &core.AIOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello there" {
		t.Errorf("expected content %q, got %q", "hello there", resp.Content)
	}
	if resp.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", resp.Provider)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("expected 7 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestGenerateResponse_MissingKey(t *testing.T) {
	client := NewClient("", "http://localhost", nil)
	_, err := client.GenerateResponse(context.Background(), "hi", &core.AIOptions{})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestGenerateResponse_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "bad key"}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, nil)
	_, err := client.GenerateResponse(context.Background(), "hi", &core.AIOptions{})
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestStreamResponse_AccumulatesDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		chunks := []string{
			`data: {"choices":[{"delta":{"content":"foo"}}]}` + "\n\n",
			`data: {"choices":[{"delta":{"content":"bar"}}]}` + "\n\n",
			"data: [DONE]\n\n",
		}
		for _, c := range chunks {
			w.Write([]byte(c))
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, nil)
	var got string
	resp, err := client.StreamResponse(context.Background(), "hi", &core.AIOptions{}, func(delta string) {
		got += delta
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "foobar" {
		t.Errorf("expected callback deltas to accumulate to %q, got %q", "foobar", got)
	}
	if resp.Content != "foobar" {
		t.Errorf("expected response content %q, got %q", "foobar", resp.Content)
	}
}

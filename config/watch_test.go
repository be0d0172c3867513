package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/autoweb/agent/core"
)

func TestWatchKeywordFile_EmptyPathIsNoop(t *testing.T) {
	w, err := WatchKeywordFile("", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher for empty path")
	}
	w.Close()
}

func TestWatchKeywordFile_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	initial := "continuation_keywords: [\"go on\"]\n"
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	var mu sync.Mutex
	var got []string
	w, err := WatchKeywordFile(path, func(continuation, storeKB, ragStore, ragAsk []string) {
		mu.Lock()
		defer mu.Unlock()
		got = continuation
	}, &core.NoOpLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Close()

	updated := "continuation_keywords: [\"proceed\"]\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		match := len(got) == 1 && got[0] == "proceed"
		mu.Unlock()
		if match {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected reloaded keywords, got %v", got)
}

package kb

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveToLocalFile_WritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	docs := []Document{{Text: "hello", Metadata: map[string]string{"source": "test"}}}

	path, err := SaveToLocalFile(docs, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("expected file under %s, got %s", dir, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %v", err)
	}
}

func TestSaveToLocalFile_EmptyBatchIsNoop(t *testing.T) {
	path, err := SaveToLocalFile(nil, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path for empty batch, got %q", path)
	}
}

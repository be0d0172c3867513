package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SaveToLocalFile mirrors a flushed batch to disk as JSON, the Go
// analogue of memory.py's save_to_local_file. Returns the written path.
func SaveToLocalFile(docs []Document, outputDir string) (string, error) {
	if len(docs) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("kb: create output dir: %w", err)
	}

	filename := fmt.Sprintf("kb_%s.json", time.Now().Format("20060102_150405"))
	path := filepath.Join(outputDir, filename)

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("kb: marshal documents: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("kb: write local file: %w", err)
	}
	return path, nil
}

package nodes

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFindLatestArtifact_PicksMostRecentlyModified(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "older.json")
	newer := filepath.Join(dir, "newer.csv")
	if err := os.WriteFile(older, []byte(`[{"a":1}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newer, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if err := os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(newer, now, now); err != nil {
		t.Fatal(err)
	}

	got, err := findLatestArtifact(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != newer {
		t.Errorf("expected %s, got %s", newer, got)
	}
}

func TestFindLatestArtifact_IgnoresUnsupportedExtensions(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := findLatestArtifact(dir); err == nil {
		t.Error("expected error when no supported artifact exists")
	}
}

func TestParseJSONArtifact_ArrayAndSingleObject(t *testing.T) {
	dir := t.TempDir()
	arrayPath := filepath.Join(dir, "array.json")
	if err := os.WriteFile(arrayPath, []byte(`[{"x":1},{"x":2}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, err := parseJSONArtifact(arrayPath)
	if err != nil || len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v err=%v", rows, err)
	}

	singlePath := filepath.Join(dir, "single.json")
	if err := os.WriteFile(singlePath, []byte(`{"x":1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, err = parseJSONArtifact(singlePath)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected 1 row, got %v err=%v", rows, err)
	}
}

func TestParseJSONLArtifact_SkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.jsonl")
	content := "{\"x\":1}\n\n{\"x\":2}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, err := parseJSONLArtifact(path)
	if err != nil || len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v err=%v", rows, err)
	}
}

func TestParseCSVArtifact_MapsHeaderToRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rows.csv")
	if err := os.WriteFile(path, []byte("name,price\nwidget,9.99\ngadget,14.50\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rows, err := parseCSVArtifact(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0]["name"] != "widget" || rows[1]["price"] != "14.50" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestStripLeadingMarker_RemovesMatchedPrefix(t *testing.T) {
	got := stripLeadingMarker("ask: what is the cheapest item?", []string{"ask"})
	if got != "what is the cheapest item?" {
		t.Errorf("got %q", got)
	}
}

func TestStripLeadingMarker_NoMatchReturnsTrimmedInput(t *testing.T) {
	got := stripLeadingMarker("  what is the cheapest item?  ", []string{"ask"})
	if got != "what is the cheapest item?" {
		t.Errorf("got %q", got)
	}
}

func TestNormalizeSQLiteValue_ConvertsByteSlice(t *testing.T) {
	if got := normalizeSQLiteValue([]byte("hello")); got != "hello" {
		t.Errorf("got %v", got)
	}
	if got := normalizeSQLiteValue(42); got != 42 {
		t.Errorf("got %v", got)
	}
}

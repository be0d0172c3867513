package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestIsPureNavigation_DetectsNavigateOnly(t *testing.T) {
	code := `page.navigate("https://example.com")`
	if !isPureNavigation(code) {
		t.Errorf("expected pure-navigation code to be detected")
	}
}

func TestIsPureNavigation_RejectsSubstantiveCode(t *testing.T) {
	code := `page.navigate("https://example.com")
	page.ele("#title").click()
	page.ele("#submit").click()
	page.ele("#next").click()`
	if isPureNavigation(code) {
		t.Errorf("expected code with multiple actions to not be pure-navigation")
	}
}

func TestIsPureNavigation_RejectsLongCode(t *testing.T) {
	code := `page.navigate("https://example.com")` + string(make([]byte, 250))
	if isPureNavigation(code) {
		t.Errorf("expected code over 200 chars to not be pure-navigation")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("expected unchanged short string, got %q", got)
	}
	if got := truncate("hello world", 5); got != "hello" {
		t.Errorf("expected truncated string, got %q", got)
	}
}

func TestRecordFailure_AppendsJSONLLine(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.jsonl")

	cc := &CodeCache{auditPath: auditPath}
	if err := cc.RecordFailure("cache-123", "execution_error", "selector not found"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("failed to read audit log: %v", err)
	}

	var rec auditRecord
	if err := json.Unmarshal(data[:len(data)-1], &rec); err != nil {
		t.Fatalf("failed to parse audit record: %v", err)
	}
	if rec.CacheID != "cache-123" || rec.Type != "execution_error" {
		t.Errorf("unexpected audit record: %+v", rec)
	}
}

func TestRecordFailure_NoOpWithoutAuditPath(t *testing.T) {
	cc := &CodeCache{}
	if err := cc.RecordFailure("x", "y", "z"); err != nil {
		t.Errorf("expected no-op without audit path, got error: %v", err)
	}
}

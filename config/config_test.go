package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.CodeCacheEnabled || cfg.CodeCacheThreshold != 0.90 {
		t.Errorf("unexpected code cache defaults: %+v", cfg)
	}
	if cfg.DOMCacheTopK != 5 || cfg.DOMCacheTTLHours != 168 {
		t.Errorf("unexpected dom cache defaults: %+v", cfg)
	}
	if cfg.FieldRegistryBackend != "json" {
		t.Errorf("expected json field registry backend by default, got %q", cfg.FieldRegistryBackend)
	}
	if len(cfg.ContinuationKeywords) == 0 || len(cfg.RAGAskKeywords) == 0 {
		t.Error("expected default keyword lists to be populated")
	}
}

func TestLoad_RejectsOutOfRangeThreshold(t *testing.T) {
	t.Setenv("CODE_CACHE_THRESHOLD", "1.5")
	if _, err := Load(); err == nil {
		t.Error("expected an out-of-range threshold to fail validation")
	}
}

func TestLoad_RejectsRedisBackendWithoutURL(t *testing.T) {
	t.Setenv("FIELD_REGISTRY_BACKEND", "redis")
	if _, err := Load(); err == nil {
		t.Error("expected redis backend without REDIS_URL to fail validation")
	}
}

func TestWithKeywordFile_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.yaml")
	content := "continuation_keywords:\n  - \"keep going\"\nrag_ask_keywords:\n  - \"tell me\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(WithKeywordFile(path))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.ContinuationKeywords) != 1 || cfg.ContinuationKeywords[0] != "keep going" {
		t.Errorf("expected overridden continuation keywords, got %+v", cfg.ContinuationKeywords)
	}
	if len(cfg.RAGAskKeywords) != 1 || cfg.RAGAskKeywords[0] != "tell me" {
		t.Errorf("expected overridden rag ask keywords, got %+v", cfg.RAGAskKeywords)
	}
	if len(cfg.StoreKBKeywords) == 0 {
		t.Error("expected unspecified lists to keep their defaults")
	}
}

func TestWithKeywordFile_MissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(WithKeywordFile(filepath.Join(t.TempDir(), "missing.yaml")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.ContinuationKeywords) == 0 {
		t.Error("expected defaults to remain when keyword file is missing")
	}
}

package nodes

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClassifyExecution_SyntaxIsh(t *testing.T) {
	syntaxish, locatorish := classifyExecution("Traceback: NameError: x is not defined", defaultSyntaxKeywords, defaultLocatorKeywords)
	if !syntaxish || locatorish {
		t.Errorf("expected syntax-ish only, got syntaxish=%v locatorish=%v", syntaxish, locatorish)
	}
}

func TestClassifyExecution_LocatorIsh(t *testing.T) {
	syntaxish, locatorish := classifyExecution("TimeoutError: element not found after 30s", defaultSyntaxKeywords, defaultLocatorKeywords)
	if syntaxish || !locatorish {
		t.Errorf("expected locator-ish only, got syntaxish=%v locatorish=%v", syntaxish, locatorish)
	}
}

func TestClassifyExecution_Clean(t *testing.T) {
	syntaxish, locatorish := classifyExecution("extracted 10 rows", defaultSyntaxKeywords, defaultLocatorKeywords)
	if syntaxish || locatorish {
		t.Error("expected clean output to classify as neither")
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("first\nsecond\nthird"); got != "first" {
		t.Errorf("got %q", got)
	}
	if got := firstLine("only line"); got != "only line" {
		t.Errorf("got %q", got)
	}
}

func TestPersistCodeLog_WritesUnderCodeLogDir(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := persistCodeLog(dir, "tab.navigate()", "ok", false, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "logs", "code_log"))
	if err != nil {
		t.Fatalf("expected code_log dir to exist: %v", err)
	}
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".log" {
		t.Errorf("unexpected code_log contents: %+v", entries)
	}
}

func TestKeywordsOrDefault_FallsBackWhenEmpty(t *testing.T) {
	got := keywordsOrDefault(nil, defaultSyntaxKeywords)
	if len(got) != len(defaultSyntaxKeywords) {
		t.Errorf("expected fallback to defaults, got %v", got)
	}
}

package cache

import (
	"strings"
	"testing"
)

func TestDiffTaskParams_FindsNumberChange(t *testing.T) {
	subs := DiffTaskParams("scrape top 10 movies", "scrape top 20 movies")

	found := false
	for _, s := range subs {
		if s.Old == "10" && s.New == "20" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected substitution 10->20, got %v", subs)
	}
}

func TestDiffTaskParams_IgnoresSingleCharReplacements(t *testing.T) {
	subs := DiffTaskParams("a b c", "x b c")
	for _, s := range subs {
		if len(s.Old) < 2 || len(s.New) < 2 {
			t.Errorf("expected single-char replaces filtered out, got %v", s)
		}
	}
}

func TestDiffTaskParams_SortedByDescendingLength(t *testing.T) {
	subs := DiffTaskParams("fetch top10 reviews2024 items", "fetch top20 reviews2025 items")
	for i := 1; i < len(subs); i++ {
		if len(subs[i-1].Old) < len(subs[i].Old) {
			t.Errorf("expected descending order by old length, got %v", subs)
		}
	}
}

func TestApplySubstitutions_OnlyInsideQuotedLiterals(t *testing.T) {
	code := `count10 := 10
	page.Find("item10").Click()`
	subs := []Substitution{{Old: "item10", New: "item20"}}

	mutated, logLine := ApplySubstitutions(code, subs)

	if logLine == "" {
		t.Fatal("expected a non-empty substitution log line")
	}
	if !strings.Contains(mutated, `"item20"`) {
		t.Errorf("expected literal substitution applied, got %q", mutated)
	}
	if !strings.Contains(mutated, "count10 :=") {
		t.Errorf("expected identifier left untouched, got %q", mutated)
	}
}

func TestApplySubstitutions_NoMatchesReturnsEmptyLog(t *testing.T) {
	code := `page.Find("foo").Click()`
	subs := []Substitution{{Old: "bar", New: "baz"}}

	mutated, logLine := ApplySubstitutions(code, subs)

	if logLine != "" {
		t.Errorf("expected empty log when nothing matched, got %q", logLine)
	}
	if mutated != code {
		t.Errorf("expected code unchanged, got %q", mutated)
	}
}

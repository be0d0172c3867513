package nodes

import (
	"testing"

	"github.com/autoweb/agent/cache"
	"github.com/autoweb/agent/state"
)

func TestIsTrivialPage(t *testing.T) {
	cases := map[string]bool{
		"":                                true,
		"about:blank":                     true,
		"data:text/html,<h1>hi</h1>":      true,
		"chrome://settings":               true,
		"https://www.google.com/":         true,
		"https://www.google.com/search?q=cats": false,
		"https://example.com/listing":     false,
	}
	for url, want := range cases {
		if got := isTrivialPage(url); got != want {
			t.Errorf("isTrivialPage(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestPriorStepFailed_ErrorType(t *testing.T) {
	s := state.AgentState{ErrorType: "locator"}
	if !priorStepFailed(s) {
		t.Error("expected failure detected from error_type")
	}
}

func TestPriorStepFailed_VerificationFailure(t *testing.T) {
	s := state.AgentState{VerificationResult: &state.VerificationResult{IsSuccess: false}}
	if !priorStepFailed(s) {
		t.Error("expected failure detected from verification result")
	}
}

func TestPriorStepFailed_CleanState(t *testing.T) {
	s := state.AgentState{VerificationResult: &state.VerificationResult{IsSuccess: true}}
	if priorStepFailed(s) {
		t.Error("expected no failure on clean state")
	}
}

func TestBestDOMHit_PicksHighestScore(t *testing.T) {
	hits := []cache.DOMHit{
		{ID: "a", Score: 0.8},
		{ID: "b", Score: 0.95},
		{ID: "c", Score: 0.9},
	}
	if got := bestDOMHit(hits); got.ID != "b" {
		t.Errorf("expected hit b, got %s", got.ID)
	}
}

func TestLocatorObjectToStrategy_MapsFields(t *testing.T) {
	obj := map[string]interface{}{
		"locator":                "#submit",
		"action_suggestion":      "click",
		"current_step_reasoning": "submits the form",
		"opens_new_tab":          true,
	}
	s := locatorObjectToStrategy(obj)
	if s.Selector != "#submit" || s.Strategy != "click" {
		t.Errorf("unexpected mapping: %+v", s)
	}
	if s.Description == "" {
		t.Error("expected non-empty description")
	}
}

func TestLocatorObjectsToStrategies_SkipsEmptySelector(t *testing.T) {
	objs := []map[string]interface{}{
		{"locator": "#a", "action_suggestion": "click"},
		{"action_suggestion": "click"},
	}
	got := locatorObjectsToStrategies(objs)
	if len(got) != 1 {
		t.Fatalf("expected 1 strategy surviving the empty-selector filter, got %d", len(got))
	}
}

package state

import (
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestApply_AppendExtendsFinishedSteps(t *testing.T) {
	s := AgentState{FinishedSteps: []string{"opened page"}}
	update := Update{FinishedSteps: func() *FieldUpdate[string] { u := AppendList("clicked button"); return &u }()}

	next := Apply(s, update)

	want := []string{"opened page", "clicked button"}
	if !reflect.DeepEqual(next.FinishedSteps, want) {
		t.Errorf("expected %v, got %v", want, next.FinishedSteps)
	}
	// original untouched
	if len(s.FinishedSteps) != 1 {
		t.Errorf("expected original state unmutated, got %v", s.FinishedSteps)
	}
}

func TestApply_ClearEmptiesList(t *testing.T) {
	s := AgentState{Reflections: []string{"a", "b"}}
	clear := ClearList[string]()
	update := Update{Reflections: &clear}

	next := Apply(s, update)

	if next.Reflections != nil {
		t.Errorf("expected nil after clear, got %v", next.Reflections)
	}
}

func TestApply_ReplaceOverwritesList(t *testing.T) {
	s := AgentState{LocatorSuggestions: []StrategyEntry{{Strategy: "css"}}}
	replace := ReplaceList([]StrategyEntry{{Strategy: "xpath"}, {Strategy: "text"}})
	update := Update{LocatorSuggestions: &replace}

	next := Apply(s, update)

	if len(next.LocatorSuggestions) != 2 || next.LocatorSuggestions[0].Strategy != "xpath" {
		t.Errorf("expected replaced list, got %v", next.LocatorSuggestions)
	}
}

func TestApply_UntouchedFieldsPreserved(t *testing.T) {
	s := AgentState{UserTask: "scrape movies", LoopCount: 3}
	update := Update{Plan: strPtr("click next page")}

	next := Apply(s, update)

	if next.UserTask != "scrape movies" {
		t.Errorf("expected UserTask preserved, got %q", next.UserTask)
	}
	if next.LoopCount != 3 {
		t.Errorf("expected LoopCount preserved, got %d", next.LoopCount)
	}
	if next.Plan != "click next page" {
		t.Errorf("expected Plan replaced, got %q", next.Plan)
	}
}

func TestApply_ScalarReplace(t *testing.T) {
	cache := CodeSourceCache
	s := AgentState{CodeSource: CodeSourceNone}
	update := Update{CodeSource: &cache}

	next := Apply(s, update)

	if next.CodeSource != CodeSourceCache {
		t.Errorf("expected CodeSourceCache, got %v", next.CodeSource)
	}
}

func TestResetForFreshTask_ClearsHistory(t *testing.T) {
	s := AgentState{
		UserTask:      "old task",
		FinishedSteps: []string{"step1", "step2"},
		Reflections:   []string{"lesson"},
		LoopCount:     5,
		IsComplete:    true,
	}

	next := ResetForFreshTask(s, "new task")

	if next.UserTask != "new task" {
		t.Errorf("expected new task, got %q", next.UserTask)
	}
	if next.FinishedSteps != nil {
		t.Errorf("expected finished_steps cleared, got %v", next.FinishedSteps)
	}
	if next.Reflections != nil {
		t.Errorf("expected reflections cleared, got %v", next.Reflections)
	}
	if next.LoopCount != 0 {
		t.Errorf("expected loop_count reset, got %d", next.LoopCount)
	}
	if next.IsComplete {
		t.Error("expected is_complete reset to false")
	}
}

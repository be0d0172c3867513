package graph

import (
	"context"
	"testing"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/nodes"
	"github.com/autoweb/agent/state"
)

type stubController struct {
	beforeExecutor Decision
	afterVerifier  Decision
}

func (s stubController) BeforeExecutor(ctx context.Context, st state.AgentState) (Decision, error) {
	return s.beforeExecutor, nil
}

func (s stubController) AfterVerifier(ctx context.Context, st state.AgentState) (Decision, error) {
	return s.afterVerifier, nil
}

func newTestGraph(interrupts InterruptController) (*Graph, *InMemoryCheckpointer) {
	cp := NewInMemoryCheckpointer()
	g := New(&nodes.Config{Logger: &core.NoOpLogger{}}, cp, interrupts, &core.NoOpLogger{})
	return g, cp
}

func TestLoop_RunsThroughToEnd(t *testing.T) {
	g, cp := newTestGraph(AutoContinueController{})
	g.nodes[nodes.NodeObserver] = func(ctx context.Context, s state.AgentState, cfg *nodes.Config) (state.Update, nodes.Next, error) {
		complete := true
		return state.Update{IsComplete: &complete}, nodes.NodeEnd, nil
	}

	outcome, err := g.Run(context.Background(), "thread-1", state.AgentState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Done || !outcome.State.IsComplete {
		t.Errorf("expected completed outcome, got %+v", outcome)
	}
	saved, ok, _ := cp.Load(context.Background(), "thread-1")
	if !ok || saved.Next != nodes.NodeEnd {
		t.Errorf("expected checkpoint with Next=end, got %+v ok=%v", saved, ok)
	}
}

func TestLoop_BeforeExecutorQuitSkipsExecutorNode(t *testing.T) {
	g, _ := newTestGraph(stubController{beforeExecutor: Decision{Command: "quit"}})
	called := false
	g.nodes[nodes.NodeExecutor] = func(ctx context.Context, s state.AgentState, cfg *nodes.Config) (state.Update, nodes.Next, error) {
		called = true
		return state.Update{}, nodes.NodeVerifier, nil
	}

	outcome, err := g.loop(context.Background(), "thread-2", state.AgentState{}, nodes.NodeExecutor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("expected Executor node to be skipped on quit")
	}
	if !outcome.Done || !outcome.State.IsComplete {
		t.Errorf("expected completed outcome, got %+v", outcome)
	}
}

func TestLoop_BeforeExecutorEditAppliesCodeAndRunsExecutor(t *testing.T) {
	g, _ := newTestGraph(stubController{beforeExecutor: Decision{Command: "edit", EditedCode: "print('edited')"}})
	var seenCode string
	g.nodes[nodes.NodeExecutor] = func(ctx context.Context, s state.AgentState, cfg *nodes.Config) (state.Update, nodes.Next, error) {
		seenCode = s.GeneratedCode
		return state.Update{}, nodes.NodeEnd, nil
	}

	_, err := g.loop(context.Background(), "thread-3", state.AgentState{GeneratedCode: "print('original')"}, nodes.NodeExecutor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seenCode != "print('edited')" {
		t.Errorf("expected edited code to reach Executor, got %q", seenCode)
	}
}

func TestLoop_BeforeExecutorReplanRoutesToPlanner(t *testing.T) {
	g, _ := newTestGraph(stubController{beforeExecutor: Decision{Command: "replan", ReplanFeedback: "try a different selector"}})
	var plannerCalled bool
	g.nodes[nodes.NodePlanner] = func(ctx context.Context, s state.AgentState, cfg *nodes.Config) (state.Update, nodes.Next, error) {
		plannerCalled = true
		complete := true
		return state.Update{IsComplete: &complete}, nodes.NodeEnd, nil
	}

	_, err := g.loop(context.Background(), "thread-4", state.AgentState{}, nodes.NodeExecutor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !plannerCalled {
		t.Error("expected replan decision to route to Planner")
	}
}

func TestLoop_AfterVerifierForceDoneEndsGraph(t *testing.T) {
	g, _ := newTestGraph(stubController{afterVerifier: Decision{Command: "force-done"}})
	g.nodes[nodes.NodeVerifier] = func(ctx context.Context, s state.AgentState, cfg *nodes.Config) (state.Update, nodes.Next, error) {
		return state.Update{}, nodes.NodeObserver, nil
	}

	outcome, err := g.loop(context.Background(), "thread-5", state.AgentState{}, nodes.NodeVerifier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Done || !outcome.State.IsComplete {
		t.Errorf("expected force-done to complete the task, got %+v", outcome)
	}
}

func TestLoop_AfterVerifierForceSuccessOverridesVerdict(t *testing.T) {
	g, _ := newTestGraph(stubController{afterVerifier: Decision{Command: "force-success"}})
	g.nodes[nodes.NodeVerifier] = func(ctx context.Context, s state.AgentState, cfg *nodes.Config) (state.Update, nodes.Next, error) {
		result := &state.VerificationResult{IsSuccess: false, Summary: "model thought it failed"}
		return state.Update{VerificationResult: &result}, nodes.NodeObserver, nil
	}
	g.nodes[nodes.NodeObserver] = func(ctx context.Context, s state.AgentState, cfg *nodes.Config) (state.Update, nodes.Next, error) {
		if s.VerificationResult == nil || !s.VerificationResult.IsSuccess {
			t.Errorf("expected forced success to be visible to the next node, got %+v", s.VerificationResult)
		}
		complete := true
		return state.Update{IsComplete: &complete}, nodes.NodeEnd, nil
	}

	_, err := g.loop(context.Background(), "thread-6", state.AgentState{}, nodes.NodeVerifier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResume_NoCheckpointErrors(t *testing.T) {
	g, _ := newTestGraph(AutoContinueController{})
	if _, err := g.Resume(context.Background(), "missing-thread"); err == nil {
		t.Error("expected an error resuming a thread with no checkpoint")
	}
}

func TestResume_AlreadyDoneReturnsImmediately(t *testing.T) {
	g, cp := newTestGraph(AutoContinueController{})
	cp.Save(context.Background(), "thread-7", Checkpoint{State: state.AgentState{IsComplete: true}, Next: nodes.NodeEnd})

	outcome, err := g.Resume(context.Background(), "thread-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Done {
		t.Error("expected already-done checkpoint to resume as done")
	}
}

func TestNormalizeDecision_MapsShortAndLongForms(t *testing.T) {
	cases := map[string]string{
		"c": "continue", "continue": "continue", "": "continue",
		"e": "edit", "edit": "edit",
		"q": "quit", "quit": "quit",
		"s": "force-success", "force-success": "force-success",
		"f": "force-fail", "force-fail": "force-fail",
		"d": "force-done", "force-done": "force-done",
		"accept": "accept", "replan": "replan",
	}
	for in, want := range cases {
		if got := normalizeDecision(in); got != want {
			t.Errorf("normalizeDecision(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInMemoryCheckpointer_SaveLoadDelete(t *testing.T) {
	cp := NewInMemoryCheckpointer()
	ctx := context.Background()
	if _, ok, _ := cp.Load(ctx, "x"); ok {
		t.Fatal("expected no checkpoint before save")
	}
	if err := cp.Save(ctx, "x", Checkpoint{Next: nodes.NodePlanner}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	loaded, ok, _ := cp.Load(ctx, "x")
	if !ok || loaded.Next != nodes.NodePlanner {
		t.Fatalf("unexpected load result: %+v ok=%v", loaded, ok)
	}
	if err := cp.Delete(ctx, "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := cp.Load(ctx, "x"); ok {
		t.Error("expected checkpoint to be gone after delete")
	}
}

package supervisor

import (
	"context"
	"strings"
	"testing"

	"github.com/autoweb/agent/state"
)

func TestReplController_BeforeExecutor_PlainContinue(t *testing.T) {
	in := strings.NewReader("c\n")
	var out strings.Builder
	c := newReplController(in, &out)

	d, err := c.BeforeExecutor(context.Background(), state.AgentState{Plan: "click the button"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Command != "c" {
		t.Errorf("expected command %q, got %q", "c", d.Command)
	}
	if !strings.Contains(out.String(), "click the button") {
		t.Error("expected prompt to mention the plan")
	}
}

func TestReplController_BeforeExecutor_Edit(t *testing.T) {
	in := strings.NewReader("edit console.log('x')\n")
	var out strings.Builder
	c := newReplController(in, &out)

	d, err := c.BeforeExecutor(context.Background(), state.AgentState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Command != "edit" || d.EditedCode != "console.log('x')" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestReplController_AfterVerifier_Replan(t *testing.T) {
	in := strings.NewReader("replan try a different selector\n")
	var out strings.Builder
	c := newReplController(in, &out)

	d, err := c.AfterVerifier(context.Background(), state.AgentState{
		VerificationResult: &state.VerificationResult{Summary: "failed"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Command != "replan" || d.ReplanFeedback != "try a different selector" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestReplController_EOFDefaultsToContinue(t *testing.T) {
	in := strings.NewReader("")
	var out strings.Builder
	c := newReplController(in, &out)

	d, err := c.BeforeExecutor(context.Background(), state.AgentState{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Command != "continue" {
		t.Errorf("expected fallback continue, got %q", d.Command)
	}
}

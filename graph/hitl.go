package graph

import (
	"context"

	"github.com/autoweb/agent/state"
)

// InterruptPoint names one of the two fixed places the graph pauses for
// a human decision (spec §4.12).
type InterruptPoint string

const (
	InterruptBeforeExecutor InterruptPoint = "before_executor"
	InterruptAfterVerifier  InterruptPoint = "after_verifier"
)

// Decision is the human's answer at an interrupt point. Command is the
// single-letter or spelled-out form from spec §6 ("c"/"continue",
// "e"/"edit", "q"/"quit", "replan", "accept", "s"/"force-success",
// "f"/"force-fail", "d"/"force-done"); EditedCode and ReplanFeedback are
// only consulted for the matching command.
type Decision struct {
	Command        string
	EditedCode     string
	ReplanFeedback string
}

// InterruptController asks a human for a decision at each configured
// interrupt point. The Supervisor's interactive implementation reads a
// line from the REPL; AutoContinueController is the headless default.
type InterruptController interface {
	BeforeExecutor(ctx context.Context, s state.AgentState) (Decision, error)
	AfterVerifier(ctx context.Context, s state.AgentState) (Decision, error)
}

// AutoContinueController never interrupts: continue before Executor,
// accept after Verifier. Used when no human is attached to the graph
// (e.g. the `qa` REPL command's RAG-only turns, or tests).
type AutoContinueController struct{}

func (AutoContinueController) BeforeExecutor(ctx context.Context, s state.AgentState) (Decision, error) {
	return Decision{Command: "continue"}, nil
}

func (AutoContinueController) AfterVerifier(ctx context.Context, s state.AgentState) (Decision, error) {
	return Decision{Command: "accept"}, nil
}

// normalizeDecision maps both the single-letter and spelled-out forms of
// a command onto one canonical token the graph loop switches on.
func normalizeDecision(command string) string {
	switch command {
	case "c", "continue", "":
		return "continue"
	case "e", "edit":
		return "edit"
	case "replan":
		return "replan"
	case "q", "quit":
		return "quit"
	case "accept":
		return "accept"
	case "s", "force-success":
		return "force-success"
	case "f", "force-fail":
		return "force-fail"
	case "d", "force-done":
		return "force-done"
	default:
		return command
	}
}

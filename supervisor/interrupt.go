package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/autoweb/agent/graph"
	"github.com/autoweb/agent/state"
)

// replController is the interactive graph.InterruptController: it prints
// a prompt describing the pending decision and reads one line of command
// from the REPL's input stream (spec §4.12/§6 single-letter commands).
type replController struct {
	in  *bufio.Scanner
	out io.Writer
}

func newReplController(in io.Reader, out io.Writer) *replController {
	return &replController{in: bufio.NewScanner(in), out: out}
}

func (c *replController) BeforeExecutor(ctx context.Context, s state.AgentState) (graph.Decision, error) {
	fmt.Fprintf(c.out, "\nabout to run generated code for: %s\n"+
		"[c]ontinue  [e]dit  replan <feedback>  [q]uit\n> ", s.Plan)
	return c.readDecision()
}

func (c *replController) AfterVerifier(ctx context.Context, s state.AgentState) (graph.Decision, error) {
	verdict := "unknown"
	if s.VerificationResult != nil {
		verdict = s.VerificationResult.Summary
	}
	fmt.Fprintf(c.out, "\nverifier says: %s\n"+
		"accept  [s]force-success  [f]force-fail  [d]force-done  [q]uit\n> ", verdict)
	return c.readDecision()
}

func (c *replController) readDecision() (graph.Decision, error) {
	if !c.in.Scan() {
		return graph.Decision{Command: "continue"}, nil
	}
	line := strings.TrimSpace(c.in.Text())

	if rest, ok := cutPrefix(line, "edit "); ok {
		return graph.Decision{Command: "edit", EditedCode: rest}, nil
	}
	if rest, ok := cutPrefix(line, "replan "); ok {
		return graph.Decision{Command: "replan", ReplanFeedback: rest}, nil
	}
	return graph.Decision{Command: line}, nil
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(s, prefix)), true
}

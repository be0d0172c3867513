// Package graph is the Orchestrator: the node registry, the single-
// threaded cooperative loop that routes by each node's returned
// nodes.Next, and the two fixed human-in-the-loop interrupt points
// (spec §4.12, §5).
package graph

import (
	"context"
	"fmt"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/nodes"
	"github.com/autoweb/agent/state"
)

// Graph owns the node registry and drives AgentState through it one node
// at a time, checkpointing after every transition so a suspended task can
// resume from exactly where it paused.
type Graph struct {
	nodes        map[nodes.Next]nodes.Node
	cfg          *nodes.Config
	checkpointer Checkpointer
	interrupts   InterruptController
	logger       core.Logger
}

// New wires the fixed node registry (entry node is always Observer) to a
// checkpointer and an interrupt controller.
func New(cfg *nodes.Config, checkpointer Checkpointer, interrupts InterruptController, logger core.Logger) *Graph {
	if interrupts == nil {
		interrupts = AutoContinueController{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &Graph{
		nodes: map[nodes.Next]nodes.Node{
			nodes.NodeObserver:     nodes.Observer,
			nodes.NodePlanner:      nodes.Planner,
			nodes.NodeCacheLookup:  nodes.CacheLookup,
			nodes.NodeCoder:        nodes.Coder,
			nodes.NodeExecutor:     nodes.Executor,
			nodes.NodeVerifier:     nodes.Verifier,
			nodes.NodeRAG:          nodes.RAG,
			nodes.NodeErrorHandler: nodes.ErrorHandler,
		},
		cfg:          cfg,
		checkpointer: checkpointer,
		interrupts:   interrupts,
		logger:       logger,
	}
}

// Outcome reports where a Run/Resume call stopped: either the graph
// reached nodes.NodeEnd (Done), or the loop was cut short by a quit
// decision.
type Outcome struct {
	State state.AgentState
	Done  bool
}

// Run starts a fresh task at the entry node (Observer).
func (g *Graph) Run(ctx context.Context, threadID string, initial state.AgentState) (Outcome, error) {
	return g.loop(ctx, threadID, initial, nodes.NodeObserver)
}

// Resume continues a thread from its last checkpoint. Returns an error if
// no checkpoint exists for threadID.
func (g *Graph) Resume(ctx context.Context, threadID string) (Outcome, error) {
	cp, ok, err := g.checkpointer.Load(ctx, threadID)
	if err != nil {
		return Outcome{}, fmt.Errorf("graph: load checkpoint: %w", err)
	}
	if !ok {
		return Outcome{}, fmt.Errorf("graph: no checkpoint for thread %q", threadID)
	}
	if cp.Next == "" || cp.Next == nodes.NodeEnd {
		return Outcome{State: cp.State, Done: true}, nil
	}
	return g.loop(ctx, threadID, cp.State, cp.Next)
}

func (g *Graph) loop(ctx context.Context, threadID string, s state.AgentState, start nodes.Next) (Outcome, error) {
	current := start

	for {
		if current == nodes.NodeEnd {
			if err := g.checkpointer.Save(ctx, threadID, Checkpoint{State: s, Next: nodes.NodeEnd}); err != nil {
				g.logger.Warn("graph: checkpoint save failed", map[string]interface{}{"error": err.Error()})
			}
			return Outcome{State: s, Done: true}, nil
		}

		if current == nodes.NodeExecutor {
			quit, err := g.handleBeforeExecutor(ctx, &s, &current)
			if err != nil {
				return Outcome{}, err
			}
			if quit {
				continue
			}
		}

		fn, ok := g.nodes[current]
		if !ok {
			return Outcome{}, fmt.Errorf("graph: no node registered for %q", current)
		}

		update, next, err := fn(ctx, s, g.cfg)
		if err != nil {
			return Outcome{}, fmt.Errorf("graph: node %q returned an error: %w", current, err)
		}
		s = state.Apply(s, update)

		if current == nodes.NodeVerifier {
			if err := g.handleAfterVerifier(ctx, &s, &next); err != nil {
				return Outcome{}, err
			}
		}

		if err := g.checkpointer.Save(ctx, threadID, Checkpoint{State: s, Next: next}); err != nil {
			g.logger.Warn("graph: checkpoint save failed", map[string]interface{}{"error": err.Error()})
		}
		current = next
	}
}

// handleBeforeExecutor applies the human's continue/edit/replan/quit
// decision. Returns quit=true when the caller should re-evaluate current
// (it has been redirected to Planner or End) rather than run Executor.
func (g *Graph) handleBeforeExecutor(ctx context.Context, s *state.AgentState, current *nodes.Next) (bool, error) {
	decision, err := g.interrupts.BeforeExecutor(ctx, *s)
	if err != nil {
		return false, fmt.Errorf("graph: before-executor interrupt: %w", err)
	}

	switch normalizeDecision(decision.Command) {
	case "quit":
		complete := true
		*s = state.Apply(*s, state.Update{IsComplete: &complete})
		*current = nodes.NodeEnd
		return true, nil
	case "edit":
		code := decision.EditedCode
		*s = state.Apply(*s, state.Update{GeneratedCode: &code})
	case "replan":
		reflection := state.AppendList("human requested a replan: " + decision.ReplanFeedback)
		*s = state.Apply(*s, state.Update{Reflections: &reflection})
		*current = nodes.NodePlanner
		return true, nil
	}
	return false, nil
}

// handleAfterVerifier applies the human's accept/force-success/
// force-fail/force-done decision, overriding Verifier's own verdict and
// routing decision where the command says to.
func (g *Graph) handleAfterVerifier(ctx context.Context, s *state.AgentState, next *nodes.Next) error {
	decision, err := g.interrupts.AfterVerifier(ctx, *s)
	if err != nil {
		return fmt.Errorf("graph: after-verifier interrupt: %w", err)
	}

	switch normalizeDecision(decision.Command) {
	case "force-success":
		result := &state.VerificationResult{IsSuccess: true, Summary: "human forced success"}
		finished := state.AppendList("human forced this step to success")
		*s = state.Apply(*s, state.Update{VerificationResult: &result, FinishedSteps: &finished})
		*next = nodes.NodeObserver
	case "force-fail":
		result := &state.VerificationResult{IsSuccess: false, Summary: "human forced failure"}
		reflection := state.AppendList("human forced this step to fail")
		*s = state.Apply(*s, state.Update{VerificationResult: &result, Reflections: &reflection})
		*next = nodes.NodeObserver
	case "force-done":
		complete := true
		finished := state.AppendList("human forced the task complete")
		*s = state.Apply(*s, state.Update{IsComplete: &complete, FinishedSteps: &finished})
		*next = nodes.NodeEnd
	}
	return nil
}

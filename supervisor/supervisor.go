// Package supervisor is the human-facing shell around the orchestration
// graph: a readline-style REPL that starts/resumes runs, renders the
// agent's progress, and answers the graph's two fixed interrupt points
// from the terminal. An optional HTTP surface exposes the same state
// for external status/control.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/autoweb/agent/browser"
	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/graph"
	"github.com/autoweb/agent/nodes"
	"github.com/autoweb/agent/state"
)

// Config wires every dependency the supervisor needs to start and drive
// a graph run.
type Config struct {
	NodeConfig   *nodes.Config
	Checkpointer graph.Checkpointer
	Browser      browser.Browser
	Logger       core.Logger

	OutputDir string

	// HTTPAddr, when non-empty, starts the optional status/control
	// surface (spec §6 "optional HTTP control plane") on this address.
	HTTPAddr string
}

// Supervisor owns one Graph and the REPL loop that feeds it.
type Supervisor struct {
	cfg      Config
	graph    *graph.Graph
	repl     *replController
	renderer *Renderer
	metrics  *runMetrics
}

// New builds a Supervisor. The graph is constructed here (not by the
// caller) so its InterruptController is always the supervisor's own
// interactive one rather than the headless default.
func New(cfg Config) *Supervisor {
	if cfg.Logger == nil {
		cfg.Logger = &core.NoOpLogger{}
	}
	repl := newReplController(os.Stdin, os.Stdout)
	g := graph.New(cfg.NodeConfig, cfg.Checkpointer, repl, cfg.Logger)
	return &Supervisor{
		cfg:      cfg,
		graph:    g,
		repl:     repl,
		renderer: NewRenderer(),
		metrics:  newRunMetrics(),
	}
}

// Run starts the interactive REPL. It blocks until the user exits.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.cfg.HTTPAddr != "" {
		srv := newStatusServer(s.cfg.HTTPAddr, s.cfg.Checkpointer, s.cfg.Logger, s.metrics)
		go srv.run()
	}

	fmt.Println(s.renderer.Banner())
	scanner := bufio.NewScanner(os.Stdin)

	var threadID string
	for {
		fmt.Print(s.renderer.Prompt())
		if !scanner.Scan() {
			fmt.Println()
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		s.metrics.turnsTotal.Inc()
		if line == "" {
			continue
		}

		switch {
		case line == "exit" || line == "quit":
			return nil
		case line == "new" || line == "reset":
			threadID = ""
			fmt.Println(s.renderer.Info("started a new thread"))
			continue
		case strings.HasPrefix(line, "qa "):
			s.runQA(ctx, strings.TrimSpace(strings.TrimPrefix(line, "qa ")))
			continue
		}

		if threadID == "" {
			threadID = uuid.NewString()
			s.runNew(ctx, threadID, line)
			continue
		}
		s.runContinuation(ctx, threadID, line)
	}
}

func (s *Supervisor) runNew(ctx context.Context, threadID, task string) {
	initial := state.AgentState{UserTask: task}
	s.drive(ctx, func() (graph.Outcome, error) {
		return s.graph.Run(ctx, threadID, initial)
	})
}

// runContinuation resumes the last checkpoint for threadID. If the resumed
// run is done, the graph runs again on the same thread with input as the
// new UserTask and IsComplete cleared; otherwise the resumed outcome is
// returned and input is not used (spec §4.1 "continuation keywords keep
// the same thread").
func (s *Supervisor) runContinuation(ctx context.Context, threadID, input string) {
	s.drive(ctx, func() (graph.Outcome, error) {
		out, err := s.graph.Resume(ctx, threadID)
		if err != nil {
			return graph.Outcome{}, err
		}
		if out.Done {
			next := out.State
			next.UserTask = input
			next.IsComplete = false
			return s.graph.Run(ctx, threadID, next)
		}
		return out, nil
	})
}

// runQA answers a one-off knowledge-base question outside of any graph
// thread, using the headless RAG node directly.
func (s *Supervisor) runQA(ctx context.Context, question string) {
	if question == "" {
		fmt.Println(s.renderer.Error("usage: qa <question>"))
		return
	}
	st := state.AgentState{Plan: question, RAGTaskType: state.RAGTaskQA}
	update, _, err := nodes.RAG(ctx, st, s.cfg.NodeConfig)
	if err != nil {
		fmt.Println(s.renderer.Error(err.Error()))
		return
	}
	if update.FinishedSteps != nil {
		for _, step := range update.FinishedSteps.Value {
			fmt.Println(s.renderer.Markdown(step))
		}
	}
}

func (s *Supervisor) drive(ctx context.Context, step func() (graph.Outcome, error)) {
	out, err := step()
	s.metrics.recordRun(out.Done, err)
	if err != nil {
		fmt.Println(s.renderer.Error(err.Error()))
		return
	}
	for _, line := range out.State.FinishedSteps {
		fmt.Println(s.renderer.Markdown(line))
	}
	if out.State.VerificationResult != nil {
		fmt.Println(s.renderer.Summary(out.State.VerificationResult.Summary, out.State.VerificationResult.IsSuccess))
	}
	if out.Done {
		fmt.Println(s.renderer.Info("run complete"))
	}
}

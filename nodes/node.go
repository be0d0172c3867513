// Package nodes implements the orchestration graph's pure node functions:
// each takes the current AgentState and a Config of wired dependencies and
// returns a partial state.Update plus the name of the next node to run.
// The graph package (not this one) owns the loop that applies updates and
// follows routing decisions.
package nodes

import (
	"context"
	"time"

	"github.com/autoweb/agent/browser"
	"github.com/autoweb/agent/cache"
	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/kb"
	"github.com/autoweb/agent/runner"
	"github.com/autoweb/agent/state"
	"github.com/autoweb/agent/toolbox"
)

// Next names the node the graph should run after the current one returns.
type Next string

const (
	NodeObserver     Next = "observer"
	NodePlanner      Next = "planner"
	NodeCacheLookup  Next = "cache_lookup"
	NodeCoder        Next = "coder"
	NodeExecutor     Next = "executor"
	NodeVerifier     Next = "verifier"
	NodeRAG          Next = "rag"
	NodeErrorHandler Next = "error_handler"
	NodeEnd          Next = "end"
)

// LoopCeiling bounds how many Planner iterations one task may take before
// the graph force-terminates with is_complete=true (spec §4.5, §7.1).
const LoopCeiling = 10

// StepFailThreshold is how many consecutive verification failures on the
// same step trigger the Planner's abandon-approach directive.
const StepFailThreshold = 2

// CoderRetryLimit bounds how many times the Executor sends syntax-ish
// failures back to the Coder before escalating to ErrorHandler.
const CoderRetryLimit = 3

// Config wires every dependency a node needs. Built once at startup and
// passed by reference to every node call; nodes never hold state between
// calls — everything persistent lives in AgentState or in Config's
// long-lived collaborators (caches, writer, browser).
type Config struct {
	AI core.AIClient

	DOMCache        *cache.DOMCache
	DOMCacheWriter  *cache.AsyncWriter
	CodeCache       *cache.CodeCache
	CodeCacheWriter *cache.AsyncWriter

	KBWriter      *kb.Writer
	QueryAnalyzer *kb.QueryAnalyzer
	KBStore       *kb.Store

	Tab     browser.Tab
	Browser browser.Browser
	Runner  runner.Runner
	Toolbox *toolbox.Toolbox

	OutputDir   string
	CDPEndpoint string

	// ToolboxAddr is the loopback address of the toolbox.Server generated
	// code reaches for HTTP/file/DB helpers (spec §4.8's injected scope).
	// Empty means no toolbox server is running, in which case generated
	// code's toolbox calls will fail at the HTTP layer rather than here.
	ToolboxAddr string

	Logger core.Logger

	CodeCacheEnabled bool

	ContinuationKeywords []string
	StoreKBKeywords      []string
	RAGStoreKeywords     []string
	RAGAskKeywords       []string

	FatalKeywords    []string
	SyntaxKeywords   []string
	LocatorKeywords  []string

	ExecTimeout time.Duration
}

// Node is the uniform shape every orchestration node implements: a pure
// function from the current state snapshot to a partial update plus the
// next node to run. The graph package applies the update via state.Apply
// and follows Next.
type Node func(ctx context.Context, s state.AgentState, cfg *Config) (state.Update, Next, error)

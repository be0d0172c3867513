package nodes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/autoweb/agent/runner"
	"github.com/autoweb/agent/state"
)

// defaultSyntaxKeywords and defaultLocatorKeywords classify an
// execution's captured output into the two recoverable error categories
// spec §4.8 names; Config may override either list.
var (
	defaultSyntaxKeywords = []string{
		"syntax error", "indentation", "name error", "type error", "attribute error",
	}
	defaultLocatorKeywords = []string{
		"element not found", "timeout", "stale", "not interactable",
	}
)

func keywordsOrDefault(configured, fallback []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return fallback
}

func matchesAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// classifyExecution reports which of the two recoverable categories the
// combined captured output and execution error belong to.
func classifyExecution(combined string, syntaxKeywords, locatorKeywords []string) (syntaxish, locatorish bool) {
	syntaxish = matchesAny(combined, syntaxKeywords)
	locatorish = matchesAny(combined, locatorKeywords)
	return
}

// persistCodeLog writes the program and its captured output to a
// timestamped file under logs/code_log (spec §4.8, §6 persisted layout).
func persistCodeLog(outputDir, program, output string, hadError bool, now time.Time) error {
	kind := "exec"
	if hadError {
		kind = "error"
	}
	dir := filepath.Join(outputDir, "logs", "code_log")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("executor: create code_log dir: %w", err)
	}
	name := fmt.Sprintf("%s_%s.log", kind, now.Format("20060102_150405"))
	content := "=== program ===\n" + program + "\n=== output ===\n" + output + "\n"
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0644)
}

// Executor runs the current generated program through cfg.Runner,
// classifies the result, and routes per spec §4.8's five-branch table.
func Executor(ctx context.Context, s state.AgentState, cfg *Config) (state.Update, Next, error) {
	preURL := s.CurrentURL
	if cfg.Tab != nil {
		if u, err := cfg.Tab.CurrentURL(ctx); err == nil {
			preURL = u
		}
	}

	if cfg.Toolbox != nil {
		cfg.Toolbox.SetCurrentURL(preURL)
	}

	timeout := cfg.ExecTimeout
	result, err := cfg.Runner.Run(ctx, runner.Request{
		Program:     s.GeneratedCode,
		CDPEndpoint: cfg.CDPEndpoint,
		OutputDir:   cfg.OutputDir,
		CurrentURL:  preURL,
		ToolboxAddr: cfg.ToolboxAddr,
		Timeout:     timeout,
	})
	if err != nil {
		// Critical: the runner itself failed to execute the program at all
		// (as opposed to the program running and producing an error in its
		// own output). Caught here and turned into a routed state update
		// rather than escaping the node boundary (spec §7.2).
		errMsg := err.Error()
		errType := "critical"
		return state.Update{Error: &errMsg, ErrorType: &errType}, NodeErrorHandler, nil
	}

	postURL := preURL
	if cfg.Tab != nil {
		if u, uerr := cfg.Tab.CurrentURL(ctx); uerr == nil {
			postURL = u
		}
	}

	output := result.Stdout + "\n" + result.Stderr
	if postURL != preURL {
		output += fmt.Sprintf("\n[url changed: %s -> %s]", preURL, postURL)
	}
	if result.Err != nil {
		output += "\n" + result.Err.Error()
	}

	hadError := result.Err != nil || matchesAny(output, keywordsOrDefault(cfg.SyntaxKeywords, defaultSyntaxKeywords)) ||
		matchesAny(output, keywordsOrDefault(cfg.LocatorKeywords, defaultLocatorKeywords))

	if logErr := persistCodeLog(cfg.OutputDir, s.GeneratedCode, output, hadError, time.Now()); logErr != nil {
		cfg.Logger.Warn("executor: failed to persist code log", map[string]interface{}{"error": logErr.Error()})
	}

	executionLog := output
	update := state.Update{ExecutionLog: &executionLog, CurrentURL: &postURL}

	syntaxish, locatorish := classifyExecution(output, keywordsOrDefault(cfg.SyntaxKeywords, defaultSyntaxKeywords), keywordsOrDefault(cfg.LocatorKeywords, defaultLocatorKeywords))

	// Rule 1: cache-sourced code that errors at all trips the breaker and
	// returns control to Planner, regardless of error shape.
	if s.CodeSource == state.CodeSourceCache && hadError {
		breaker := true
		reflection := state.AppendList("cached code failed during execution: " + firstLine(output))
		if cfg.CodeCache != nil {
			if err := cfg.CodeCache.RecordFailure(s.CacheHitID, "code_cache", "execution error"); err != nil {
				cfg.Logger.Warn("executor: failed to audit code cache hit", map[string]interface{}{"error": err.Error()})
			}
		}
		update.CacheFailedThisRound = &breaker
		update.Reflections = &reflection
		return update, NodePlanner, nil
	}

	// Rule 2/3: syntax-ish errors retry through Coder up to the limit,
	// then escalate.
	if syntaxish {
		if s.CoderRetryCount < CoderRetryLimit {
			retry := s.CoderRetryCount + 1
			update.CoderRetryCount = &retry
			return update, NodeCoder, nil
		}
		errMsg := firstLine(output)
		errType := "syntax"
		update.Error = &errMsg
		update.ErrorType = &errType
		return update, NodeErrorHandler, nil
	}

	// Rule 4: locator-ish errors escalate directly.
	if locatorish {
		errMsg := firstLine(output)
		errType := "locator"
		update.Error = &errMsg
		update.ErrorType = &errType
		return update, NodeErrorHandler, nil
	}

	// Rule 5: clean execution.
	resetRetry := 0
	update.CoderRetryCount = &resetRetry
	return update, NodeVerifier, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

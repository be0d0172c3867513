package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/state"
)

// defaultFatalKeywords short-circuits the LLM judgment call entirely — these
// strings in the execution log are unambiguous enough that asking an LLM
// to confirm failure would only add latency (spec §4.9).
var defaultFatalKeywords = []string{
	"runtime error:", "traceback", "element not found", "timeout", "execution failed", "critical",
}

// maxVerifierLogTail is how much of the execution log the LLM judgment
// call receives — recent context matters far more than the full history.
const maxVerifierLogTail = 2000

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// parseVerifierResponse extracts the Status/Summary pair the verifier
// prompt requires.
func parseVerifierResponse(content string) (success bool, summary string) {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)
		switch {
		case strings.HasPrefix(lower, "status:"):
			value := strings.TrimSpace(trimmed[len("status:"):])
			success = strings.EqualFold(value, "success")
		case strings.HasPrefix(lower, "summary:"):
			summary = strings.TrimSpace(trimmed[len("summary:"):])
		}
	}
	return success, summary
}

// isNonTrivialCode reports whether generated code is worth remembering
// in the Code Cache — mirrors the same pure-navigation filter the cache
// itself applies on Save, used here only to decide routing to RAG.
func isNonTrivialCode(code string) bool {
	return len(strings.TrimSpace(code)) > 0 && !isPureNavigationLike(code)
}

// isPureNavigationLike is a routing-time approximation of the Code
// Cache's own pure-navigation filter — the cache makes the authoritative
// call on Save; this just avoids routing trivial turns to RAG.
func isPureNavigationLike(code string) bool {
	trimmed := strings.TrimSpace(code)
	return len(trimmed) < 80 && strings.Contains(trimmed, "navigate(") && strings.Count(trimmed, "\n") < 3
}

// Verifier judges whether the last execution satisfied the current plan
// step, fast-pathing on fatal keywords before falling back to an LLM call
// (spec §4.9).
func Verifier(ctx context.Context, s state.AgentState, cfg *Config) (state.Update, Next, error) {
	if matchesAny(s.ExecutionLog, defaultFatalKeywords) {
		if s.CodeSource == state.CodeSourceCache {
			breaker := true
			if cfg.CodeCache != nil {
				if err := cfg.CodeCache.RecordFailure(s.CacheHitID, "code_cache", "fatal keyword in execution log"); err != nil {
					cfg.Logger.Warn("verifier: failed to audit code cache hit", map[string]interface{}{"error": err.Error()})
				}
			}
			return state.Update{CacheFailedThisRound: &breaker}, NodePlanner, nil
		}
		reflection := state.AppendList("execution log contained a fatal error: " + firstLine(s.ExecutionLog))
		return state.Update{Reflections: &reflection}, NodeObserver, nil
	}

	prompt := buildVerifierPrompt(s.Plan, tail(s.ExecutionLog, maxVerifierLogTail))
	resp, err := cfg.AI.GenerateResponse(ctx, prompt, &core.AIOptions{Temperature: 0})
	if err != nil {
		return state.Update{}, NodeErrorHandler, fmt.Errorf("verifier: judgment llm call: %w", err)
	}

	success, summary := parseVerifierResponse(resp.Content)
	result := &state.VerificationResult{IsSuccess: success, Summary: summary}
	update := state.Update{VerificationResult: &result}

	if success {
		finished := state.AppendList(summary)
		update.FinishedSteps = &finished
		if isNonTrivialCode(s.GeneratedCode) && s.CodeSource != state.CodeSourceCache {
			ragType := state.RAGTaskStoreCode
			update.RAGTaskType = &ragType
			return update, NodeRAG, nil
		}
		return update, NodeObserver, nil
	}

	reflection := state.AppendList("step failed: " + summary)
	update.Reflections = &reflection
	if s.CodeSource == state.CodeSourceCache {
		breaker := true
		if cfg.CodeCache != nil {
			if err := cfg.CodeCache.RecordFailure(s.CacheHitID, "code_cache", "verifier judged failure: "+summary); err != nil {
				cfg.Logger.Warn("verifier: failed to audit code cache hit", map[string]interface{}{"error": err.Error()})
			}
		}
		update.CacheFailedThisRound = &breaker
		return update, NodePlanner, nil
	}
	return update, NodeObserver, nil
}

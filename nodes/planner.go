package nodes

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/state"
)

// planMarker and doneMarker are the two lines the step prompt requires.
// When both appear in one response, DONE wins.
const (
	planMarker = "【PLAN】"
	doneMarker = "【DONE】"
)

// registrableDomain strips a leading "www." from a hostname, giving a
// coarse enough comparison for continuity detection (full public-suffix
// parsing is out of scope — this matches what the source's continuity
// check actually compares).
func registrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// isContinuation decides whether newTask continues the current session
// (keep state) or starts a fresh one (clear state). A task is treated as
// a continuation only when it names an explicit continuation keyword or
// mentions the current page's domain; anything else defaults to fresh.
func isContinuation(newTask, currentURL string, continuationKeywords []string) bool {
	lower := strings.ToLower(newTask)
	for _, kw := range continuationKeywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	domain := registrableDomain(currentURL)
	if domain != "" && strings.Contains(lower, strings.ToLower(domain)) {
		return true
	}
	return false
}

// parsePlanResponse extracts whichever of 【PLAN】/【DONE】 appears,
// preferring DONE when both are present.
func parsePlanResponse(content string) (isDone bool, text string) {
	var planLine, doneLine string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, doneMarker) {
			doneLine = strings.TrimSpace(strings.TrimPrefix(trimmed, doneMarker))
		} else if strings.HasPrefix(trimmed, planMarker) {
			planLine = strings.TrimSpace(strings.TrimPrefix(trimmed, planMarker))
		}
	}
	if doneLine != "" {
		return true, doneLine
	}
	return false, planLine
}

// containsAny reports whether lower(haystack) contains any of needles,
// case-insensitively. needles are compared lowercased too.
func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// kbAlreadyStored reports whether any finished step already records a
// knowledge-base write, so Planner's termination interception doesn't
// re-trigger store_kb every time DONE is reached.
func kbAlreadyStored(finishedSteps []string) bool {
	for _, step := range finishedSteps {
		if strings.Contains(strings.ToLower(step), "knowledge base") || strings.Contains(strings.ToLower(step), "stored in kb") {
			return true
		}
	}
	return false
}

// Planner decides the next atomic step, handling fresh-task resets, the
// fail-override directive, and the DONE-termination interception that
// can route to RAG instead of ending the graph.
func Planner(ctx context.Context, s state.AgentState, cfg *Config) (state.Update, Next, error) {
	if s.LoopCount == 0 {
		if isTrivialPage(s.CurrentURL) {
			plan := buildStartPrompt(s.UserTask)
			loopCount := 1
			return state.Update{Plan: &plan, LoopCount: &loopCount}, NodeCacheLookup, nil
		}

		if !isContinuation(s.UserTask, s.CurrentURL, cfg.ContinuationKeywords) {
			reset := state.ResetForFreshTask(s, s.UserTask)
			loopCount := 1
			reset.LoopCount = loopCount
			return freshTaskUpdate(reset), NodeObserver, nil
		}
	}

	if s.LoopCount >= LoopCeiling {
		complete := true
		finished := state.AppendList("reached the iteration limit before the task could be completed")
		return state.Update{IsComplete: &complete, FinishedSteps: &finished}, NodeEnd, nil
	}

	failOverride := ""
	stepFailCount := s.StepFailCount
	if s.VerificationResult != nil && !s.VerificationResult.IsSuccess {
		stepFailCount++
	} else {
		stepFailCount = 0
	}
	if stepFailCount >= StepFailThreshold {
		failOverride = failOverrideDirective
	}

	prompt := buildStepPrompt(
		s.UserTask,
		s.CurrentURL,
		strings.Join(s.FinishedSteps, "\n"),
		summarizeStrategies(s.LocatorSuggestions),
		strings.Join(s.Reflections, "\n"),
		failOverride,
	)

	resp, err := cfg.AI.GenerateResponse(ctx, prompt, &core.AIOptions{Temperature: 0})
	if err != nil {
		return state.Update{}, NodeErrorHandler, fmt.Errorf("planner: step prompt llm call: %w", err)
	}

	isDone, text := parsePlanResponse(resp.Content)
	loopCount := s.LoopCount + 1
	update := state.Update{LoopCount: &loopCount, StepFailCount: &stepFailCount}

	if !isDone {
		plan := text
		update.Plan = &plan
		return update, NodeCacheLookup, nil
	}

	if containsAny(s.UserTask, cfg.StoreKBKeywords) && !kbAlreadyStored(s.FinishedSteps) {
		ragType := state.RAGTaskStoreKB
		update.RAGTaskType = &ragType
		plan := text
		update.Plan = &plan
		return update, NodeRAG, nil
	}

	if containsAny(text, cfg.RAGStoreKeywords) {
		ragType := state.RAGTaskStoreKB
		update.RAGTaskType = &ragType
		plan := text
		update.Plan = &plan
		return update, NodeRAG, nil
	}
	if containsAny(text, cfg.RAGAskKeywords) {
		ragType := state.RAGTaskQA
		update.RAGTaskType = &ragType
		plan := text
		update.Plan = &plan
		return update, NodeRAG, nil
	}

	complete := true
	finished := state.AppendList(text)
	update.IsComplete = &complete
	update.FinishedSteps = &finished
	return update, NodeEnd, nil
}

// freshTaskUpdate converts the fully-reset AgentState ResetForFreshTask
// produced into the equivalent Update so Planner can return it through
// the normal reducer path rather than bypassing Apply.
func freshTaskUpdate(reset state.AgentState) state.Update {
	userTask := reset.UserTask
	plan := reset.Plan
	generatedCode := reset.GeneratedCode
	executionLog := reset.ExecutionLog
	domSkeleton := reset.DOMSkeleton
	domHash := reset.DOMHash
	errStr := reset.Error
	errType := reset.ErrorType
	codeSource := reset.CodeSource
	observerSource := reset.ObserverSource
	domCacheHitID := reset.DOMCacheHitID
	coderRetryCount := reset.CoderRetryCount
	stepFailCount := reset.StepFailCount
	cacheFailed := reset.CacheFailedThisRound
	loopCount := reset.LoopCount
	isComplete := reset.IsComplete
	var verification *state.VerificationResult

	clearFinished := state.ClearList[string]()
	clearReflections := state.ClearList[string]()
	clearLocators := state.ClearList[state.StrategyEntry]()

	return state.Update{
		UserTask:             &userTask,
		Plan:                 &plan,
		GeneratedCode:        &generatedCode,
		ExecutionLog:         &executionLog,
		DOMSkeleton:          &domSkeleton,
		DOMHash:              &domHash,
		LocatorSuggestions:   &clearLocators,
		FinishedSteps:        &clearFinished,
		Reflections:          &clearReflections,
		VerificationResult:   &verification,
		Error:                &errStr,
		ErrorType:            &errType,
		CoderRetryCount:      &coderRetryCount,
		CodeSource:           &codeSource,
		CacheFailedThisRound: &cacheFailed,
		ObserverSource:       &observerSource,
		DOMCacheHitID:        &domCacheHitID,
		StepFailCount:        &stepFailCount,
		LoopCount:            &loopCount,
		IsComplete:           &isComplete,
	}
}

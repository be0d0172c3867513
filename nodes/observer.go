package nodes

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/autoweb/agent/browser"
	"github.com/autoweb/agent/cache"
	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/state"
)

// searchEngineHosts are the well-known search-home hosts treated as
// trivial when visited with no query — there is nothing page-specific to
// observe on a bare search box.
var searchEngineHosts = map[string]bool{
	"google.com":     true,
	"www.google.com": true,
	"bing.com":       true,
	"www.bing.com":   true,
	"duckduckgo.com": true,
}

// isTrivialPage reports whether rawURL needs no DOM analysis at all:
// blank starting pages, data: URIs, internal chrome:// pages, and a bare
// search-engine home with no query string.
func isTrivialPage(rawURL string) bool {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" || trimmed == "about:blank" {
		return true
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "data", "chrome":
		return true
	}
	if searchEngineHosts[u.Hostname()] && u.RawQuery == "" {
		return true
	}
	return false
}

// priorStepFailed reports whether the last Verifier judgment (if any) or
// an outstanding error_type indicates the previous step did not succeed —
// either signal invalidates whatever locator assumptions were cached for
// this turn.
func priorStepFailed(s state.AgentState) bool {
	if s.ErrorType != "" {
		return true
	}
	return s.VerificationResult != nil && !s.VerificationResult.IsSuccess
}

// Observer captures the current page's DOM, decides whether fresh
// locator analysis is warranted, and either replays a DOM Cache hit or
// calls the LLM to propose locator strategies (spec §4.4).
func Observer(ctx context.Context, s state.AgentState, cfg *Config) (state.Update, Next, error) {
	currentURL, err := cfg.Tab.CurrentURL(ctx)
	if err != nil {
		return state.Update{}, NodeErrorHandler, fmt.Errorf("observer: read current url: %w", err)
	}

	update := state.Update{CurrentURL: &currentURL}

	if isTrivialPage(currentURL) {
		return update, NodePlanner, nil
	}

	rawDOM, err := cfg.Tab.CaptureDOM(ctx)
	if err != nil {
		return state.Update{}, NodeErrorHandler, fmt.Errorf("observer: capture dom: %w", err)
	}

	skeleton := string(rawDOM)
	if node, parseErr := browser.ParseDOMTree(rawDOM); parseErr == nil {
		skeleton = node.Flatten()
	}

	compacted := cache.CompactDOM(skeleton)
	domHash := cache.DOMHash(compacted)

	auditPriorCacheHit(s, cfg)

	if domHash == s.DOMHash && !priorStepFailed(s) {
		return update, NodePlanner, nil
	}

	update.DOMSkeleton = &skeleton
	update.DOMHash = &domHash

	hits, err := cfg.DOMCache.Search(ctx, currentURL, skeleton, s.UserTask, unmarshalStrategies)
	if err != nil {
		cfg.Logger.Warn("observer: dom cache search failed", map[string]interface{}{"error": err.Error()})
	}
	if len(hits) > 0 {
		best := bestDOMHit(hits)
		observerSource := "dom_cache"
		hitID := best.ID
		update.ObserverSource = &observerSource
		update.DOMCacheHitID = &hitID
		update.LocatorSuggestions = ptrAppend(best.LocatorSuggestions)
		return update, NodePlanner, nil
	}

	finishedSteps := strings.Join(s.FinishedSteps, "\n")
	prompt := buildDOMAnalysisPrompt(s.UserTask, finishedSteps, currentURL, compacted)

	resp, err := cfg.AI.GenerateResponse(ctx, prompt, &core.AIOptions{Temperature: 0})
	if err != nil {
		return state.Update{}, NodeErrorHandler, fmt.Errorf("observer: dom analysis llm call: %w", err)
	}

	objs, _ := SalvageJSONArray(resp.Content)
	strategies := locatorObjectsToStrategies(objs)

	observerSource := "llm"
	noHitID := ""
	update.ObserverSource = &observerSource
	update.DOMCacheHitID = &noHitID
	update.LocatorSuggestions = ptrAppend(strategies)

	if len(strategies) > 0 && cfg.DOMCacheWriter != nil {
		cfg.DOMCacheWriter.Submit(func() error {
			return cfg.DOMCache.Save(context.Background(), currentURL, skeleton, s.UserTask, strategies, marshalStrategies)
		})
	}

	return update, NodePlanner, nil
}

// bestDOMHit picks the highest-scoring hit; DOMCache.Search does not
// guarantee a sort order beyond whatever the vector store's ranker
// returns, so Observer picks defensively rather than assuming hits[0].
func bestDOMHit(hits []cache.DOMHit) cache.DOMHit {
	best := hits[0]
	for _, h := range hits[1:] {
		if h.Score > best.Score {
			best = h
		}
	}
	return best
}

// auditPriorCacheHit records a failure against last turn's DOM-cache hit
// if the step that followed it did not succeed — audit only, the cache
// row itself is never deleted (spec §4.4, §4.2).
func auditPriorCacheHit(s state.AgentState, cfg *Config) {
	if s.DOMCacheHitID == "" || !priorStepFailed(s) {
		return
	}
	if cfg.DOMCache == nil {
		return
	}
	if err := cfg.DOMCache.RecordFailure(s.DOMCacheHitID, "dom_cache", "prior step failed after dom cache hit"); err != nil {
		cfg.Logger.Warn("observer: failed to audit dom cache hit", map[string]interface{}{"error": err.Error()})
	}
}

// ptrAppend is a small helper turning a slice into the append-form
// FieldUpdate the Apply reducer expects.
func ptrAppend(entries []state.StrategyEntry) *state.FieldUpdate[state.StrategyEntry] {
	u := state.AppendList(entries...)
	return &u
}

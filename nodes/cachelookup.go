package nodes

import (
	"context"
	"fmt"

	"github.com/autoweb/agent/cache"
	"github.com/autoweb/agent/state"
)

// CacheLookup tries to reuse a Code Cache hit for the current step before
// falling back to a fresh LLM generation (spec §4.6).
func CacheLookup(ctx context.Context, s state.AgentState, cfg *Config) (state.Update, Next, error) {
	if s.CacheFailedThisRound || !cfg.CodeCacheEnabled || isTrivialPage(s.CurrentURL) {
		source := state.CodeSourceLLM
		return state.Update{CodeSource: &source}, NodeCoder, nil
	}

	locatorInfo := summarizeStrategies(s.LocatorSuggestions)
	hits, err := cfg.CodeCache.Search(ctx, s.Plan, locatorInfo, s.UserTask, s.CurrentURL, 5)
	if err != nil {
		cfg.Logger.Warn("cachelookup: code cache search failed", map[string]interface{}{"error": err.Error()})
		source := state.CodeSourceLLM
		return state.Update{CodeSource: &source}, NodeCoder, nil
	}
	if len(hits) == 0 {
		source := state.CodeSourceLLM
		return state.Update{CodeSource: &source}, NodeCoder, nil
	}

	best := hits[0]
	for _, h := range hits[1:] {
		if h.Score > best.Score {
			best = h
		}
	}

	code := best.Code
	diffs := cache.DiffTaskParams(best.UserTask, s.UserTask)
	if len(diffs) > 0 {
		mutated, logLine := cache.ApplySubstitutions(code, diffs)
		code = mutated
		if logLine != "" {
			cfg.Logger.Info(fmt.Sprintf("cachelookup: %s", logLine), nil)
		}
	}

	source := state.CodeSourceCache
	hitID := best.ID
	return state.Update{
		CodeSource:    &source,
		CacheHitID:    &hitID,
		GeneratedCode: &code,
	}, NodeExecutor, nil
}

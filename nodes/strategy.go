package nodes

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/autoweb/agent/state"
)

// marshalStrategies serializes a strategy list for storage in the DOM
// cache's locator_suggestions scalar column.
func marshalStrategies(entries []state.StrategyEntry) string {
	out, err := json.Marshal(entries)
	if err != nil {
		return "[]"
	}
	return string(out)
}

// unmarshalStrategies is the DOM Cache's read-side counterpart —
// tolerant of an empty or malformed column, returning nil rather than
// erroring, since a cache read that can't decode its payload should be
// treated the same as "no hit" by the caller.
func unmarshalStrategies(raw string) []state.StrategyEntry {
	if raw == "" {
		return nil
	}
	var entries []state.StrategyEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	return entries
}

// defaultStrategyConfidence is assigned to strategies freshly proposed by
// the DOM-analysis LLM call, which does not itself report a confidence
// score the way a replayed cache hit implicitly carries one (its past
// success is the confidence signal).
const defaultStrategyConfidence = 0.75

// locatorObjectToStrategy adapts one DOM-analysis locator object (the
// {locator, action_suggestion, sub_locators?, opens_new_tab?,
// current_step_reasoning} shape the LLM returns) into a StrategyEntry.
func locatorObjectToStrategy(obj map[string]interface{}) state.StrategyEntry {
	locator, _ := obj["locator"].(string)
	action, _ := obj["action_suggestion"].(string)
	reasoning, _ := obj["current_step_reasoning"].(string)

	desc := reasoning
	if opensNewTab, ok := obj["opens_new_tab"].(bool); ok && opensNewTab {
		if desc != "" {
			desc += " "
		}
		desc += "(opens a new tab)"
	}

	return state.StrategyEntry{
		Strategy:    action,
		Selector:    locator,
		Description: desc,
		Confidence:  defaultStrategyConfidence,
	}
}

// locatorObjectsToStrategies converts every salvaged locator object,
// skipping any with no selector — a strategy that names no locator is
// useless to a caller trying to act on it.
func locatorObjectsToStrategies(objs []map[string]interface{}) []state.StrategyEntry {
	out := make([]state.StrategyEntry, 0, len(objs))
	for _, o := range objs {
		s := locatorObjectToStrategy(o)
		if s.Selector == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// summarizeStrategies renders the accumulated locator_suggestions as the
// pipe-joined "locator_info" summary the Code Cache's Search/Save calls
// take — a compact single string rather than the full JSON payload.
func summarizeStrategies(entries []state.StrategyEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s:%s", e.Strategy, e.Selector))
	}
	return strings.Join(parts, "|")
}

package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/autoweb/agent/core"
)

// QueryAnalysis is a structured, LLM-derived breakdown of a free-text
// question, grounding any filter expression in fields the registry has
// actually seen rather than letting the model invent a field name.
type QueryAnalysis struct {
	FilterExpr  string `json:"filter_expr"`
	SearchQuery string `json:"search_query"`
	SortField   string `json:"sort_field"`
	SortOrder   string `json:"sort_order"`
}

const queryAnalyzerPromptTemplate = `You are analyzing a question against a knowledge base.

Available fields:
%s

Question: %s

Respond with a single JSON object with these keys:
- filter_expr: a filter expression over the available fields, or "" if none applies
- search_query: the semantic search text to use (default to the question itself)
- sort_field: a field to sort by, or "" if none applies
- sort_order: "asc" or "desc", or "" if sort_field is empty

Respond with JSON only, no commentary.`

// QueryAnalyzer turns a free-text question into a QueryAnalysis, grounding
// filter expressions against the field registry's ranked field list so
// the model can't reference a field nobody has ever ingested.
type QueryAnalyzer struct {
	client   core.AIClient
	registry *FieldRegistry
	logger   core.Logger
}

// NewQueryAnalyzer wires an AI client to a field registry.
func NewQueryAnalyzer(client core.AIClient, registry *FieldRegistry, logger core.Logger) *QueryAnalyzer {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &QueryAnalyzer{client: client, registry: registry, logger: logger}
}

// Analyze asks the LLM to structure question against the current field
// registry. On any parse or call failure it falls back to a pure semantic
// search over question, mirroring query_analyzer.py's except branches.
func (a *QueryAnalyzer) Analyze(ctx context.Context, question string) QueryAnalysis {
	fallback := QueryAnalysis{SearchQuery: question}

	prompt := fmt.Sprintf(queryAnalyzerPromptTemplate, a.registry.FormatForPrompt(), question)
	resp, err := a.client.GenerateResponse(ctx, prompt, &core.AIOptions{Temperature: 0})
	if err != nil {
		a.logger.Warn("kb: query analysis LLM call failed", map[string]interface{}{"error": err.Error()})
		return fallback
	}

	jsonStr := extractJSONObject(resp.Content)
	var analysis QueryAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		a.logger.Warn("kb: query analysis JSON parse failed", map[string]interface{}{"error": err.Error(), "raw": resp.Content})
		return fallback
	}
	if analysis.SearchQuery == "" {
		analysis.SearchQuery = question
	}
	return analysis
}

// extractJSONObject strips a markdown code fence (```json ... ``` or
// ``` ... ```) around a JSON object if present, otherwise returns the
// input unchanged.
func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.Contains(s, "```") {
		return s
	}
	parts := strings.SplitN(s, "```", 3)
	if len(parts) < 2 {
		return s
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

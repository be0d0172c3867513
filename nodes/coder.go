package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/state"
)

// codeFenceRe extracts the body of the first fenced code block in an LLM
// response, with or without a language tag.
var codeFenceRe = regexp.MustCompile("(?s)```(?:[a-zA-Z]*\\n)?(.*?)```")

// extractCode pulls the program out of a fenced block; if none is
// present, the whole response is taken as the program (spec §4.7).
func extractCode(content string) string {
	if m := codeFenceRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(content)
}

// Coder asks the LLM to generate one automation program implementing the
// current plan step, given the accumulated locator strategies (spec §4.7).
// It always routes to Executor.
func Coder(ctx context.Context, s state.AgentState, cfg *Config) (state.Update, Next, error) {
	locatorJSON, err := json.Marshal(s.LocatorSuggestions)
	if err != nil {
		locatorJSON = []byte("[]")
	}

	prompt := buildCoderPrompt(string(locatorJSON))
	resp, err := cfg.AI.GenerateResponse(ctx, prompt, &core.AIOptions{Temperature: 0, SystemPrompt: s.Plan})
	if err != nil {
		return state.Update{}, NodeErrorHandler, fmt.Errorf("coder: llm call: %w", err)
	}

	code := extractCode(resp.Content)
	source := state.CodeSourceLLM

	return state.Update{
		GeneratedCode: &code,
		CodeSource:    &source,
	}, NodeExecutor, nil
}

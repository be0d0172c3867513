package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/autoweb/agent/core"
	"github.com/autoweb/agent/state"
)

// parseErrorHandlerResponse reports whether the LLM's one-word verdict
// was RETRY (anything else, including a malformed response, is treated
// as TERMINATE — an ambiguous judgment call should not loop forever).
func parseErrorHandlerResponse(content string) bool {
	return strings.EqualFold(strings.TrimSpace(content), "RETRY")
}

// ErrorHandler asks the LLM to decide between retrying from observation
// or terminating the task, for every error class that reached it:
// syntax-retries-exhausted, locator-ish, and critical (spec §7.2).
func ErrorHandler(ctx context.Context, s state.AgentState, cfg *Config) (state.Update, Next, error) {
	reflection := state.AppendList(fmt.Sprintf("error handler invoked (%s): %s", s.ErrorType, s.Error))

	prompt := buildErrorHandlerPrompt(s.UserTask, s.Error, s.ErrorType)
	resp, err := cfg.AI.GenerateResponse(ctx, prompt, &core.AIOptions{Temperature: 0})
	if err != nil {
		cfg.Logger.Warn("errorhandler: llm call failed, terminating", map[string]interface{}{"error": err.Error()})
		complete := true
		finished := state.AppendList("task terminated after an unrecoverable error: " + s.Error)
		return state.Update{IsComplete: &complete, FinishedSteps: &finished, Reflections: &reflection}, NodeEnd, nil
	}

	if parseErrorHandlerResponse(resp.Content) {
		errStr := ""
		errType := ""
		return state.Update{
			Reflections: &reflection,
			Error:       &errStr,
			ErrorType:   &errType,
		}, NodeObserver, nil
	}

	complete := true
	finished := state.AppendList("task terminated: " + s.Error)
	return state.Update{
		IsComplete:    &complete,
		FinishedSteps: &finished,
		Reflections:   &reflection,
	}, NodeEnd, nil
}

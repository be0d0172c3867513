package nodes

import "fmt"

// domAnalysisPromptTemplate asks the LLM to propose locator strategies
// for the current page given the task and what's been done so far.
const domAnalysisPromptTemplate = `You are analyzing a web page to find how to interact with it.

Task: %s

Finished steps so far:
%s

Current URL: %s

DOM skeleton (compressed):
%s

Return a JSON array of locator strategy objects. Each object has:
- "locator": a selector expression identifying the target element
- "action_suggestion": what action to take (click, type, extract, etc.)
- "sub_locators": optional array of related locators for composite elements
- "opens_new_tab": optional boolean, true if this action opens a new tab
- "current_step_reasoning": a short explanation of why this locator fits the task

Return JSON only, no commentary.`

func buildDOMAnalysisPrompt(userTask, finishedSteps, currentURL, domSkeleton string) string {
	return fmt.Sprintf(domAnalysisPromptTemplate, userTask, finishedSteps, currentURL, domSkeleton)
}

// startPromptTemplate is used on the very first turn against a trivial
// (blank/new-tab) page — there is nothing to observe yet, so the only
// sensible first step is navigation.
const startPromptTemplate = `The user wants: %s

The browser is on a blank starting page. Propose the first step: navigate
to the URL the task implies. Respond with a line beginning with 【PLAN】
describing that single step.`

func buildStartPrompt(userTask string) string {
	return fmt.Sprintf(startPromptTemplate, userTask)
}

// stepPromptTemplate is the Planner's main decision prompt. It must
// require a 【PLAN】 or 【DONE】 marker so routing can parse the response
// without an extra structured-output round trip.
const stepPromptTemplate = `Task: %s
Current URL: %s

Finished steps:
%s

Accumulated locator strategies observed on this page:
%s

Reflections on past failures:
%s
%s
Decide the next atomic step. If the task is fully satisfied, respond with
a line beginning with 【DONE】 summarizing the outcome. Otherwise respond
with a line beginning with 【PLAN】 describing exactly one atomic action
(a single click, type, submit, or extract — never a sequence). If both
markers would apply, 【DONE】 wins.`

func buildStepPrompt(userTask, currentURL, finishedSteps, locatorSummary, reflections, failOverride string) string {
	return fmt.Sprintf(stepPromptTemplate, userTask, currentURL, finishedSteps, locatorSummary, reflections, failOverride)
}

// failOverrideDirective is injected into the step prompt once
// stepFailCount reaches its threshold, instructing the planner to try a
// different approach rather than repeat a failing one.
const failOverrideDirective = "\nThe last two attempts at this step failed. Abandon the current approach entirely and try a fundamentally different one.\n"

// coderSystemPrompt is invariant: it defines the target automation
// dialect available to generated code (tab/browser/toolbox/results) and
// must not vary per call, since the Code Cache's saved programs are only
// valid if every generation round used the same contract.
const coderSystemPrompt = `You generate a single automation program that interacts with a web page
through these bindings, already present in scope — do not redeclare them:

- tab: the current browser tab (navigate, click, type, extract text)
- browser: the browser session (for opening new tabs)
- results: a list already in scope; append extracted data to it
- toolbox: http_request(url, method, headers, params, data), download_file(url, path),
  db_insert(table, row), save_data(rows, path), clean_html(html), notify(msg)

Locator strategies observed on the current page (JSON):
%s

Write exactly one program implementing the current plan step using only
these bindings. Return the program in a single fenced code block.`

func buildCoderPrompt(locatorJSON string) string {
	return fmt.Sprintf(coderSystemPrompt, locatorJSON)
}

// verifierPromptTemplate asks the LLM to judge whether the last execution
// satisfied the current plan step.
const verifierPromptTemplate = `Plan step: %s

Execution log (most recent portion):
%s

Judge whether this step succeeded. Respond with exactly two lines:
Status: success|fail
Summary: one sentence describing what happened.`

func buildVerifierPrompt(plan, executionLogTail string) string {
	return fmt.Sprintf(verifierPromptTemplate, plan, executionLogTail)
}

// errorHandlerPromptTemplate asks the LLM to decide whether a critical or
// exhausted error is worth retrying.
const errorHandlerPromptTemplate = `Task: %s
Error: %s
Error type: %s

Decide whether to retry from observation or terminate the task. Respond
with exactly one word: RETRY or TERMINATE.`

func buildErrorHandlerPrompt(userTask, errMsg, errType string) string {
	return fmt.Sprintf(errorHandlerPromptTemplate, userTask, errMsg, errType)
}

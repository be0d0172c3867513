package nodes

import "testing"

func TestRegistrableDomain_StripsWWW(t *testing.T) {
	if got := registrableDomain("https://www.example.com/path"); got != "example.com" {
		t.Errorf("got %q", got)
	}
}

func TestIsContinuation_KeywordMatch(t *testing.T) {
	if !isContinuation("show me the next page", "https://example.com", []string{"next page", "continue"}) {
		t.Error("expected continuation keyword match")
	}
}

func TestIsContinuation_DomainMentioned(t *testing.T) {
	if !isContinuation("scrape more from example.com", "https://example.com/listing", nil) {
		t.Error("expected continuation via domain match")
	}
}

func TestIsContinuation_DefaultFresh(t *testing.T) {
	if isContinuation("do something totally unrelated", "https://example.com", nil) {
		t.Error("expected default to fresh (no continuation signal)")
	}
}

func TestParsePlanResponse_DoneWinsOverPlan(t *testing.T) {
	content := "【PLAN】 click the button\n【DONE】 task finished"
	isDone, text := parsePlanResponse(content)
	if !isDone || text != "task finished" {
		t.Errorf("expected DONE to win, got isDone=%v text=%q", isDone, text)
	}
}

func TestParsePlanResponse_PlanOnly(t *testing.T) {
	isDone, text := parsePlanResponse("【PLAN】 click next page")
	if isDone || text != "click next page" {
		t.Errorf("expected plan-only parse, got isDone=%v text=%q", isDone, text)
	}
}

func TestContainsAny_CaseInsensitive(t *testing.T) {
	if !containsAny("Store In Knowledge Base please", []string{"knowledge base"}) {
		t.Error("expected case-insensitive match")
	}
}

func TestKBAlreadyStored_DetectsPriorWrite(t *testing.T) {
	if !kbAlreadyStored([]string{"opened page", "stored in kb successfully"}) {
		t.Error("expected prior kb write detected")
	}
}

func TestKBAlreadyStored_FalseWhenAbsent(t *testing.T) {
	if kbAlreadyStored([]string{"opened page", "clicked button"}) {
		t.Error("expected no kb write detected")
	}
}

package nodes

import "testing"

func TestParseVerifierResponse_Success(t *testing.T) {
	success, summary := parseVerifierResponse("Status: success\nSummary: clicked the button and extracted data")
	if !success || summary != "clicked the button and extracted data" {
		t.Errorf("got success=%v summary=%q", success, summary)
	}
}

func TestParseVerifierResponse_Failure(t *testing.T) {
	success, summary := parseVerifierResponse("Status: fail\nSummary: button was not clickable")
	if success || summary != "button was not clickable" {
		t.Errorf("got success=%v summary=%q", success, summary)
	}
}

func TestTail_TruncatesToLastN(t *testing.T) {
	if got := tail("abcdefgh", 3); got != "fgh" {
		t.Errorf("got %q", got)
	}
	if got := tail("ab", 3); got != "ab" {
		t.Errorf("got %q", got)
	}
}

func TestIsNonTrivialCode_PureNavigationIsTrivial(t *testing.T) {
	if isNonTrivialCode(`tab.navigate("https://example.com")`) {
		t.Error("expected pure navigation treated as trivial")
	}
}

func TestIsNonTrivialCode_RealProgramIsNonTrivial(t *testing.T) {
	code := "tab.navigate(\"https://example.com\")\nfor el in tab.query_all('.item'):\n    results.append(el.text())"
	if !isNonTrivialCode(code) {
		t.Error("expected multi-step program treated as non-trivial")
	}
}

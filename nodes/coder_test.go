package nodes

import "testing"

func TestExtractCode_FromFencedBlock(t *testing.T) {
	content := "Here is the program:\n```python\ntab.navigate(\"https://example.com\")\n```\nDone."
	got := extractCode(content)
	if got != `tab.navigate("https://example.com")` {
		t.Errorf("unexpected extraction: %q", got)
	}
}

func TestExtractCode_NoFenceReturnsWholeContent(t *testing.T) {
	content := "tab.navigate(\"https://example.com\")"
	if got := extractCode(content); got != content {
		t.Errorf("expected whole content returned, got %q", got)
	}
}

package browser

import "testing"

func TestParseDOMTree_RoundTrips(t *testing.T) {
	raw := []byte(`{"kind":"element","tag":"div","text":"hello","children":[{"kind":"element","tag":"span","text":"world"}]}`)
	node, err := ParseDOMTree(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Tag != "div" || len(node.Children) != 1 || node.Children[0].Tag != "span" {
		t.Errorf("unexpected parsed tree: %+v", node)
	}
}

func TestFlatten_SkipsSkippedNodes(t *testing.T) {
	node := DOMNode{
		Kind: DOMNodeElement,
		Tag:  "div",
		Children: []DOMNode{
			{Kind: DOMNodeSkipped, Reason: "hidden"},
			{Kind: DOMNodeElement, Tag: "p", Text: "visible"},
		},
	}
	got := node.Flatten()
	if got != "div p:visible" {
		t.Errorf("unexpected flatten output: %q", got)
	}
}

func TestFlatten_CompressedListUsesRepresentative(t *testing.T) {
	node := DOMNode{
		Kind:           DOMNodeCompressedList,
		Count:          50,
		Representative: &DOMNode{Kind: DOMNodeElement, Tag: "li", Text: "item"},
	}
	got := node.Flatten()
	if got != "li:item" {
		t.Errorf("unexpected flatten output: %q", got)
	}
}

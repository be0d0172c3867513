// Package browser defines the external browser-driver surface: a Tab the
// agent drives via navigation/DOM/eval operations, and the compressed
// DOM tree shape the (externally injected) skeletonizer script returns.
// The skeletonizer itself is out of scope — only its output shape and one
// concrete driver (chromedp) are modeled here.
package browser

import "encoding/json"

// DOMNodeKind discriminates the three shapes a skeletonizer node can take.
type DOMNodeKind string

const (
	// DOMNodeElement is a single interactive or structural element.
	DOMNodeElement DOMNodeKind = "element"
	// DOMNodeCompressedList is a run of near-identical sibling elements
	// collapsed into one representative plus a count, to keep long lists
	// (search results, product grids) from blowing up the skeleton size.
	DOMNodeCompressedList DOMNodeKind = "compressed_list"
	// DOMNodeSkipped marks a subtree the skeletonizer chose not to
	// descend into (scripts, styles, hidden elements).
	DOMNodeSkipped DOMNodeKind = "skipped"
)

// DOMNode is one node of the compressed JSON tree the skeletonizer
// returns. Exactly one of the kind-specific fields is populated,
// depending on Kind.
type DOMNode struct {
	Kind DOMNodeKind `json:"kind"`

	// Element fields.
	Tag        string            `json:"tag,omitempty"`
	Text       string            `json:"text,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Children   []DOMNode         `json:"children,omitempty"`

	// CompressedList fields.
	Representative *DOMNode `json:"representative,omitempty"`
	Count          int      `json:"count,omitempty"`

	// Skipped fields.
	Reason string `json:"reason,omitempty"`
}

// ParseDOMTree unmarshals the skeletonizer's raw JSON output into a tree
// of DOMNode values.
func ParseDOMTree(raw []byte) (DOMNode, error) {
	var root DOMNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return DOMNode{}, err
	}
	return root, nil
}

// Flatten renders the tree back to a single string in document order —
// the "DOM skeleton" text the rest of the system embeds and hashes. Kept
// intentionally simple (tag + text, comma-separated) since the exact
// skeletonizer rendering is out of scope; callers that need the original
// compact text should use the skeletonizer's raw string output directly
// and treat this only as a fallback renderer.
func (n DOMNode) Flatten() string {
	switch n.Kind {
	case DOMNodeSkipped:
		return ""
	case DOMNodeCompressedList:
		if n.Representative == nil {
			return ""
		}
		return n.Representative.Flatten()
	default:
		out := n.Tag
		if n.Text != "" {
			out += ":" + n.Text
		}
		for _, c := range n.Children {
			if rendered := c.Flatten(); rendered != "" {
				out += " " + rendered
			}
		}
		return out
	}
}

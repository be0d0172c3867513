package nodes

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fencedBlockRe strips a leading/trailing markdown code fence, with or
// without a language tag.
var fencedBlockRe = regexp.MustCompile("(?s)```(?:[a-zA-Z]*\\n)?(.*?)```")

// braceObjectRe finds candidate top-level JSON objects as a last resort —
// deliberately non-greedy and non-recursive; it catches the common case
// of flat locator-strategy objects, not arbitrarily nested JSON.
var braceObjectRe = regexp.MustCompile(`(?s)\{[^{}]*\}`)

// SalvageJSONArray recovers a JSON array of objects from LLM output that
// may be fenced, may contain multiple bare top-level objects instead of
// a proper array, or may be otherwise malformed. Each stage is tried in
// order and the first one that parses wins.
func SalvageJSONArray(raw string) ([]map[string]interface{}, error) {
	candidate := stripFence(raw)

	if arr, err := parseArray(candidate); err == nil {
		return arr, nil
	}

	if spliced, ok := spliceTopLevelObjects(candidate); ok {
		if arr, err := parseArray(spliced); err == nil {
			return arr, nil
		}
	}

	return regexExtractObjects(candidate), nil
}

func stripFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

func parseArray(s string) ([]map[string]interface{}, error) {
	var arr []map[string]interface{}
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return nil, err
	}
	return arr, nil
}

// spliceTopLevelObjects handles the "}<whitespace>{" pattern produced
// when a model emits several bare objects back to back instead of
// wrapping them in an array.
func spliceTopLevelObjects(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") {
		return "", false
	}
	joined := regexp.MustCompile(`\}\s*\{`).ReplaceAllString(trimmed, "},{")
	if joined == trimmed {
		return "", false
	}
	return "[" + joined + "]", true
}

// regexExtractObjects is the last-resort path: find every brace-delimited
// span and keep whichever ones parse as standalone JSON objects.
func regexExtractObjects(s string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, span := range braceObjectRe.FindAllString(s, -1) {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(span), &obj); err == nil {
			out = append(out, obj)
		}
	}
	return out
}

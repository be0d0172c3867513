package cache

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// tokenRe splits text into alphanumeric runs or single non-space
// characters — the same granularity the substitution pass diffs over, so
// "top 10 movies" and "top 20 movies" line up token-for-token except at
// the number that actually changed.
var tokenRe = regexp.MustCompile(`[A-Za-z0-9]+|[^\sA-Za-z0-9]`)

func tokenize(s string) []string {
	return tokenRe.FindAllString(s, -1)
}

// Substitution is one (old -> new) replacement derived from comparing a
// cache hit's stored user_task against the current one.
type Substitution struct {
	Old string
	New string
}

// DiffTaskParams tokenizes storedTask and currentTask and returns the
// substring replacements implied by their token-level diff. Only replace
// ops where both sides are at least 2 characters are kept — single
// characters are too likely to be incidental punctuation, not a genuine
// parameter change. Sorted by descending old-string length so a later
// regex substitution pass can't have a short match clobber part of a
// longer one first.
func DiffTaskParams(storedTask, currentTask string) []Substitution {
	storedTokens := tokenize(storedTask)
	currentTokens := tokenize(currentTask)

	matcher := difflib.NewMatcher(storedTokens, currentTokens)
	var subs []Substitution
	for _, op := range matcher.GetOpCodes() {
		if op.Tag != 'r' {
			continue
		}
		oldStr := strings.Join(storedTokens[op.I1:op.I2], "")
		newStr := strings.Join(currentTokens[op.J1:op.J2], "")
		if len(oldStr) >= 2 && len(newStr) >= 2 {
			subs = append(subs, Substitution{Old: oldStr, New: newStr})
		}
	}

	sort.Slice(subs, func(i, j int) bool {
		return len(subs[i].Old) > len(subs[j].Old)
	})
	return subs
}

// quotedStringRe matches single- or double-quoted string literals, the
// only places substitution is allowed to touch — identifiers are never
// rewritten.
var quotedStringRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)

// ApplySubstitutions rewrites occurrences of each substitution's Old text
// with New, but only inside quoted string literals of code. Returns the
// mutated code and a human-readable log line describing what changed.
func ApplySubstitutions(code string, subs []Substitution) (string, string) {
	if len(subs) == 0 {
		return code, ""
	}

	var applied []string
	mutated := quotedStringRe.ReplaceAllStringFunc(code, func(literal string) string {
		for _, s := range subs {
			if strings.Contains(literal, s.Old) {
				literal = strings.ReplaceAll(literal, s.Old, s.New)
				applied = append(applied, fmt.Sprintf("%q -> %q", s.Old, s.New))
			}
		}
		return literal
	})

	if len(applied) == 0 {
		return code, ""
	}
	return mutated, "param substitution: " + strings.Join(applied, ", ")
}

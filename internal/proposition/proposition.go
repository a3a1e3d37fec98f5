// Package proposition parses and filters atomic-fact propositions produced
// by the enrichment pipeline's proposition-extraction step.
package proposition

import (
	"regexp"
	"strings"
)

var (
	bulletRe   = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)
	metaRe     = regexp.MustCompile(`(?i)^(here are|here is|this document|the following|i (?:found|extracted|identified)|sure[,.]?|certainly[,.]?)\b`)
	alphaRunRe = regexp.MustCompile(`[A-Za-z]{3,}`)
	minWords   = 5
	minLength  = 10
	maxLength  = 1000
)

// Parse splits a raw LLM completion into individual propositions, one per
// line, stripping bullet/numeral markers, discarding anything that fails
// Valid, and de-duplicating survivors while preserving their original
// order (a model re-stating the same fact twice shouldn't double it up).
func Parse(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		p := clean(line)
		if p == "" || !Valid(p) || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func clean(line string) string {
	line = bulletRe.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

// Valid rejects propositions that are too short, too long, lack a real word
// (a run of at least 3 alphabetic characters), or look like meta-commentary
// about the extraction task rather than an atomic fact extracted from the
// source text.
func Valid(p string) bool {
	if len(p) < minLength || len(p) > maxLength {
		return false
	}
	words := strings.Fields(p)
	if len(words) < minWords {
		return false
	}
	if !alphaRunRe.MatchString(p) {
		return false
	}
	if metaRe.MatchString(p) {
		return false
	}
	return true
}

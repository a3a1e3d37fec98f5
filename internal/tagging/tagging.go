// Package tagging normalizes extracted tag strings into the colon-delimited
// hierarchical namespace the tag retrieval channel indexes.
package tagging

import (
	"regexp"
	"strings"
)

var (
	segmentRe  = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// MaxDepth is the maximum number of colon-delimited segments a tag name may
// have; a deeper name is rejected by Valid.
const MaxDepth = 4

// commonSuffixes is a small heuristic singularization table; it trades
// linguistic completeness for predictability, since tag names only need to
// collapse obvious plural/singular duplicates ("models" vs "model"), not
// handle every irregular English noun.
var commonSuffixes = []struct{ plural, singular string }{
	{"ies", "y"},
	{"ses", "s"},
	{"s", ""},
}

// Normalize lowercases, strips punctuation runs to single hyphens, and
// singularizes each segment of a colon-delimited tag name, so
// "Machine-Learning:Transformers" and "machine learning : transformers"
// both resolve to "machine-learning:transformer".
func Normalize(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, ":")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		seg := normalizeSegment(p)
		if seg != "" {
			out = append(out, seg)
		}
	}
	return strings.Join(out, ":")
}

func normalizeSegment(s string) string {
	s = nonAlnumRe.ReplaceAllString(strings.TrimSpace(s), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return ""
	}
	return singularize(s)
}

func singularize(word string) string {
	if len(word) <= 3 {
		return word
	}
	for _, suf := range commonSuffixes {
		if strings.HasSuffix(word, suf.plural) && len(word) > len(suf.plural)+2 {
			return strings.TrimSuffix(word, suf.plural) + suf.singular
		}
	}
	return word
}

// Valid reports whether a normalized tag name matches the expected
// "segment(:segment)*" shape, is no deeper than MaxDepth, has no repeated
// segment, and is not self-containing (its first and last segments must
// differ, e.g. "ai:ai" and "ai:llm:llm" are both rejected).
func Valid(name string) bool {
	if name == "" {
		return false
	}
	segs := strings.Split(name, ":")
	if len(segs) > MaxDepth {
		return false
	}
	seen := make(map[string]bool, len(segs))
	for _, seg := range segs {
		if !segmentRe.MatchString(seg) {
			return false
		}
		if seen[seg] {
			return false
		}
		seen[seg] = true
	}
	if len(segs) > 1 && segs[0] == segs[len(segs)-1] {
		return false
	}
	return true
}

// Chain returns every ancestor-inclusive prefix of a tag name, root first:
// Chain("topic:ml:transformers") => ["topic", "topic:ml", "topic:ml:transformers"].
func Chain(name string) []string {
	parts := strings.Split(name, ":")
	out := make([]string, 0, len(parts))
	for i := range parts {
		out = append(out, strings.Join(parts[:i+1], ":"))
	}
	return out
}

// Depth returns the zero-based depth of a tag name (root segments are depth 0).
func Depth(name string) int {
	return strings.Count(name, ":")
}

// ExpandWithDescendants merges a set of requested tag names with their
// descendants (resolved by the caller, typically via store.Tags.Descendants),
// so a query for "topic:ml" also matches chunks tagged only with the more
// specific "topic:ml:transformers".
func ExpandWithDescendants(names []string, descendantsOf func(name string) []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	for _, n := range names {
		add(n)
		for _, d := range descendantsOf(n) {
			add(d)
		}
	}
	return out
}

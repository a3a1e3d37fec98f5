// Package timeframe extracts and strips natural-language time references from
// a query string, so the retrieval engine can apply them as a metadata filter
// instead of feeding them to the lexical/vector channels as ordinary terms.
package timeframe

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Range is a half-open [Start, End) window resolved from a query phrase.
type Range struct {
	Start time.Time
	End   time.Time
}

// relativePhrases maps a literal phrase to a function computing its range
// relative to now; checked before falling back to dateparse for absolute
// dates ("since March 2024", "before 2023-06-01").
var relativePhrases = []struct {
	re     *regexp.Regexp
	rangeF func(now time.Time, m []string) Range
}{
	{regexp.MustCompile(`(?i)\btoday\b`), func(now time.Time, _ []string) Range {
		start := startOfDay(now)
		return Range{Start: start, End: start.AddDate(0, 0, 1)}
	}},
	{regexp.MustCompile(`(?i)\byesterday\b`), func(now time.Time, _ []string) Range {
		start := startOfDay(now).AddDate(0, 0, -1)
		return Range{Start: start, End: start.AddDate(0, 0, 1)}
	}},
	{regexp.MustCompile(`(?i)\blast\s+(\d+)\s+days?\b`), func(now time.Time, m []string) Range {
		n := atoiDefault(m[1], 1)
		start := startOfDay(now).AddDate(0, 0, -n)
		return Range{Start: start, End: startOfDay(now).AddDate(0, 0, 1)}
	}},
	{regexp.MustCompile(`(?i)\blast\s+week\b`), func(now time.Time, _ []string) Range {
		start := startOfDay(now).AddDate(0, 0, -7)
		return Range{Start: start, End: startOfDay(now).AddDate(0, 0, 1)}
	}},
	{regexp.MustCompile(`(?i)\blast\s+(\d+)\s+weeks?\b`), func(now time.Time, m []string) Range {
		n := atoiDefault(m[1], 1)
		start := startOfDay(now).AddDate(0, 0, -7*n)
		return Range{Start: start, End: startOfDay(now).AddDate(0, 0, 1)}
	}},
	{regexp.MustCompile(`(?i)\blast\s+month\b`), func(now time.Time, _ []string) Range {
		start := startOfDay(now).AddDate(0, -1, 0)
		return Range{Start: start, End: startOfDay(now).AddDate(0, 0, 1)}
	}},
	{regexp.MustCompile(`(?i)\blast\s+(\d+)\s+months?\b`), func(now time.Time, m []string) Range {
		n := atoiDefault(m[1], 1)
		start := startOfDay(now).AddDate(0, -n, 0)
		return Range{Start: start, End: startOfDay(now).AddDate(0, 0, 1)}
	}},
	{regexp.MustCompile(`(?i)\blast\s+year\b`), func(now time.Time, _ []string) Range {
		start := startOfDay(now).AddDate(-1, 0, 0)
		return Range{Start: start, End: startOfDay(now).AddDate(0, 0, 1)}
	}},
	{regexp.MustCompile(`(?i)\bthis\s+week\b`), func(now time.Time, _ []string) Range {
		weekday := int(now.Weekday())
		start := startOfDay(now).AddDate(0, 0, -weekday)
		return Range{Start: start, End: start.AddDate(0, 0, 7)}
	}},
	{regexp.MustCompile(`(?i)\bthis\s+month\b`), func(now time.Time, _ []string) Range {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Range{Start: start, End: start.AddDate(0, 1, 0)}
	}},
	{regexp.MustCompile(`(?i)\bthis\s+year\b`), func(now time.Time, _ []string) Range {
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return Range{Start: start, End: start.AddDate(1, 0, 0)}
	}},
}

var sinceRe = regexp.MustCompile(`(?i)\bsince\s+([a-zA-Z0-9 ,\-/]+?)(?:[.?!]|$)`)
var beforeRe = regexp.MustCompile(`(?i)\bbefore\s+([a-zA-Z0-9 ,\-/]+?)(?:[.?!]|$)`)

// connectorSuffixRe matches a dangling preposition (optionally plus "the")
// immediately before a timeframe phrase — "...in the last 2 weeks" should
// strip to "...", not leave "in the" behind once "last 2 weeks" is removed.
var connectorSuffixRe = regexp.MustCompile(`(?i)\b(?:in|during|over|for|within)(?:\s+the)?\s*$`)

// Extract finds the first recognized timeframe phrase in query, returning
// the resolved range, the cleaned query with that phrase removed, and
// whether a timeframe was found at all.
func Extract(query string, now time.Time) (Range, string, bool) {
	for _, rp := range relativePhrases {
		if loc := rp.re.FindStringSubmatchIndex(query); loc != nil {
			m := submatches(query, loc)
			r := rp.rangeF(now, m)
			return r, stripPhrase(query, loc[0], loc[1]), true
		}
	}
	if loc := sinceRe.FindStringSubmatchIndex(query); loc != nil {
		phrase := query[loc[2]:loc[3]]
		if t, err := dateparse.ParseAny(strings.TrimSpace(phrase)); err == nil {
			return Range{Start: t, End: now.AddDate(1, 0, 0)}, stripPhrase(query, loc[0], loc[1]), true
		}
	}
	if loc := beforeRe.FindStringSubmatchIndex(query); loc != nil {
		phrase := query[loc[2]:loc[3]]
		if t, err := dateparse.ParseAny(strings.TrimSpace(phrase)); err == nil {
			return Range{Start: time.Time{}, End: t}, stripPhrase(query, loc[0], loc[1]), true
		}
	}
	return Range{}, query, false
}

// stripPhrase removes query[start:end] along with any dangling connector
// word ("in", "during the", ...) immediately preceding it, then collapses
// the resulting whitespace.
func stripPhrase(query string, start, end int) string {
	if m := connectorSuffixRe.FindStringIndex(query[:start]); m != nil {
		start = m[0]
	}
	cleaned := strings.TrimSpace(query[:start] + " " + query[end:])
	return collapseSpaces(cleaned)
}

func submatches(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		a, b := loc[2*i], loc[2*i+1]
		if a < 0 || b < 0 {
			continue
		}
		out[i] = s[a:b]
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atoiDefault(s string, def int) int {
	n := 0
	any := false
	for _, c := range s {
		if c < '0' || c > '9' {
			return def
		}
		any = true
		n = n*10 + int(c-'0')
	}
	if !any {
		return def
	}
	return n
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package timeframe

import (
	"testing"
	"time"
)

func TestExtractLastNDaysStripsPhrase(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r, cleaned, ok := Extract("show me incidents from the last 7 days about auth", now)
	if !ok {
		t.Fatal("expected timeframe to be recognized")
	}
	if cleaned != "show me incidents from the about auth" {
		t.Fatalf("unexpected cleaned query: %q", cleaned)
	}
	if !r.End.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", r.End)
	}
	if !r.Start.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", r.Start)
	}
}

func TestExtractStripsDanglingConnectorBeforePhrase(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r, cleaned, ok := Extract("what did we add about postgres in the last 2 weeks", now)
	if !ok {
		t.Fatal("expected timeframe to be recognized")
	}
	if cleaned != "what did we add about postgres" {
		t.Fatalf("unexpected cleaned query: %q", cleaned)
	}
	if !r.End.Equal(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", r.End)
	}
}

func TestExtractNoTimeframe(t *testing.T) {
	_, cleaned, ok := Extract("what is reciprocal rank fusion", time.Now())
	if ok {
		t.Fatal("expected no timeframe match")
	}
	if cleaned != "what is reciprocal rank fusion" {
		t.Fatalf("query should be unchanged, got %q", cleaned)
	}
}

func TestExtractSinceAbsoluteDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	r, _, ok := Extract("changes since 2024-01-01", now)
	if !ok {
		t.Fatal("expected timeframe to be recognized")
	}
	if r.Start.Year() != 2024 {
		t.Fatalf("unexpected start year: %v", r.Start)
	}
}

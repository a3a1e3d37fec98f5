package retrieve

import (
	"context"
	"testing"

	"ragengine/internal/models"
	"ragengine/internal/store"
)

func TestFuseRRFCombinesChannelRanks(t *testing.T) {
	channels := []channelHits{
		{name: "vector", hits: []store.Hit{{ID: "c1", DocID: "d1"}, {ID: "c2", DocID: "d1"}}},
		{name: "fulltext", hits: []store.Hit{{ID: "c2", DocID: "d1", Text: "hello"}, {ID: "c1", DocID: "d1"}}},
	}
	plan := Plan{RRFK: 60, VectorWeight: 1, FullTextWeight: 1}
	results := FuseRRF(channels, plan)
	if len(results) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(results))
	}
	// c1 is rank 1 in vector + rank 2 in fulltext; c2 is rank 2 in vector + rank 1
	// in fulltext. Symmetric, so scores should tie.
	if results[0].Score != results[1].Score {
		t.Fatalf("expected tied scores, got %v vs %v", results[0].Score, results[1].Score)
	}
}

func TestFuseRRFFavorsConsistentTopRank(t *testing.T) {
	channels := []channelHits{
		{name: "vector", hits: []store.Hit{{ID: "c1", DocID: "d1"}, {ID: "c2", DocID: "d1"}}},
		{name: "fulltext", hits: []store.Hit{{ID: "c1", DocID: "d1"}, {ID: "c2", DocID: "d1"}}},
	}
	plan := Plan{RRFK: 60, VectorWeight: 1, FullTextWeight: 1}
	results := FuseRRF(channels, plan)
	if results[0].ChunkID != "c1" {
		t.Fatalf("expected c1 to rank first, got %s", results[0].ChunkID)
	}
}

func TestDiversifyCapsPerDocument(t *testing.T) {
	in := []models.SearchResult{
		{ChunkID: "c1", DocumentID: "d1"},
		{ChunkID: "c2", DocumentID: "d1"},
		{ChunkID: "c3", DocumentID: "d2"},
	}
	out := Diversify(in, 1, 10)
	if len(out) != 2 {
		t.Fatalf("expected 2 results after per-doc cap, got %d", len(out))
	}
}

func TestClampTotalBoundsToConfiguredRange(t *testing.T) {
	cases := map[int]int{0: 1, -5: 1, 1: 1, 1000: 1000, 1001: 1000, 5000: 1000, 50: 50}
	for in, want := range cases {
		if got := clampTotal(in); got != want {
			t.Fatalf("clampTotal(%d) = %d, want %d", in, got, want)
		}
	}
}

// fakeLimitVector records the limit it was called with so tests can assert
// the candidate-headroom multiplier is applied before the channel is hit.
type fakeLimitVector struct{ gotLimit int }

func (f *fakeLimitVector) Upsert(context.Context, string, string, []float32, map[string]string) error {
	return nil
}
func (f *fakeLimitVector) Delete(context.Context, string) error         { return nil }
func (f *fakeLimitVector) RemoveDocument(context.Context, string) error { return nil }
func (f *fakeLimitVector) Dimension() int                               { return 0 }
func (f *fakeLimitVector) SimilaritySearch(_ context.Context, _ []float32, k int, _ map[string]string) ([]store.Hit, error) {
	f.gotLimit = k
	return nil, nil
}

func TestParallelCandidatesMultipliesCandidateLimitForHeadroom(t *testing.T) {
	vec := &fakeLimitVector{}
	m := store.Manager{Vector: vec, FullText: noopFullText{}, Tags: noopTags{}}
	plan := Plan{CandidateLimit: 100}
	ParallelCandidates(context.Background(), m, "q", nil, plan)
	if vec.gotLimit != 300 {
		t.Fatalf("expected channel query limit 300 (candidate_limit * 3), got %d", vec.gotLimit)
	}
}

type noopFullText struct{}

func (noopFullText) IndexChunk(context.Context, string, string, int, string, map[string]string, string) error {
	return nil
}
func (noopFullText) RemoveDocument(context.Context, string) error { return nil }
func (noopFullText) Search(context.Context, string, string, int, map[string]string) ([]store.Hit, error) {
	return nil, nil
}

type noopTags struct{}

func (noopTags) EnsureTag(context.Context, string) error             { return nil }
func (noopTags) Ancestors(context.Context, string) ([]string, error) { return nil, nil }
func (noopTags) Descendants(context.Context, string) ([]string, error) {
	return nil, nil
}
func (noopTags) TagChunk(context.Context, string, string, string, float64) error { return nil }
func (noopTags) TagDocument(context.Context, string, string) error              { return nil }
func (noopTags) RemoveDocument(context.Context, string) error                   { return nil }
func (noopTags) SearchByTags(context.Context, []string, int, map[string]string) ([]store.Hit, error) {
	return nil, nil
}

package query

import (
	"context"
	"testing"

	"ragengine/internal/config"
	"ragengine/internal/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (fakeEmbedder) Name() string               { return "fake" }
func (fakeEmbedder) Dimension() int             { return 3 }
func (fakeEmbedder) Ping(context.Context) error { return nil }

func TestSearchStripsTimeframeAndReturnsResults(t *testing.T) {
	ctx := context.Background()
	m := store.Manager{
		FullText:  store.NewMemoryFullText(),
		Vector:    store.NewMemoryVector(3),
		Tags:      store.NewMemoryTags(),
		Documents: store.NewMemoryDocuments(),
	}
	if err := m.FullText.IndexChunk(ctx, "c1", "d1", 0, "reciprocal rank fusion combines channels", nil, ""); err != nil {
		t.Fatal(err)
	}
	if err := m.Vector.Upsert(ctx, "c1", "d1", []float32{1, 0, 0}, nil); err != nil {
		t.Fatal(err)
	}

	o := New(m, fakeEmbedder{}, config.RetrievalConfig{CandidateLimit: 10, RRFK: 60, VectorWeight: 1, FullTextWeight: 1})
	results, err := o.Search(ctx, Request{Text: "rank fusion in the last 7 days", TotalResults: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one fused result")
	}
	if results[0].ChunkID != "c1" {
		t.Fatalf("expected c1 to be top result, got %s", results[0].ChunkID)
	}
}

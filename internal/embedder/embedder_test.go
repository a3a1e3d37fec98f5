package embedder

import (
	"context"
	"testing"
)

func TestDeterministicEmbedBatchReturnsNilForEmptyAfterClean(t *testing.T) {
	e := NewDeterministic(16, "test-model")
	vecs, err := e.EmbedBatch(context.Background(), []string{"hello world", "   ", ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(vecs))
	}
	if vecs[0] == nil {
		t.Fatal("expected non-nil vector for non-empty text")
	}
	if vecs[1] != nil {
		t.Fatal("expected nil vector for whitespace-only text")
	}
	if vecs[2] != nil {
		t.Fatal("expected nil vector for empty text")
	}
}

func TestDeterministicEmbedOneIsReproducible(t *testing.T) {
	e := NewDeterministic(8, "test-model")
	ctx := context.Background()
	a, err := e.EmbedBatch(ctx, []string{"same text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := e.EmbedBatch(ctx, []string{"same text"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a[0]) != len(b[0]) {
		t.Fatalf("expected matching vector lengths, got %d vs %d", len(a[0]), len(b[0]))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("expected reproducible vector, differed at index %d", i)
		}
	}
}

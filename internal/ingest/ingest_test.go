package ingest

import (
	"context"
	"testing"
	"time"

	"ragengine/internal/config"
	"ragengine/internal/dedup"
	"ragengine/internal/enrich"
	"ragengine/internal/store"
)

type noopEmbedder struct{}

func (noopEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}
func (noopEmbedder) Name() string               { return "noop" }
func (noopEmbedder) Dimension() int             { return 3 }
func (noopEmbedder) Ping(context.Context) error { return nil }

type noopCompletion struct{}

func (noopCompletion) Complete(context.Context, string, string) (string, error) { return "", nil }

func newTestOrchestrator() *Orchestrator {
	m := store.Manager{
		FullText:  store.NewMemoryFullText(),
		Vector:    store.NewMemoryVector(3),
		Tags:      store.NewMemoryTags(),
		Documents: store.NewMemoryDocuments(),
	}
	pipeline := &enrich.Pipeline{
		Embedder:   noopEmbedder{},
		Completion: noopCompletion{},
		Breakers:   enrich.NewRegistry(config.EnrichmentConfig{}),
	}
	return New(m, dedup.New(m.Documents), pipeline, config.ChunkingConfig{ChunkSize: 50, Overlap: 5}, config.KafkaConfig{})
}

func TestAddDocumentCreatesAndIndexes(t *testing.T) {
	o := newTestOrchestrator()
	out, err := o.AddDocument(context.Background(), Request{
		Location: "a.md", Title: "A", Tenant: "t1", Content: "hello world this is a test document", ModTime: time.Unix(100, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.ChunkCount == 0 {
		t.Fatal("expected at least one chunk")
	}
	hits, err := o.Manager.FullText.Search(context.Background(), "hello", "", 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("expected the document to be searchable")
	}
}

func TestAddDocumentSkipsUnchanged(t *testing.T) {
	o := newTestOrchestrator()
	ctx := context.Background()
	req := Request{Location: "a.md", Tenant: "t1", Content: "same content", ModTime: time.Unix(100, 0)}
	first, err := o.AddDocument(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := o.AddDocument(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if second.Action != dedup.ActionSkip {
		t.Fatalf("expected skip, got %v", second.Action)
	}
	if second.DocumentID != first.DocumentID {
		t.Fatalf("expected same document id, got %s vs %s", second.DocumentID, first.DocumentID)
	}
}


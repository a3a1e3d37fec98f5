package enrich

import (
	"context"
	"errors"
	"testing"

	"ragengine/internal/breaker"
	"ragengine/internal/config"
	"ragengine/internal/models"
)

type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}
func (f fakeEmbedder) Name() string                  { return "fake" }
func (f fakeEmbedder) Dimension() int                { return f.dim }
func (f fakeEmbedder) Ping(context.Context) error    { return nil }

type fakeCompletion struct {
	failStep string
	prompts  []string
}

func (f *fakeCompletion) Complete(_ context.Context, system, _ string) (string, error) {
	f.prompts = append(f.prompts, system)
	if f.failStep != "" && system == f.failStep {
		return "", errors.New("boom")
	}
	switch system {
	case summarizeSystemPrompt:
		return "a short summary", nil
	case keywordsSystemPrompt:
		return "alpha, beta, gamma", nil
	case tagsSystemPrompt:
		return "topic:ml, topic:infra", nil
	case propositionsSystemPrompt:
		return "- A fact about the chunk under test.", nil
	}
	return "", nil
}

func newTestPipeline(comp *fakeCompletion) *Pipeline {
	return &Pipeline{
		Embedder:   fakeEmbedder{dim: 4},
		Completion: comp,
		Breakers:   NewRegistry(config.EnrichmentConfig{}),
	}
}

func TestRunProducesAllSteps(t *testing.T) {
	p := newTestPipeline(&fakeCompletion{})
	doc := models.Document{ID: "doc1"}
	chunks := []models.Chunk{{DocumentID: "doc1", Index: 0, Text: "hello world"}}
	res, err := p.Run(context.Background(), doc, "hello world", chunks)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Embeddings) != 1 {
		t.Fatalf("expected 1 embedding, got %d", len(res.Embeddings))
	}
	if res.Summary != "a short summary" {
		t.Fatalf("unexpected summary: %q", res.Summary)
	}
	if len(res.Keywords) != 3 {
		t.Fatalf("expected 3 keywords, got %v", res.Keywords)
	}
	if len(res.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", res.Tags)
	}
	if len(res.Propositions) != 1 {
		t.Fatalf("expected 1 proposition, got %v", res.Propositions)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", res.Errors)
	}
}

func TestRunIsolatesFailingStep(t *testing.T) {
	p := newTestPipeline(&fakeCompletion{failStep: summarizeSystemPrompt})
	doc := models.Document{ID: "doc1"}
	chunks := []models.Chunk{{DocumentID: "doc1", Index: 0, Text: "hello world"}}
	res, err := p.Run(context.Background(), doc, "hello world", chunks)
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary != "" {
		t.Fatalf("expected empty summary after failure, got %q", res.Summary)
	}
	if _, ok := res.Errors[StepSummarize]; !ok {
		t.Fatalf("expected summarize error recorded, got %v", res.Errors)
	}
	if len(res.Embeddings) != 1 || len(res.Keywords) != 3 || len(res.Tags) != 2 {
		t.Fatalf("expected other steps to still succeed: %+v", res)
	}
}

func TestRunSkipsWhenBreakerOpen(t *testing.T) {
	p := newTestPipeline(&fakeCompletion{failStep: summarizeSystemPrompt})
	p.Breakers = breaker.NewRegistry(breaker.Config{FailureThreshold: 1, ResetTimeout: 0})
	p.Breakers.WithStep(StepSummarize, breaker.Config{FailureThreshold: 1})
	doc := models.Document{ID: "doc1"}
	chunks := []models.Chunk{{DocumentID: "doc1", Index: 0, Text: "hello world"}}

	if _, err := p.Run(context.Background(), doc, "hello world", chunks); err != nil {
		t.Fatal(err)
	}
	res, err := p.Run(context.Background(), doc, "hello world", chunks)
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(res.Errors[StepSummarize], breaker.ErrOpen) {
		t.Fatalf("expected breaker to be open on second call, got %v", res.Errors[StepSummarize])
	}
}

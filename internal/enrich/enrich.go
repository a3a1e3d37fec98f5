// Package enrich runs the concurrent enrichment DAG over a freshly chunked
// document: embedding, summarization, keyword extraction, tag extraction,
// and proposition extraction. Each step is guarded by its own circuit
// breaker so one failing step never blocks the others.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"ragengine/internal/breaker"
	"ragengine/internal/completion"
	"ragengine/internal/config"
	"ragengine/internal/embedder"
	"ragengine/internal/models"
	"ragengine/internal/proposition"
)

const (
	StepEmbed       = "generate_embeddings"
	StepSummarize   = "summarize"
	StepKeywords    = "extract_keywords"
	StepTags        = "extract_tags"
	StepPropositions = "extract_propositions"
)

// Result holds everything the DAG produced. Any step whose breaker was open
// or whose call failed is simply omitted from the result and recorded in
// Errors, rather than failing the whole enrichment.
type Result struct {
	Embeddings   []models.ChunkEmbedding
	Summary      string
	Keywords     []string
	Tags         []string
	Propositions []models.Proposition
	Errors       map[string]error
}

// Pipeline wires the concrete backends the DAG's steps call out to.
type Pipeline struct {
	Embedder   embedder.Embedder
	Completion completion.Client
	Breakers   *breaker.Registry
}

func NewRegistry(cfg config.EnrichmentConfig) *breaker.Registry {
	reg := breaker.NewRegistry(breaker.Config{FailureThreshold: 5, ResetTimeout: 60})
	reg.WithStep(StepEmbed, toBreakerConfig(cfg.GenerateEmbeddings))
	reg.WithStep(StepSummarize, toBreakerConfig(cfg.Summarize))
	reg.WithStep(StepKeywords, toBreakerConfig(cfg.ExtractKeywords))
	reg.WithStep(StepTags, toBreakerConfig(cfg.ExtractTags))
	reg.WithStep(StepPropositions, toBreakerConfig(cfg.ExtractPropositions))
	return reg
}

func toBreakerConfig(c config.BreakerConfig) breaker.Config {
	return breaker.Config{
		FailureThreshold: c.FailureThreshold,
		ResetTimeout:     secondsToDuration(c.ResetTimeout),
		HalfOpenMaxCalls: c.HalfOpenMaxCalls,
	}
}

// Run fans the five steps out concurrently over an errgroup; each step
// writes into its own slot of the shared result under its own breaker, so a
// step tripped open for this document still lets the others run to
// completion.
func (p *Pipeline) Run(ctx context.Context, doc models.Document, text string, chunks []models.Chunk) (Result, error) {
	res := Result{Errors: make(map[string]error)}
	var mu resultMutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := p.Breakers.Get(StepEmbed).Execute(func() error {
			embeddings, err := p.embedChunks(gctx, doc.ID, chunks)
			if err != nil {
				return err
			}
			mu.lock()
			res.Embeddings = embeddings
			mu.unlock()
			return nil
		})
		recordStepError(&mu, res.Errors, StepEmbed, err)
		return nil
	})

	g.Go(func() error {
		err := p.Breakers.Get(StepSummarize).Execute(func() error {
			summary, err := p.Completion.Complete(gctx, summarizeSystemPrompt, text)
			if err != nil {
				return err
			}
			mu.lock()
			res.Summary = strings.TrimSpace(summary)
			mu.unlock()
			return nil
		})
		recordStepError(&mu, res.Errors, StepSummarize, err)
		return nil
	})

	g.Go(func() error {
		err := p.Breakers.Get(StepKeywords).Execute(func() error {
			raw, err := p.Completion.Complete(gctx, keywordsSystemPrompt, text)
			if err != nil {
				return err
			}
			mu.lock()
			res.Keywords = splitCommaList(raw)
			mu.unlock()
			return nil
		})
		recordStepError(&mu, res.Errors, StepKeywords, err)
		return nil
	})

	g.Go(func() error {
		err := p.Breakers.Get(StepTags).Execute(func() error {
			raw, err := p.Completion.Complete(gctx, tagsSystemPrompt, text)
			if err != nil {
				return err
			}
			mu.lock()
			res.Tags = splitCommaList(raw)
			mu.unlock()
			return nil
		})
		recordStepError(&mu, res.Errors, StepTags, err)
		return nil
	})

	g.Go(func() error {
		err := p.Breakers.Get(StepPropositions).Execute(func() error {
			props, err := p.extractPropositions(gctx, doc.ID, chunks)
			if err != nil {
				return err
			}
			mu.lock()
			res.Propositions = props
			mu.unlock()
			return nil
		})
		recordStepError(&mu, res.Errors, StepPropositions, err)
		return nil
	})

	_ = g.Wait() // per-step errors are already captured in res.Errors; nothing here is fatal
	return res, nil
}

func (p *Pipeline) embedChunks(ctx context.Context, docID string, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	out := make([]models.ChunkEmbedding, len(chunks))
	for i, c := range chunks {
		out[i] = models.ChunkEmbedding{
			ID:         fmt.Sprintf("chunk:%s:%d", docID, c.Index),
			DocumentID: docID,
			Index:      c.Index,
			Text:       c.Text,
			Vector:     vectors[i],
			Model:      p.Embedder.Name(),
		}
	}
	return out, nil
}

func (p *Pipeline) extractPropositions(ctx context.Context, docID string, chunks []models.Chunk) ([]models.Proposition, error) {
	var out []models.Proposition
	for _, c := range chunks {
		raw, err := p.Completion.Complete(ctx, propositionsSystemPrompt, c.Text)
		if err != nil {
			return nil, fmt.Errorf("extract propositions for chunk %d: %w", c.Index, err)
		}
		for _, text := range proposition.Parse(raw) {
			out = append(out, models.Proposition{DocumentID: docID, ChunkIndex: c.Index, Text: text})
		}
	}
	return out, nil
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func recordStepError(mu *resultMutex, errs map[string]error, step string, err error) {
	if err == nil {
		return
	}
	mu.lock()
	errs[step] = err
	mu.unlock()
}

const summarizeSystemPrompt = "Summarize the document in 2-3 sentences. Respond with only the summary."
const keywordsSystemPrompt = "Extract up to 10 keywords from the text as a comma-separated list. Respond with only the list."
const tagsSystemPrompt = "Extract up to 5 hierarchical topic tags from the text, colon-delimited (e.g. topic:machine-learning), as a comma-separated list. Respond with only the list."
const propositionsSystemPrompt = "Extract the atomic factual propositions stated in this text, one per line, with no numbering or commentary."

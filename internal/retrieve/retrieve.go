// Package retrieve implements the hybrid retrieval engine: parallel
// candidate fan-out across the vector, full-text, and tag channels, fused
// by Reciprocal Rank Fusion into a single ranked result list.
package retrieve

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"ragengine/internal/config"
	"ragengine/internal/models"
	"ragengine/internal/store"
)

// Plan describes one query's fan-out parameters, derived from config and any
// per-query overrides (e.g. a tenant filter and the expanded tag names).
type Plan struct {
	CandidateLimit int
	RRFK           int
	VectorWeight   float64
	FullTextWeight float64
	TagWeight      float64
	Filter         map[string]string
	Language       string
	TagNames       []string // already expanded with descendants by the caller
}

func BuildPlan(cfg config.RetrievalConfig, filter map[string]string, tagNames []string) Plan {
	return Plan{
		CandidateLimit: cfg.CandidateLimit,
		RRFK:           cfg.RRFK,
		VectorWeight:   cfg.VectorWeight,
		FullTextWeight: cfg.FullTextWeight,
		TagWeight:      cfg.TagWeight,
		Filter:         filter,
		TagNames:       tagNames,
	}
}

// channelHits is a named slice of hits, kept separate per channel until
// fusion time so each channel contributes its own rank ordering to RRF.
type channelHits struct {
	name string
	hits []store.Hit
}

// candidateHeadroom is how much larger than plan.CandidateLimit each
// channel's own query is, so RRF has more candidates to rank over than the
// final result count it's fusing toward.
const candidateHeadroom = 3

// ParallelCandidates runs all three channels concurrently: a channel that
// errors (e.g. its backend is unreachable) contributes no hits instead of
// failing the whole query, since the other channels may still answer it.
func ParallelCandidates(ctx context.Context, m store.Manager, queryText string, queryVector []float32, plan Plan) []channelHits {
	results := make([]channelHits, 3)
	g, gctx := errgroup.WithContext(ctx)
	channelLimit := plan.CandidateLimit * candidateHeadroom

	g.Go(func() error {
		hits, err := m.Vector.SimilaritySearch(gctx, queryVector, channelLimit, plan.Filter)
		if err == nil {
			results[0] = channelHits{name: "vector", hits: hits}
		}
		return nil
	})
	g.Go(func() error {
		hits, err := m.FullText.Search(gctx, queryText, plan.Language, channelLimit, plan.Filter)
		if err == nil {
			results[1] = channelHits{name: "fulltext", hits: hits}
		}
		return nil
	})
	g.Go(func() error {
		if len(plan.TagNames) == 0 {
			return nil
		}
		hits, err := m.Tags.SearchByTags(gctx, plan.TagNames, channelLimit, plan.Filter)
		if err == nil {
			results[2] = channelHits{name: "tag", hits: hits}
		}
		return nil
	})
	_ = g.Wait()
	return results
}

// FuseRRF combines per-channel rankings with Reciprocal Rank Fusion:
// score(id) = sum over channels of weight_c / (k + rank_c(id)), rank 1-based.
// A chunk absent from a channel simply contributes 0 from that channel.
func FuseRRF(channels []channelHits, plan Plan) []models.SearchResult {
	type acc struct {
		docID      string
		text       string
		metadata   map[string]string
		score      float64
		vectorRank int
		textRank   int
		tagRank    int
	}
	byID := make(map[string]*acc)

	weightFor := func(name string) float64 {
		switch name {
		case "vector":
			return orDefault(plan.VectorWeight, 1)
		case "fulltext":
			return orDefault(plan.FullTextWeight, 1)
		case "tag":
			return orDefault(plan.TagWeight, 1)
		}
		return 1
	}
	k := plan.RRFK
	if k <= 0 {
		k = 60
	}

	for _, ch := range channels {
		w := weightFor(ch.name)
		for i, hit := range ch.hits {
			rank := i + 1
			a, ok := byID[hit.ID]
			if !ok {
				a = &acc{docID: hit.DocID, text: hit.Text, metadata: hit.Metadata}
				byID[hit.ID] = a
			}
			a.score += w / float64(k+rank)
			switch ch.name {
			case "vector":
				a.vectorRank = rank
			case "fulltext":
				a.textRank = rank
				if a.text == "" {
					a.text = hit.Text
				}
				if a.metadata == nil {
					a.metadata = hit.Metadata
				}
			case "tag":
				a.tagRank = rank
			}
		}
	}

	out := make([]models.SearchResult, 0, len(byID))
	for id, a := range byID {
		out = append(out, models.SearchResult{
			ChunkID:    id,
			DocumentID: a.docID,
			Text:       a.text,
			Score:      a.score,
			VectorRank: a.vectorRank,
			TextRank:   a.textRank,
			TagRank:    a.tagRank,
			Metadata:   a.metadata,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Diversify caps the number of results returned per document, so a single
// long document with many strong chunks doesn't crowd out every other
// document in the final result list.
func Diversify(results []models.SearchResult, perDocLimit, total int) []models.SearchResult {
	if perDocLimit <= 0 {
		perDocLimit = 1 << 30
	}
	counts := make(map[string]int)
	out := make([]models.SearchResult, 0, total)
	for _, r := range results {
		if counts[r.DocumentID] >= perDocLimit {
			continue
		}
		counts[r.DocumentID]++
		out = append(out, r)
		if total > 0 && len(out) >= total {
			break
		}
	}
	return out
}

// minTotal/maxTotal bound the final result count a caller may request,
// regardless of what it passed in.
const (
	minTotal = 1
	maxTotal = 1000
)

// clampTotal bounds a requested result count to [minTotal, maxTotal]; zero
// or negative is treated as "unspecified" and clamped up to minTotal.
func clampTotal(total int) int {
	if total < minTotal {
		return minTotal
	}
	if total > maxTotal {
		return maxTotal
	}
	return total
}

// Search runs the full engine: fan out, fuse, diversify.
func Search(ctx context.Context, m store.Manager, queryText string, queryVector []float32, plan Plan, perDocLimit, total int) ([]models.SearchResult, error) {
	if plan.CandidateLimit <= 0 {
		return nil, fmt.Errorf("retrieve: candidate limit must be positive")
	}
	channels := ParallelCandidates(ctx, m, queryText, queryVector, plan)
	fused := FuseRRF(channels, plan)
	return Diversify(fused, perDocLimit, clampTotal(total)), nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

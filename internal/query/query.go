// Package query implements the query orchestrator: strip timeframe phrases,
// expand requested tags, embed the remaining text, fan out across the three
// retrieval channels, and fuse the results.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ragengine/internal/config"
	"ragengine/internal/embedder"
	"ragengine/internal/models"
	"ragengine/internal/retrieve"
	"ragengine/internal/store"
	"ragengine/internal/tagging"
	"ragengine/internal/timeframe"
)

// Request is a single search query.
type Request struct {
	Text         string
	Tenant       string
	Tags         []string // caller-supplied tag filters, pre-normalization
	PerDocLimit  int
	TotalResults int

	SessionID    string
	UserID       string
	TrackSearch  bool // when true, the query is asynchronously recorded to search history
}

// Orchestrator wires the embedder and retrieval backends together for the
// query path.
type Orchestrator struct {
	Manager  store.Manager
	Embedder embedder.Embedder
	Cfg      config.RetrievalConfig
}

func New(m store.Manager, emb embedder.Embedder, cfg config.RetrievalConfig) *Orchestrator {
	return &Orchestrator{Manager: m, Embedder: emb, Cfg: cfg}
}

// Search strips any recognized timeframe phrase from the query text (turning
// it into a created_at metadata filter instead of free-text terms), expands
// requested tags to include their descendants, embeds the cleaned text, and
// runs the fused hybrid search.
func (o *Orchestrator) Search(ctx context.Context, req Request) ([]models.SearchResult, error) {
	cleaned := req.Text
	filter := map[string]string{}
	if req.Tenant != "" {
		filter["tenant"] = req.Tenant
	}
	var tf timeframe.Range
	var hasTimeframe bool
	if r, stripped, ok := timeframe.Extract(req.Text, time.Now()); ok {
		cleaned = stripped
		tf, hasTimeframe = r, true
	}

	tagNames := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		norm := tagging.Normalize(t)
		if tagging.Valid(norm) {
			tagNames = append(tagNames, norm)
		}
	}
	if len(tagNames) > 0 {
		tagNames = tagging.ExpandWithDescendants(tagNames, func(name string) []string {
			descendants, err := o.Manager.Tags.Descendants(ctx, name)
			if err != nil {
				return nil
			}
			return descendants
		})
	}

	// If there's nothing left to search on — no text to embed or run
	// full-text against, and no tag filter either — there is no query to
	// run; short-circuit rather than asking every channel for its "match
	// anything" default.
	if cleaned == "" && len(req.Tags) == 0 {
		return []models.SearchResult{}, nil
	}

	vectors, err := o.Embedder.EmbedBatch(ctx, []string{cleaned})
	if err != nil {
		return nil, fmt.Errorf("query: embed: %w", err)
	}

	plan := retrieve.BuildPlan(o.Cfg, filter, tagNames)
	results, err := retrieve.Search(ctx, o.Manager, cleaned, vectors[0], plan, req.PerDocLimit, req.TotalResults)
	if err != nil {
		return nil, err
	}
	if hasTimeframe {
		results = filterByTimeframe(results, tf)
	}
	o.recordSearch(req, cleaned, tagNames, results)
	return results, nil
}

// recordSearch asynchronously persists the query and the chunks it returned,
// unless the caller disabled tracking. Failures are logged, never surfaced —
// history is best-effort analytics, not part of the search contract.
func (o *Orchestrator) recordSearch(req Request, cleaned string, tagNames []string, results []models.SearchResult) {
	if !req.TrackSearch || o.Manager.History == nil {
		return
	}
	id := uuid.NewString()
	entry := models.SearchHistory{
		ID:          id,
		SessionID:   req.SessionID,
		UserID:      req.UserID,
		QueryText:   cleaned,
		Tags:        tagNames,
		ResultCount: len(results),
		CreatedAt:   time.Now(),
	}
	recorded := make([]models.SearchHistoryResult, len(results))
	for i, r := range results {
		recorded[i] = models.SearchHistoryResult{SearchID: id, ChunkID: r.ChunkID, Rank: i, Score: r.Score}
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.Manager.History.RecordSearch(ctx, entry, recorded); err != nil {
			log.Warn().Err(err).Str("search_id", id).Msg("failed to record search history")
		}
	}()
}

// filterByTimeframe drops results whose "created_at" metadata (RFC3339) falls
// outside the extracted range. Results with no created_at metadata are kept,
// since the retrieval backends don't guarantee that field is populated.
func filterByTimeframe(results []models.SearchResult, r timeframe.Range) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(results))
	for _, res := range results {
		raw, ok := res.Metadata["created_at"]
		if !ok {
			out = append(out, res)
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			out = append(out, res)
			continue
		}
		if !t.Before(r.Start) && t.Before(r.End) {
			out = append(out, res)
		}
	}
	return out
}

// Package store holds the persistence backends behind the three retrieval
// channels (full text, vector, and tag) plus the document registry the
// dedup engine and ingestion orchestrator consult.
package store

import (
	"context"

	"ragengine/internal/models"
)

// Hit is a single scored row returned by any retrieval channel.
type Hit struct {
	ID       string // chunk ID, e.g. "chunk:<doc_id>:<index>"
	DocID    string
	Score    float64
	Snippet  string
	Text     string
	Metadata map[string]string
}

// FullText is the lexical retrieval channel: Postgres tsvector plus pg_trgm
// trigram similarity as a fuzzy-match fallback.
type FullText interface {
	IndexChunk(ctx context.Context, id, docID string, index int, text string, metadata map[string]string, lang string) error
	RemoveDocument(ctx context.Context, docID string) error
	Search(ctx context.Context, query, lang string, limit int, filter map[string]string) ([]Hit, error)
}

// Vector is the dense retrieval channel.
type Vector interface {
	Upsert(ctx context.Context, id, docID string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	RemoveDocument(ctx context.Context, docID string) error
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Hit, error)
	Dimension() int
}

// Tags is both the tag hierarchy registry (create/lookup ancestors) and the
// third retrieval channel (chunks tagged with a name or its descendants).
//
// EnsureTag and TagChunk/TagDocument together maintain usage_count: EnsureTag
// creates a tag row with usage_count 0 if one doesn't already exist, and
// TagChunk/TagDocument each increment it by exactly one per new association
// they create (a repeat association for the same chunk/document and tag is a
// no-op, not a second increment).
type Tags interface {
	EnsureTag(ctx context.Context, name string) error
	Ancestors(ctx context.Context, name string) ([]string, error)
	Descendants(ctx context.Context, name string) ([]string, error)
	TagChunk(ctx context.Context, chunkID, docID, tagName string, confidence float64) error
	TagDocument(ctx context.Context, docID, tagName string) error
	RemoveDocument(ctx context.Context, docID string) error
	SearchByTags(ctx context.Context, names []string, limit int, filter map[string]string) ([]Hit, error)
}

// Documents is the relational registry of ingested documents, used by the
// dedup engine to resolve exact/near-duplicate matches before re-ingesting.
type Documents interface {
	Upsert(ctx context.Context, d DocumentRow) error
	GetByLocation(ctx context.Context, location, tenant string) (DocumentRow, bool, error)
	GetByContentHash(ctx context.Context, hash, tenant string) (DocumentRow, bool, error)
	GetByFileHash(ctx context.Context, hash, tenant string) (DocumentRow, bool, error)
	ListCandidatesForSimilarity(ctx context.Context, tenant string) ([]DocumentRow, error)
	Delete(ctx context.Context, docID string) error
}

// SearchHistory records queries and the chunks they returned, for analytics
// and future ranking feedback. RecordSearch is called fire-and-forget by the
// query orchestrator; implementations must be safe to call from a detached
// goroutine.
type SearchHistory interface {
	RecordSearch(ctx context.Context, s models.SearchHistory, results []models.SearchHistoryResult) error
}

// DocumentRow is the persisted shape of a models.Document.
type DocumentRow struct {
	ID          string
	Location    string
	Title       string
	SourceType  string
	ContentHash string
	FileHash    string
	ModTimeUnix int64
	Version     int
	Tenant      string
	Metadata    map[string]string
}

// Manager bundles the three retrieval backends plus the document registry
// and search-history sink.
type Manager struct {
	FullText  FullText
	Vector    Vector
	Tags      Tags
	Documents Documents
	History   SearchHistory
}

// Close releases any pooled connections held by the concrete backends.
func (m Manager) Close() {
	for _, c := range []any{m.FullText, m.Vector, m.Tags, m.Documents, m.History} {
		if closer, ok := c.(interface{ Close() }); ok {
			closer.Close()
		}
	}
}

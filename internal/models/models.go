// Package models defines the persistent domain entities shared across the
// ingestion and retrieval packages: documents, their chunked/embedded
// content, the tag hierarchy, and extracted propositions.
package models

import "time"

// Document is a single ingested source: a file, URL, or inline text blob.
type Document struct {
	ID        string
	Location  string // file path or URL the content was sourced from
	Title     string
	SourceType string // file|url|text
	Metadata  map[string]string
	ContentHash string // sha256 of cleaned text, used by the dedup engine
	FileHash    string // sha256 of raw bytes, when Location is a file
	ModTime     time.Time
	Version     int
	Tenant      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Content is the full cleaned text body associated with a Document.
type Content struct {
	DocumentID string
	Text       string
	Language   string
}

// Chunk is one character-bounded slice of a Document's content, prior to
// enrichment. Start/End are byte offsets into the document's cleaned text
// (end-exclusive), after the tentative chunk boundary at Start+ChunkSize has
// been pulled back to the nearest whitespace.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
	Start      int
	End        int
}

// ChunkEmbedding is a Chunk plus its dense vector representation.
type ChunkEmbedding struct {
	ID         string // "chunk:<doc_id>:<index>"
	DocumentID string
	Index      int
	Text       string
	Vector     []float32
	Model      string
}

// Tag is a node in the hierarchical, colon-delimited tag namespace, e.g.
// "topic:machine-learning:transformers".
type Tag struct {
	ID         string
	Name       string // fully-qualified, normalized name
	ParentName string // "" for roots
	Depth      int    // number of colon-delimited segments minus one
	UsageCount int     // document/chunk-tag associations created against this tag
}

// DocumentTag associates a Document with a Tag at a given confidence.
type DocumentTag struct {
	DocumentID string
	TagName    string
	Confidence float64
}

// ChunkTag associates a single Chunk with a Tag at a given confidence.
type ChunkTag struct {
	DocumentID string
	ChunkIndex int
	TagName    string
	Confidence float64
}

// Proposition is one atomic, self-contained factual statement extracted from
// a chunk of content.
type Proposition struct {
	DocumentID string
	ChunkIndex int
	Text       string
}

// SearchResult is a single hit returned from the query orchestrator after
// fusion across the vector, full-text, and tag channels.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Text       string
	Score      float64
	VectorRank int
	TextRank   int
	TagRank    int
	Metadata   map[string]string
}

// SearchHistory is one recorded query, persisted asynchronously by the query
// orchestrator unless the caller disabled tracking.
type SearchHistory struct {
	ID          string
	SessionID   string
	UserID      string
	QueryText   string
	Tags        []string
	ResultCount int
	CreatedAt   time.Time
}

// SearchHistoryResult associates a SearchHistory with one chunk it returned,
// preserving the rank it was returned at.
type SearchHistoryResult struct {
	SearchID string
	ChunkID  string
	Rank     int
	Score    float64
}

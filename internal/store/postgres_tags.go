package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgTags stores the hierarchical tag namespace as an adjacency list (name,
// parent_name, depth) alongside the chunk_tags join table, mirroring the
// node/edge split this store uses elsewhere for the document graph.
type pgTags struct{ pool *pgxpool.Pool }

func NewPostgresTags(pool *pgxpool.Pool) Tags {
	ctx := context.Background()
	_, _ = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tags (
  name TEXT PRIMARY KEY,
  parent_name TEXT,
  depth INT NOT NULL DEFAULT 0,
  usage_count BIGINT NOT NULL DEFAULT 0
);
`)
	_, _ = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS chunk_tags (
  chunk_id TEXT NOT NULL,
  doc_id TEXT NOT NULL,
  tag_name TEXT NOT NULL REFERENCES tags(name),
  confidence DOUBLE PRECISION NOT NULL DEFAULT 1,
  PRIMARY KEY (chunk_id, tag_name)
);
`)
	_, _ = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS document_tags (
  doc_id TEXT NOT NULL,
  tag_name TEXT NOT NULL REFERENCES tags(name),
  PRIMARY KEY (doc_id, tag_name)
);
`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS chunk_tags_tag_idx ON chunk_tags(tag_name)`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS chunk_tags_doc_idx ON chunk_tags(doc_id)`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS document_tags_tag_idx ON document_tags(tag_name)`)
	return &pgTags{pool: pool}
}

// EnsureTag walks a colon-delimited name ("topic:ml:transformers") and
// chain-creates every ancestor that does not already exist, so "topic:ml"
// and "topic" both become addressable nodes even if only the leaf was ever
// tagged onto a chunk.
func (p *pgTags) EnsureTag(ctx context.Context, name string) error {
	parts := strings.Split(name, ":")
	var parent *string
	for depth, i := 0, 0; i < len(parts); i, depth = i+1, depth+1 {
		full := strings.Join(parts[:i+1], ":")
		_, err := p.pool.Exec(ctx, `
INSERT INTO tags(name, parent_name, depth) VALUES($1,$2,$3)
ON CONFLICT (name) DO NOTHING
`, full, parent, depth)
		if err != nil {
			return err
		}
		p := full
		parent = &p
	}
	return nil
}

// Ancestors returns the chain from immediate parent up to the root,
// nearest first, by walking parent_name pointers rather than a recursive
// query — tag depth is bounded in practice so the N+1 cost is negligible.
func (p *pgTags) Ancestors(ctx context.Context, name string) ([]string, error) {
	var out []string
	current := name
	for {
		var parent *string
		err := p.pool.QueryRow(ctx, `SELECT parent_name FROM tags WHERE name=$1`, current).Scan(&parent)
		if err != nil || parent == nil {
			return out, nil
		}
		out = append(out, *parent)
		current = *parent
	}
}

// Descendants returns every tag whose name has `name` as a colon-delimited
// prefix, i.e. the whole subtree rooted at name (excluding name itself).
func (p *pgTags) Descendants(ctx context.Context, name string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT name FROM tags WHERE name LIKE $1`, name+":%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// TagChunk associates tagName with a chunk, incrementing the tag's
// usage_count exactly once per new association — a repeat call for the same
// chunk/tag pair (e.g. a re-enrichment run with updated confidence) only
// updates the confidence, it does not increment usage_count again.
func (p *pgTags) TagChunk(ctx context.Context, chunkID, docID, tagName string, confidence float64) error {
	if err := p.EnsureTag(ctx, tagName); err != nil {
		return err
	}
	var existed bool
	if err := p.pool.QueryRow(ctx, `SELECT true FROM chunk_tags WHERE chunk_id=$1 AND tag_name=$2`, chunkID, tagName).Scan(&existed); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if _, err := p.pool.Exec(ctx, `
INSERT INTO chunk_tags(chunk_id, doc_id, tag_name, confidence) VALUES($1,$2,$3,$4)
ON CONFLICT (chunk_id, tag_name) DO UPDATE SET confidence=EXCLUDED.confidence
`, chunkID, docID, tagName, confidence); err != nil {
		return err
	}
	if !existed {
		if _, err := p.pool.Exec(ctx, `UPDATE tags SET usage_count = usage_count + 1 WHERE name=$1`, tagName); err != nil {
			return err
		}
	}
	return nil
}

// TagDocument associates tagName with docID directly (distinct from any of
// the document's per-chunk tags), incrementing usage_count once per new
// association.
func (p *pgTags) TagDocument(ctx context.Context, docID, tagName string) error {
	if err := p.EnsureTag(ctx, tagName); err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, `
INSERT INTO document_tags(doc_id, tag_name) VALUES($1,$2)
ON CONFLICT (doc_id, tag_name) DO NOTHING
`, docID, tagName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		if _, err := p.pool.Exec(ctx, `UPDATE tags SET usage_count = usage_count + 1 WHERE name=$1`, tagName); err != nil {
			return err
		}
	}
	return nil
}

func (p *pgTags) RemoveDocument(ctx context.Context, docID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM document_tags WHERE doc_id=$1`, docID); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `DELETE FROM chunk_tags WHERE doc_id=$1`, docID)
	return err
}

// SearchByTags scores a chunk by its highest-confidence match across the
// requested tag names (which the caller has already expanded to include
// descendants, so a query for "topic:ml" also matches chunks tagged with
// "topic:ml:transformers").
func (p *pgTags) SearchByTags(ctx context.Context, names []string, limit int, filter map[string]string) ([]Hit, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := p.pool.Query(ctx, `
SELECT chunk_id, doc_id, MAX(confidence) AS score
FROM chunk_tags
WHERE tag_name = ANY($1)
GROUP BY chunk_id, doc_id
ORDER BY score DESC
LIMIT $2
`, names, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Hit, 0, limit)
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.DocID, &h.Score); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (p *pgTags) Close() {}

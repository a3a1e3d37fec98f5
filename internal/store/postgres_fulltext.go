package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type pgFullText struct{ pool *pgxpool.Pool }

// NewPostgresFullText bootstraps the chunks table, its generated tsvector
// column, a GIN index for token search, and the pg_trgm extension used for
// fuzzy fallback matching when a query shares no tokens with a chunk.
func NewPostgresFullText(pool *pgxpool.Pool) FullText {
	ctx := context.Background()
	_, _ = pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pg_trgm`)
	_, _ = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS chunks (
  id TEXT PRIMARY KEY,
  doc_id TEXT NOT NULL,
  idx INT NOT NULL,
  text TEXT NOT NULL,
  lang TEXT NOT NULL DEFAULT 'english',
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
  ts tsvector GENERATED ALWAYS AS (to_tsvector('simple', coalesce(text,''))) STORED
);
`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS chunks_ts_idx ON chunks USING GIN (ts)`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS chunks_trgm_idx ON chunks USING GIN (text gin_trgm_ops)`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS chunks_doc_idx ON chunks(doc_id)`)
	return &pgFullText{pool: pool}
}

func (p *pgFullText) IndexChunk(ctx context.Context, id, docID string, index int, text string, metadata map[string]string, lang string) error {
	if lang == "" {
		lang = "english"
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO chunks(id, doc_id, idx, text, lang, metadata) VALUES($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET text=EXCLUDED.text, lang=EXCLUDED.lang, metadata=EXCLUDED.metadata
`, id, docID, index, text, lang, mapToJSON(metadata))
	return err
}

func (p *pgFullText) RemoveDocument(ctx context.Context, docID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM chunks WHERE doc_id=$1`, docID)
	return err
}

// Search runs a two-part hybrid query: rows whose tsvector matches the query
// tokens are scored by ts_rank and always rank above rows that only pass the
// pg_trgm similarity threshold (0.1), which are scored by similarity() with a
// constant negative offset. This keeps exact/stemmed token matches ahead of
// fuzzy trigram matches instead of interleaving them by raw score.
func (p *pgFullText) Search(ctx context.Context, query, lang string, limit int, filter map[string]string) ([]Hit, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if lang == "" {
		lang = "english"
	}
	f := mapToJSON(filter)

	rows, err := p.pool.Query(ctx, `
WITH token_matches AS (
  SELECT id, doc_id, text, metadata,
         ts_rank(ts, websearch_to_tsquery(to_regconfig($2), $1)) AS score
  FROM chunks
  WHERE ts @@ websearch_to_tsquery(to_regconfig($2), $1)
    AND metadata @> $3
),
trigram_matches AS (
  SELECT id, doc_id, text, metadata,
         similarity(text, $1) - 1000 AS score
  FROM chunks
  WHERE similarity(text, $1) >= 0.1
    AND metadata @> $3
    AND id NOT IN (SELECT id FROM token_matches)
)
SELECT id, doc_id, left(text, 160) AS snippet, text, metadata, score
FROM (SELECT * FROM token_matches UNION ALL SELECT * FROM trigram_matches) combined
ORDER BY score DESC
LIMIT $4
`, q, lang, f, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Hit, 0, limit)
	for rows.Next() {
		var h Hit
		var md map[string]string
		if err := rows.Scan(&h.ID, &h.DocID, &h.Snippet, &h.Text, &md, &h.Score); err != nil {
			return nil, err
		}
		h.Metadata = md
		out = append(out, h)
	}
	return out, rows.Err()
}

func (p *pgFullText) Close() { p.pool.Close() }

func mapToJSON(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

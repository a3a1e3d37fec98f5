package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgVector stores embeddings in a raw `vector(N)` pgvector-extension column,
// managed with hand-written SQL (no pgvector-go driver type), the same manual
// style this store uses for tsvector in postgres_fulltext.go.
type pgVector struct {
	pool       *pgxpool.Pool
	dimensions int
	metric     string // cosine|l2|ip
}

func NewPostgresVector(pool *pgxpool.Pool, dimensions int, metric string) Vector {
	ctx := context.Background()
	_, _ = pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	vecType := "vector"
	if dimensions > 0 {
		vecType = fmt.Sprintf("vector(%d)", dimensions)
	}
	_, _ = pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS chunk_embeddings (
  id TEXT PRIMARY KEY,
  doc_id TEXT NOT NULL,
  vec %s NOT NULL,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb
);
`, vecType))
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS chunk_embeddings_doc_idx ON chunk_embeddings(doc_id)`)
	return &pgVector{pool: pool, dimensions: dimensions, metric: strings.ToLower(strings.TrimSpace(metric))}
}

func (p *pgVector) Dimension() int { return p.dimensions }

func (p *pgVector) Upsert(ctx context.Context, id, docID string, vector []float32, metadata map[string]string) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO chunk_embeddings(id, doc_id, vec, metadata) VALUES($1,$2,$3::vector,$4)
ON CONFLICT (id) DO UPDATE SET vec=EXCLUDED.vec, metadata=EXCLUDED.metadata
`, id, docID, toVectorLiteral(vector), mapToJSON(metadata))
	return err
}

func (p *pgVector) Delete(ctx context.Context, id string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM chunk_embeddings WHERE id=$1`, id)
	return err
}

func (p *pgVector) RemoveDocument(ctx context.Context, docID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM chunk_embeddings WHERE doc_id=$1`, docID)
	return err
}

func (p *pgVector) SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Hit, error) {
	if k <= 0 {
		k = 10
	}
	op := "<=>"
	scoreExpr := "1 - (vec <=> $1::vector)"
	switch p.metric {
	case "l2", "euclidean":
		op = "<->"
		scoreExpr = "-(vec <-> $1::vector)"
	case "ip", "dot":
		op = "<#>"
		scoreExpr = "-(vec <#> $1::vector)"
	}
	vecLit := toVectorLiteral(vector)
	args := []any{vecLit, k}
	where := ""
	if len(filter) > 0 {
		where = "WHERE metadata @> $3"
		args = []any{vecLit, k, filter}
	}
	// The vector channel carries no chunk text; callers join against the
	// full-text chunks table by ID when they need text for display.
	query := fmt.Sprintf(`SELECT id, doc_id, %s AS score, metadata
FROM chunk_embeddings %s ORDER BY vec %s $1::vector LIMIT $2`, scoreExpr, where, op)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Hit, 0, k)
	for rows.Next() {
		var h Hit
		var md map[string]string
		if err := rows.Scan(&h.ID, &h.DocID, &h.Score, &md); err != nil {
			return nil, err
		}
		h.Metadata = md
		out = append(out, h)
	}
	return out, rows.Err()
}

func (p *pgVector) Close() { p.pool.Close() }

func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}

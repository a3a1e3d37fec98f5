package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"ragengine/internal/models"
)

// pgSearchHistory persists recorded queries and the chunks each one
// returned, for analytics and future ranking feedback.
type pgSearchHistory struct{ pool *pgxpool.Pool }

func NewPostgresSearchHistory(pool *pgxpool.Pool) SearchHistory {
	ctx := context.Background()
	_, _ = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS searches (
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL DEFAULT '',
  user_id TEXT NOT NULL DEFAULT '',
  query_text TEXT NOT NULL DEFAULT '',
  tags TEXT[] NOT NULL DEFAULT '{}',
  result_count INT NOT NULL DEFAULT 0,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	_, _ = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS search_results (
  search_id TEXT NOT NULL REFERENCES searches(id),
  chunk_id TEXT NOT NULL,
  rank INT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  PRIMARY KEY (search_id, chunk_id)
);
`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS searches_session_idx ON searches(session_id)`)
	return &pgSearchHistory{pool: pool}
}

func (p *pgSearchHistory) RecordSearch(ctx context.Context, s models.SearchHistory, results []models.SearchHistoryResult) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO searches(id, session_id, user_id, query_text, tags, result_count, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING
`, s.ID, s.SessionID, s.UserID, s.QueryText, s.Tags, s.ResultCount, s.CreatedAt)
	if err != nil {
		return err
	}
	for _, r := range results {
		if _, err := p.pool.Exec(ctx, `
INSERT INTO search_results(search_id, chunk_id, rank, score) VALUES($1,$2,$3,$4)
ON CONFLICT (search_id, chunk_id) DO NOTHING
`, s.ID, r.ChunkID, r.Rank, r.Score); err != nil {
			return err
		}
	}
	return nil
}

func (p *pgSearchHistory) Close() {}

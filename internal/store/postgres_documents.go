package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgDocuments is the relational registry the ingestion dedup engine consults
// before re-chunking and re-embedding a document it may already have.
type pgDocuments struct{ pool *pgxpool.Pool }

func NewPostgresDocuments(pool *pgxpool.Pool) Documents {
	ctx := context.Background()
	_, _ = pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS documents (
  id TEXT PRIMARY KEY,
  location TEXT NOT NULL,
  title TEXT NOT NULL DEFAULT '',
  source_type TEXT NOT NULL DEFAULT '',
  content_hash TEXT NOT NULL DEFAULT '',
  file_hash TEXT NOT NULL DEFAULT '',
  mod_time_unix BIGINT NOT NULL DEFAULT 0,
  version INT NOT NULL DEFAULT 1,
  tenant TEXT NOT NULL DEFAULT '',
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb
);
`)
	_, _ = pool.Exec(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS documents_location_tenant_idx ON documents(location, tenant)`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS documents_content_hash_idx ON documents(content_hash, tenant)`)
	_, _ = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS documents_file_hash_idx ON documents(file_hash, tenant)`)
	return &pgDocuments{pool: pool}
}

func (p *pgDocuments) Upsert(ctx context.Context, d DocumentRow) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO documents(id, location, title, source_type, content_hash, file_hash, mod_time_unix, version, tenant, metadata)
VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  location=EXCLUDED.location, title=EXCLUDED.title, source_type=EXCLUDED.source_type,
  content_hash=EXCLUDED.content_hash, file_hash=EXCLUDED.file_hash,
  mod_time_unix=EXCLUDED.mod_time_unix, version=EXCLUDED.version, metadata=EXCLUDED.metadata
`, d.ID, d.Location, d.Title, d.SourceType, d.ContentHash, d.FileHash, d.ModTimeUnix, d.Version, d.Tenant, mapToJSON(d.Metadata))
	return err
}

func (p *pgDocuments) GetByLocation(ctx context.Context, location, tenant string) (DocumentRow, bool, error) {
	return p.scanOne(ctx, `SELECT id, location, title, source_type, content_hash, file_hash, mod_time_unix, version, tenant, metadata
FROM documents WHERE location=$1 AND tenant=$2`, location, tenant)
}

func (p *pgDocuments) GetByContentHash(ctx context.Context, hash, tenant string) (DocumentRow, bool, error) {
	return p.scanOne(ctx, `SELECT id, location, title, source_type, content_hash, file_hash, mod_time_unix, version, tenant, metadata
FROM documents WHERE content_hash=$1 AND tenant=$2 LIMIT 1`, hash, tenant)
}

func (p *pgDocuments) GetByFileHash(ctx context.Context, hash, tenant string) (DocumentRow, bool, error) {
	return p.scanOne(ctx, `SELECT id, location, title, source_type, content_hash, file_hash, mod_time_unix, version, tenant, metadata
FROM documents WHERE file_hash=$1 AND tenant=$2 LIMIT 1`, hash, tenant)
}

func (p *pgDocuments) scanOne(ctx context.Context, query string, args ...any) (DocumentRow, bool, error) {
	var d DocumentRow
	var md map[string]string
	err := p.pool.QueryRow(ctx, query, args...).Scan(
		&d.ID, &d.Location, &d.Title, &d.SourceType, &d.ContentHash, &d.FileHash,
		&d.ModTimeUnix, &d.Version, &d.Tenant, &md)
	if errors.Is(err, pgx.ErrNoRows) {
		return DocumentRow{}, false, nil
	}
	if err != nil {
		return DocumentRow{}, false, err
	}
	d.Metadata = md
	return d, true, nil
}

// ListCandidatesForSimilarity returns every document in a tenant so the dedup
// engine can run its filename/title similarity check in memory;
// tenants are expected to stay small enough that this is cheap relative to
// re-chunking and re-embedding a near-duplicate.
func (p *pgDocuments) ListCandidatesForSimilarity(ctx context.Context, tenant string) ([]DocumentRow, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, location, title, source_type, content_hash, file_hash, mod_time_unix, version, tenant, metadata
FROM documents WHERE tenant=$1`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DocumentRow
	for rows.Next() {
		var d DocumentRow
		var md map[string]string
		if err := rows.Scan(&d.ID, &d.Location, &d.Title, &d.SourceType, &d.ContentHash, &d.FileHash,
			&d.ModTimeUnix, &d.Version, &d.Tenant, &md); err != nil {
			return nil, err
		}
		d.Metadata = md
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *pgDocuments) Delete(ctx context.Context, docID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM documents WHERE id=$1`, docID)
	return err
}

func (p *pgDocuments) Close() {}

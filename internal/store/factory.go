package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ragengine/internal/config"
)

// NewManager constructs the three retrieval backends plus the document
// registry from configuration. Supported backends per channel: memory,
// postgres, auto (postgres falling back to memory), and qdrant for the
// vector channel specifically.
func NewManager(ctx context.Context, cfg config.DatabasesConfig) (Manager, error) {
	var m Manager

	searchDSN := firstNonEmptyDSN(cfg.Search.DSN, cfg.DefaultDSN)
	vectorDSN := firstNonEmptyDSN(cfg.Vector.DSN, cfg.DefaultDSN)
	tagDSN := firstNonEmptyDSN(cfg.TagGraph.DSN, cfg.DefaultDSN)

	fullText, err := newFullText(ctx, cfg.Search, searchDSN)
	if err != nil {
		return Manager{}, err
	}
	m.FullText = fullText

	vector, err := newVector(ctx, cfg.Vector, vectorDSN)
	if err != nil {
		return Manager{}, err
	}
	m.Vector = vector

	tags, err := newTags(ctx, cfg.TagGraph, tagDSN)
	if err != nil {
		return Manager{}, err
	}
	m.Tags = tags

	// The document registry always shares the tag-graph backend's pool choice
	// (same relational store), falling back to memory in step with it.
	docs, err := newDocuments(ctx, cfg.TagGraph, tagDSN)
	if err != nil {
		return Manager{}, err
	}
	m.Documents = docs

	// Search history shares the tag-graph/documents backend choice: it's
	// low-stakes analytics data that belongs on whatever relational store is
	// already configured, not a fourth independently-tunable backend.
	history, err := newHistory(ctx, cfg.TagGraph, tagDSN)
	if err != nil {
		return Manager{}, err
	}
	m.History = history

	return m, nil
}

func newFullText(ctx context.Context, cfg config.DatabaseBackendConfig, dsn string) (FullText, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryFullText(), nil
	case "auto":
		if dsn != "" {
			if p, err := newPgPool(ctx, dsn); err == nil {
				return NewPostgresFullText(p), nil
			}
		}
		return NewMemoryFullText(), nil
	case "postgres", "pg":
		if dsn == "" {
			return nil, fmt.Errorf("search backend postgres requires a dsn")
		}
		p, err := newPgPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres (search): %w", err)
		}
		return NewPostgresFullText(p), nil
	default:
		return nil, fmt.Errorf("unsupported search backend: %s", cfg.Backend)
	}
}

func newVector(ctx context.Context, cfg config.DatabaseBackendConfig, dsn string) (Vector, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryVector(cfg.Dimensions), nil
	case "auto":
		if dsn != "" {
			if p, err := newPgPool(ctx, dsn); err == nil {
				return NewPostgresVector(p, cfg.Dimensions, cfg.Metric), nil
			}
		}
		return NewMemoryVector(cfg.Dimensions), nil
	case "postgres", "pgvector", "pg":
		if dsn == "" {
			return nil, fmt.Errorf("vector backend postgres requires a dsn")
		}
		p, err := newPgPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres (vector): %w", err)
		}
		return NewPostgresVector(p, cfg.Dimensions, cfg.Metric), nil
	case "qdrant":
		if dsn == "" {
			return nil, fmt.Errorf("vector backend qdrant requires a dsn")
		}
		collection := cfg.Collection
		if collection == "" {
			collection = "chunks"
		}
		return NewQdrantVector(dsn, collection, cfg.Dimensions, cfg.Metric)
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Backend)
	}
}

func newTags(ctx context.Context, cfg config.DatabaseBackendConfig, dsn string) (Tags, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryTags(), nil
	case "auto":
		if dsn != "" {
			if p, err := newPgPool(ctx, dsn); err == nil {
				return NewPostgresTags(p), nil
			}
		}
		return NewMemoryTags(), nil
	case "postgres", "pg":
		if dsn == "" {
			return nil, fmt.Errorf("tag_graph backend postgres requires a dsn")
		}
		p, err := newPgPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres (tag_graph): %w", err)
		}
		return NewPostgresTags(p), nil
	default:
		return nil, fmt.Errorf("unsupported tag_graph backend: %s", cfg.Backend)
	}
}

func newDocuments(ctx context.Context, cfg config.DatabaseBackendConfig, dsn string) (Documents, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryDocuments(), nil
	case "auto":
		if dsn != "" {
			if p, err := newPgPool(ctx, dsn); err == nil {
				return NewPostgresDocuments(p), nil
			}
		}
		return NewMemoryDocuments(), nil
	case "postgres", "pg":
		if dsn == "" {
			return nil, fmt.Errorf("document registry requires a dsn")
		}
		p, err := newPgPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres (documents): %w", err)
		}
		return NewPostgresDocuments(p), nil
	default:
		return nil, fmt.Errorf("unsupported document registry backend: %s", cfg.Backend)
	}
}

func newHistory(ctx context.Context, cfg config.DatabaseBackendConfig, dsn string) (SearchHistory, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemorySearchHistory(), nil
	case "auto":
		if dsn != "" {
			if p, err := newPgPool(ctx, dsn); err == nil {
				return NewPostgresSearchHistory(p), nil
			}
		}
		return NewMemorySearchHistory(), nil
	case "postgres", "pg":
		if dsn == "" {
			return nil, fmt.Errorf("search history requires a dsn")
		}
		p, err := newPgPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres (search history): %w", err)
		}
		return NewPostgresSearchHistory(p), nil
	default:
		return nil, fmt.Errorf("unsupported search history backend: %s", cfg.Backend)
	}
}

func firstNonEmptyDSN(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func newPgPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pcfg.MaxConns = 8
	pcfg.MinConns = 0
	pcfg.MaxConnLifetime = time.Hour
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HashCache short-circuits the content-hash cascade step with a Redis
// lookup before it falls through to the document registry, so repeated
// re-ingestion of the same unchanged source doesn't round-trip Postgres.
type HashCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewHashCache(addr string, db int) (*HashCache, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &HashCache{client: c, ttl: 24 * time.Hour}, nil
}

// SeenContentHash reports whether this (tenant, hash) pair was already
// recorded as ingested, without touching the document registry.
func (h *HashCache) SeenContentHash(ctx context.Context, tenant, hash string) (string, bool, error) {
	val, err := h.client.Get(ctx, h.key(tenant, hash)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// RememberContentHash records that a (tenant, hash) pair now maps to docID.
func (h *HashCache) RememberContentHash(ctx context.Context, tenant, hash, docID string) error {
	return h.client.Set(ctx, h.key(tenant, hash), docID, h.ttl).Err()
}

func (h *HashCache) key(tenant, hash string) string {
	return "ragengine:content_hash:" + tenant + ":" + hash
}

func (h *HashCache) Close() error { return h.client.Close() }

// Package embedder converts chunk text into dense vectors for the vector
// retrieval channel, calling out to an HTTP embedding endpoint, with a
// deterministic, content-addressed fallback that cmd/ragd uses instead when
// the endpoint fails its startup reachability check. Once the HTTP embedder
// is in use, a failed call or an open breaker does not switch to the fallback.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"

	"ragengine/internal/config"
	"ragengine/internal/embedding"
)

// Embedder converts text into fixed- or variable-dimension vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
	Dimension() int
	Ping(ctx context.Context) error
}

// clientEmbedder calls the configured embedding HTTP endpoint, one request
// per chunk to stay compatible with backends that do not support batching
// reliably, matching the rate-limited single-item dispatch style used
// elsewhere in this stack.
type clientEmbedder struct {
	cfg      config.EmbeddingConfig
	dim      int
	mu       sync.Mutex
	lastCall time.Time
	minDelay time.Duration
}

// NewClient builds an embedder backed by the HTTP embedding endpoint in cfg.
func NewClient(cfg config.EmbeddingConfig) Embedder {
	return &clientEmbedder{cfg: cfg, dim: cfg.Dimension}
}

func (c *clientEmbedder) Name() string   { return c.cfg.Model }
func (c *clientEmbedder) Dimension() int { return c.dim }

func (c *clientEmbedder) Ping(ctx context.Context) error {
	return embedding.CheckReachability(ctx, c.cfg)
}

// EmbedBatch returns one vector per input text, in order. A text that is
// empty after Clean yields a nil vector at that position — the embedding
// endpoint is never called for it.
func (c *clientEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		cleaned := Clean(t)
		if cleaned == "" {
			out = append(out, nil)
			continue
		}

		c.mu.Lock()
		if !c.lastCall.IsZero() {
			if wait := c.minDelay - time.Since(c.lastCall); wait > 0 {
				time.Sleep(wait)
			}
		}
		c.lastCall = time.Now()
		c.mu.Unlock()

		vecs, err := embedding.EmbedText(ctx, c.cfg, []string{cleaned})
		if err != nil {
			return out, err
		}
		out = append(out, vecs[0])
	}
	return out, nil
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var blankLineRun = regexp.MustCompile(`\n{2,}`)

const maxCleanedLength = 8000

// Clean normalizes text before it is sent to the embedding endpoint or hashed
// into the deterministic fallback vector: collapse whitespace and blank
// lines, then truncate to a bounded length so a single pathological input
// cannot blow out request size or hashing cost.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = blankLineRun.ReplaceAllString(s, "\n")
	if len(s) > maxCleanedLength {
		s = s[:maxCleanedLength]
	}
	return s
}

// deterministicEmbedder produces a reproducible vector from the SHA-256 of
// the cleaned text plus the model identifier, so the same chunk under the
// same nominal model always yields the same fallback vector even across
// process restarts, and different chunks (or different claimed models) do
// not collide.
type deterministicEmbedder struct {
	dim  int
	name string
}

// NewDeterministic builds the fallback embedder that cmd/ragd uses when the
// real embedding endpoint's startup Ping fails; it is not swapped in per call.
func NewDeterministic(dim int, name string) Embedder {
	if dim <= 0 {
		dim = 256
	}
	if name == "" {
		name = "deterministic-fallback"
	}
	return &deterministicEmbedder{dim: dim, name: name}
}

func (d *deterministicEmbedder) Name() string   { return d.name }
func (d *deterministicEmbedder) Dimension() int { return d.dim }
func (d *deterministicEmbedder) Ping(context.Context) error { return nil }

func (d *deterministicEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if Clean(t) == "" {
			continue // leave out[i] nil: empty-after-cleaning input embeds to null
		}
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *deterministicEmbedder) embedOne(text string) []float32 {
	cleaned := Clean(text)
	v := make([]float32, d.dim)
	seed := sha256.Sum256([]byte(d.name + "\x00" + cleaned))

	// Expand the 32-byte digest into d.dim pseudo-random signed weights by
	// re-hashing the seed with an incrementing counter, a standard way to
	// stretch a fixed digest into an arbitrary-length deterministic stream.
	block := 0
	var buf [8]byte
	for i := 0; i < d.dim; i++ {
		if i%4 == 0 {
			binary.LittleEndian.PutUint64(buf[:], uint64(block))
			block++
		}
		h := sha256.Sum256(append(seed[:], buf[:]...))
		raw := binary.LittleEndian.Uint64(h[(i%4)*8 : (i%4)*8+8])
		v[i] = float32(int64(raw)) / float32(math.MaxInt64)
	}
	normalize(v)
	return v
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sumSq))
	for i := range v {
		v[i] *= inv
	}
}

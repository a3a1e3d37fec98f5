package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"ragengine/internal/models"
)

// memoryFullText is a naive in-memory lexical search used by tests in place
// of the Postgres-backed implementation.
type memoryFullText struct {
	mu     sync.RWMutex
	chunks map[string]memChunk
}

type memChunk struct {
	docID    string
	index    int
	text     string
	metadata map[string]string
}

func NewMemoryFullText() FullText { return &memoryFullText{chunks: make(map[string]memChunk)} }

func (m *memoryFullText) IndexChunk(_ context.Context, id, docID string, index int, text string, metadata map[string]string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[id] = memChunk{docID: docID, index: index, text: text, metadata: copyMap(metadata)}
	return nil
}

func (m *memoryFullText) RemoveDocument(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.chunks {
		if c.docID == docID {
			delete(m.chunks, id)
		}
	}
	return nil
}

func (m *memoryFullText) Search(_ context.Context, query, _ string, limit int, filter map[string]string) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	terms := strings.Fields(strings.ToLower(query))
	out := make([]Hit, 0, limit)
	for id, c := range m.chunks {
		if !matchesFilter(c.metadata, filter) {
			continue
		}
		lt := strings.ToLower(c.text)
		score := 0.0
		for _, t := range terms {
			if t == "" {
				continue
			}
			score += float64(strings.Count(lt, t))
		}
		if score == 0 {
			continue
		}
		out = append(out, Hit{ID: id, DocID: c.docID, Score: score, Snippet: snippet(c.text, 160), Text: c.text, Metadata: c.metadata})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryFullText) Close() {}

// memoryVector is a naive in-memory cosine-similarity vector store.
type memoryVector struct {
	mu        sync.RWMutex
	points    map[string]memPoint
	dimension int
}

type memPoint struct {
	docID    string
	v        []float32
	metadata map[string]string
}

func NewMemoryVector(dimension int) Vector {
	return &memoryVector{points: make(map[string]memPoint), dimension: dimension}
}

func (m *memoryVector) Dimension() int { return m.dimension }

func (m *memoryVector) Upsert(_ context.Context, id, docID string, vector []float32, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float32, len(vector))
	copy(cp, vector)
	m.points[id] = memPoint{docID: docID, v: cp, metadata: copyMap(metadata)}
	return nil
}

func (m *memoryVector) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.points, id)
	return nil
}

func (m *memoryVector) RemoveDocument(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.points {
		if p.docID == docID {
			delete(m.points, id)
		}
	}
	return nil
}

func (m *memoryVector) SimilaritySearch(_ context.Context, vector []float32, k int, filter map[string]string) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	out := make([]Hit, 0, len(m.points))
	for id, p := range m.points {
		if !matchesFilter(p.metadata, filter) {
			continue
		}
		out = append(out, Hit{ID: id, DocID: p.docID, Score: cosineSimilarity(vector, p.v), Metadata: p.metadata})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *memoryVector) Close() {}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// memoryTags is an in-memory tag hierarchy plus chunk-tag and document-tag
// join tables.
type memoryTags struct {
	mu         sync.RWMutex
	parents    map[string]string
	usageCount map[string]int
	chunkTags  map[string]map[string]float64 // chunkID -> tagName -> confidence
	chunkDocID map[string]string
	docTags    map[string]map[string]bool // docID -> tagName -> associated
}

func NewMemoryTags() Tags {
	return &memoryTags{
		parents:    make(map[string]string),
		usageCount: make(map[string]int),
		chunkTags:  make(map[string]map[string]float64),
		chunkDocID: make(map[string]string),
		docTags:    make(map[string]map[string]bool),
	}
}

func (m *memoryTags) EnsureTag(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := strings.Split(name, ":")
	parent := ""
	for i := range parts {
		full := strings.Join(parts[:i+1], ":")
		if _, ok := m.parents[full]; !ok {
			m.parents[full] = parent
		}
		parent = full
	}
	return nil
}

// UsageCount returns how many distinct document/chunk-tag associations have
// been created for name, for tests and admin inspection.
func (m *memoryTags) UsageCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usageCount[name]
}

func (m *memoryTags) Ancestors(_ context.Context, name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	current := name
	for {
		parent, ok := m.parents[current]
		if !ok || parent == "" {
			return out, nil
		}
		out = append(out, parent)
		current = parent
	}
}

func (m *memoryTags) Descendants(_ context.Context, name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	prefix := name + ":"
	for tag := range m.parents {
		if strings.HasPrefix(tag, prefix) {
			out = append(out, tag)
		}
	}
	return out, nil
}

func (m *memoryTags) TagChunk(ctx context.Context, chunkID, docID, tagName string, confidence float64) error {
	if err := m.EnsureTag(ctx, tagName); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chunkTags[chunkID] == nil {
		m.chunkTags[chunkID] = make(map[string]float64)
	}
	if _, exists := m.chunkTags[chunkID][tagName]; !exists {
		m.usageCount[tagName]++
	}
	m.chunkTags[chunkID][tagName] = confidence
	m.chunkDocID[chunkID] = docID
	return nil
}

// TagDocument associates tagName with docID directly, separate from any of
// the document's per-chunk tags, incrementing usage_count once per new
// association.
func (m *memoryTags) TagDocument(ctx context.Context, docID, tagName string) error {
	if err := m.EnsureTag(ctx, tagName); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docTags[docID] == nil {
		m.docTags[docID] = make(map[string]bool)
	}
	if m.docTags[docID][tagName] {
		return nil
	}
	m.docTags[docID][tagName] = true
	m.usageCount[tagName]++
	return nil
}

func (m *memoryTags) RemoveDocument(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for chunkID, d := range m.chunkDocID {
		if d == docID {
			delete(m.chunkDocID, chunkID)
			delete(m.chunkTags, chunkID)
		}
	}
	delete(m.docTags, docID)
	return nil
}

func (m *memoryTags) SearchByTags(_ context.Context, names []string, limit int, _ map[string]string) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]Hit, 0, limit)
	for chunkID, tags := range m.chunkTags {
		best := 0.0
		for tag, conf := range tags {
			if want[tag] && conf > best {
				best = conf
			}
		}
		if best == 0 {
			continue
		}
		out = append(out, Hit{ID: chunkID, DocID: m.chunkDocID[chunkID], Score: best})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryTags) Close() {}

// memoryDocuments is an in-memory document registry.
type memoryDocuments struct {
	mu   sync.RWMutex
	rows map[string]DocumentRow
}

func NewMemoryDocuments() Documents { return &memoryDocuments{rows: make(map[string]DocumentRow)} }

func (m *memoryDocuments) Upsert(_ context.Context, d DocumentRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[d.ID] = d
	return nil
}

func (m *memoryDocuments) GetByLocation(_ context.Context, location, tenant string) (DocumentRow, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.rows {
		if d.Location == location && d.Tenant == tenant {
			return d, true, nil
		}
	}
	return DocumentRow{}, false, nil
}

func (m *memoryDocuments) GetByContentHash(_ context.Context, hash, tenant string) (DocumentRow, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.rows {
		if d.ContentHash == hash && d.Tenant == tenant {
			return d, true, nil
		}
	}
	return DocumentRow{}, false, nil
}

func (m *memoryDocuments) GetByFileHash(_ context.Context, hash, tenant string) (DocumentRow, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.rows {
		if d.FileHash == hash && d.Tenant == tenant {
			return d, true, nil
		}
	}
	return DocumentRow{}, false, nil
}

func (m *memoryDocuments) ListCandidatesForSimilarity(_ context.Context, tenant string) ([]DocumentRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []DocumentRow
	for _, d := range m.rows {
		if d.Tenant == tenant {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryDocuments) Delete(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, docID)
	return nil
}

func (m *memoryDocuments) Close() {}

// memorySearchHistory is an in-memory, append-only search log.
type memorySearchHistory struct {
	mu      sync.Mutex
	entries []models.SearchHistory
	results map[string][]models.SearchHistoryResult
}

func NewMemorySearchHistory() SearchHistory {
	return &memorySearchHistory{results: make(map[string][]models.SearchHistoryResult)}
}

func (m *memorySearchHistory) RecordSearch(_ context.Context, s models.SearchHistory, results []models.SearchHistoryResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, s)
	m.results[s.ID] = append([]models.SearchHistoryResult(nil), results...)
	return nil
}

func (m *memorySearchHistory) Close() {}

func copyMap(m map[string]string) map[string]string {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func matchesFilter(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func snippet(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n]
}

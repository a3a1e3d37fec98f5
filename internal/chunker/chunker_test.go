package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repeatWords builds a string of n space-separated 4-character words, so
// callers can build inputs of a known character length (5 bytes per word
// including its trailing space).
func repeatWords(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

func TestChunkOffsetsAdvanceMonotonicallyAndCoverInput(t *testing.T) {
	// 2499-char input (the ~2500-char worked scenario), chunk_size=1000, overlap=200.
	text := repeatWords(500) // 500*5-1 = 2499 chars
	chunks := Chunk("doc1", text, Options{ChunkSize: 1000, Overlap: 200})
	require.NotEmpty(t, chunks)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Start, chunks[i-1].Start)
		// each chunk overlaps the previous one's tail, never skips ahead of it
		assert.LessOrEqual(t, chunks[i].Start, chunks[i-1].End)
	}
	assert.Equal(t, len(text), chunks[len(chunks)-1].End)
}

func TestChunkEndsAtWhitespaceNotMidWord(t *testing.T) {
	text := repeatWords(500)
	chunks := Chunk("doc1", text, Options{ChunkSize: 1000, Overlap: 200})
	for _, c := range chunks {
		require.NotEmpty(t, c.Text)
		assert.False(t, strings.HasPrefix(c.Text, " "))
		assert.False(t, strings.HasSuffix(c.Text, " "))
		for _, w := range strings.Fields(c.Text) {
			assert.Equal(t, "word", w)
		}
	}
}

func TestChunkFallsBackToHardCutWithNoWhitespaceInWindow(t *testing.T) {
	// A single unbroken run of non-whitespace longer than chunk_size has no
	// boundary to seek back to, so the chunker must still make progress.
	text := strings.Repeat("x", 50)
	chunks := Chunk("doc1", text, Options{ChunkSize: 10, Overlap: 2})
	require.NotEmpty(t, chunks)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 10, chunks[0].End)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Start, chunks[i-1].Start)
	}
}

func TestChunkSmallTextSingleChunk(t *testing.T) {
	chunks := Chunk("doc2", "just a few words here", Options{ChunkSize: 500, Overlap: 50})
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a few words here", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, len("just a few words here"), chunks[0].End)
}

func TestChunkEmptyText(t *testing.T) {
	assert.Empty(t, Chunk("doc3", "   ", Options{}))
	assert.Empty(t, Chunk("doc3", "", Options{}))
}

func TestChunkOverlapClampedBelowChunkSize(t *testing.T) {
	chunks := Chunk("doc4", repeatWords(100), Options{ChunkSize: 10, Overlap: 10})
	require.NotEmpty(t, chunks)
	// overlap >= chunk size must be clamped so the window always advances
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].Start, chunks[i-1].Start)
	}
}

// Package chunker splits document text into overlapping, whitespace-bounded
// chunks suitable for independent embedding and retrieval.
package chunker

import (
	"strings"
	"unicode"

	"ragengine/internal/models"
)

// Options tunes chunk size and overlap, both expressed in characters.
type Options struct {
	// ChunkSize is the target number of characters per chunk.
	ChunkSize int
	// Overlap is the number of trailing characters from the previous chunk
	// repeated at the start of the next one, preserving context across
	// chunk boundaries.
	Overlap int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 1000
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.ChunkSize {
		// an overlap that consumes the whole window would never advance;
		// clamp so progress is always guaranteed.
		o.Overlap = o.ChunkSize - 1
	}
	return o
}

// Chunk splits text into a sequence of character-bounded chunks. The
// tentative boundary at start+ChunkSize is pulled back to the nearest
// preceding whitespace so a chunk never splits a word, then the cursor
// advances to max(end-Overlap, start+1) so forward progress is always
// guaranteed even when no whitespace is found in the window.
func Chunk(documentID, text string, opt Options) []models.Chunk {
	opt = opt.withDefaults()
	n := len(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []models.Chunk
	idx := 0
	start := 0
	for start < n {
		end := start + opt.ChunkSize
		if end >= n {
			end = n
		} else if b := seekWhitespaceBoundary(text, start, end); b > start {
			end = b
		}

		chunkText := strings.TrimSpace(text[start:end])
		if chunkText != "" {
			out = append(out, models.Chunk{
				DocumentID: documentID,
				Index:      idx,
				Text:       chunkText,
				Start:      start,
				End:        end,
			})
			idx++
		}
		if end >= n {
			break
		}

		next := end - opt.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// seekWhitespaceBoundary walks backward from end toward start looking for a
// whitespace byte, returning its index so the caller can end the chunk there
// instead of mid-word. Returns start unchanged when the window between start
// and end has no whitespace at all, signaling the caller to fall back to a
// hard cut at chunk_size.
func seekWhitespaceBoundary(text string, start, end int) int {
	for b := end; b > start; b-- {
		if unicode.IsSpace(rune(text[b-1])) {
			return b - 1
		}
	}
	return start
}

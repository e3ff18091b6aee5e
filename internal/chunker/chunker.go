// Package chunker provides boundary-aware text chunking for ingestion.
package chunker

import (
	"fmt"
	"strings"

	"github.com/chatrag/chatrag/internal/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Split splits text into overlapping chunks of at most chunkSize characters.
//
// A window that does not reach the end of the text is truncated at the last
// sentence boundary (., ?, ! or newline), but only when that boundary lies
// past half of chunkSize; shorter truncations would re-emit the same small
// slice on every step. Chunks are trimmed and empty chunks are dropped. The
// cursor advances by the truncated (pre-trim) chunk length minus overlap.
//
// overlap must satisfy 0 <= overlap < chunkSize.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidArgument, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, chunk size), got %d", domain.ErrInvalidArgument, overlap)
	}

	runes := []rune(text)
	var chunks []string

	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		window := runes[start:end]

		if end < len(runes) {
			// The threshold compares against the requested chunkSize, not
			// the window length.
			if bp := lastBoundary(window); bp > chunkSize/2 {
				window = window[:bp+1]
			}
		}

		if chunk := strings.TrimSpace(string(window)); chunk != "" {
			chunks = append(chunks, chunk)
		}

		advance := len(window) - overlap
		if advance <= 0 {
			// A truncated window no longer than the overlap would stall the
			// cursor; step over the whole window instead.
			advance = len(window)
		}
		start += advance
	}

	return chunks, nil
}

// lastBoundary returns the index of the last sentence-ending character in
// window, or -1 if there is none.
func lastBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '?', '!', '\n':
			return i
		}
	}
	return -1
}

// Package indexer provides document chunking and ingestion into storage and indices.
package indexer

import (
	"errors"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrInvalidConfig is returned when chunk size or overlap are misconfigured.
var ErrInvalidConfig = errors.New("invalid chunker config")

// Chunker splits document text into overlapping character windows.
// Splitting is deterministic: the same text and parameters always yield the
// same chunk boundaries and IDs, so re-ingesting a document produces an
// identical chunk set.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap, both in runes.
// Returns ErrInvalidConfig when chunkSize is not positive or overlap is not in
// [0, chunkSize).
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfig, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfig, chunkOverlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Chunk splits text into overlapping windows of chunkSize runes, advancing by
// chunkSize - chunkOverlap each step. The final window may be shorter; it is
// still emitted unless empty. Empty text yields no chunks and no error.
func (c *Chunker) Chunk(docID, text string) []*models.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	chunks := make([]*models.Chunk, 0, len(runes)/step+1)
	for i, start := 0, 0; start < len(runes); i, start = i+1, start+step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, &models.Chunk{
			ID:          fmt.Sprintf("%s_%d", docID, i),
			DocumentID:  docID,
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
		})
		if end >= len(runes) {
			break
		}
	}
	return chunks
}

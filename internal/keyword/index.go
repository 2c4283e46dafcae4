// Package keyword provides chunk-level keyword (BM25) indexing used for
// hybrid retrieval.
package keyword

import "context"

// KeywordIndex defines keyword search over chunk texts, keyed by chunk ID.
type KeywordIndex interface {
	Index(ctx context.Context, chunkID, text string) error
	Search(ctx context.Context, query string, limit int) ([]*KeywordResult, error)
	Delete(ctx context.Context, chunkID string) error
	Close() error
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}

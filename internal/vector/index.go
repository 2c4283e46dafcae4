// Package vector provides a vector index over chunk embeddings with
// cosine-similarity search and durable persistence.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index's established dimensionality. The failing operation leaves existing
// index state untouched.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry is the persisted unit of the index: a chunk's embedding together with
// its text and metadata. Entries are created on ingestion and never mutated;
// removal happens only through a full rebuild.
type Entry struct {
	ID       string
	Text     string
	Metadata map[string]interface{}
	Vector   []float32
}

// VectorResult is a single similarity hit.
type VectorResult struct {
	ID    string
	Text  string
	Score float64
}

// VectorIndex defines vector storage and similarity search. Implementations
// must allow concurrent searches; Add may take exclusive access since
// ingestion is not latency-critical.
type VectorIndex interface {
	Add(ctx context.Context, entries []*Entry) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Get(id string) (*Entry, bool)
	Save(path string) error
	Load(path string) error
	Reset()
	Size() int
	Dimensions() int
	Close() error
}

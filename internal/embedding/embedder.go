// Package embedding provides text embedding backends with caching and lazy
// at-most-once initialization.
package embedding

import (
	"context"
	"errors"
)

// ErrBackendUnavailable indicates the embedding backend could not be
// initialized or reached. Transient: a later call may retry initialization.
var ErrBackendUnavailable = errors.New("embedding backend unavailable")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input text, order-preserving.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

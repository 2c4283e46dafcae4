package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/ollama"
)

// OllamaEmbedder produces embeddings via the Ollama HTTP API with an LRU
// cache keyed by text.
type OllamaEmbedder struct {
	client     *ollama.Client
	model      string
	dimensions int
	cache      *EmbeddingCache
}

// NewOllamaEmbedder creates an embedder using the given client and model and
// runs a synchronous warm-up so the model is loaded before the first real
// request. The warm-up respects ctx's deadline.
func NewOllamaEmbedder(ctx context.Context, client *ollama.Client, model string, dimensions, cacheSize int) (*OllamaEmbedder, error) {
	if err := client.Warmup(ctx, model); err != nil {
		return nil, fmt.Errorf("warm up %s: %w", model, err)
	}
	return &OllamaEmbedder{
		client:     client,
		model:      model,
		dimensions: dimensions,
		cache:      NewEmbeddingCache(cacheSize),
	}, nil
}

// Embed returns the embedding for text, using the cache when available.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one backend call, consulting the cache per text
// and only sending cache misses to the backend.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := e.client.EmbedBatch(ctx, e.model, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		if len(vec) != e.dimensions {
			return nil, fmt.Errorf("backend returned %d dimensions, expected %d", len(vec), e.dimensions)
		}
		e.cache.Set(missing[j], vec)
		out[missingIdx[j]] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimensionality.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the underlying HTTP client has no resources to release.
func (e *OllamaEmbedder) Close() error {
	return nil
}

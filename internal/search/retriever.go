// Package search provides chunk retrieval for a query: semantic by default,
// optionally fused with keyword scores.
package search

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// minHybridCandidates is the floor for per-index candidate fetches in hybrid
// mode, so fusion has enough overlap to rank well for small k.
const minHybridCandidates = 20

// Retriever answers "given a query, return the top-k most relevant chunks"
// by embedding the query and searching the vector index. It adds no failure
// modes of its own; an empty index yields an empty result.
type Retriever struct {
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex

	keywordWeight  float64
	semanticWeight float64
	logger         *zap.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithKeywordIndex enables hybrid retrieval: keyword hits from idx are fused
// with semantic hits using the given weights.
func WithKeywordIndex(idx keyword.KeywordIndex, keywordWeight, semanticWeight float64) RetrieverOption {
	return func(r *Retriever) {
		r.keywordIndex = idx
		r.keywordWeight = keywordWeight
		r.semanticWeight = semanticWeight
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a retriever over the given embedder and vector index.
func NewRetriever(embedder embedding.Embedder, vectorIndex vector.VectorIndex, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		embedder:       embedder,
		vectorIndex:    vectorIndex,
		semanticWeight: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve returns up to k chunk texts ranked by relevance to query, scores
// descending. An empty index returns an empty result, not an error; callers
// treat "no context" as a valid, answerable state.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (*models.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if r.vectorIndex.Size() == 0 {
		return &models.RetrievalResult{}, nil
	}

	if r.keywordIndex == nil {
		return r.retrieveSemantic(ctx, query, k)
	}
	return r.retrieveHybrid(ctx, query, k)
}

func (r *Retriever) retrieveSemantic(ctx context.Context, query string, k int) (*models.RetrievalResult, error) {
	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := r.vectorIndex.Search(ctx, queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	result := &models.RetrievalResult{
		Chunks: make([]string, len(hits)),
		Scores: make([]float64, len(hits)),
	}
	for i, h := range hits {
		result.Chunks[i] = h.Text
		result.Scores[i] = h.Score
	}
	return result, nil
}

func (r *Retriever) retrieveHybrid(ctx context.Context, query string, k int) (*models.RetrievalResult, error) {
	candidates := k * 5
	if candidates < minHybridCandidates {
		candidates = minHybridCandidates
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	semanticHits, err := r.vectorIndex.Search(ctx, queryVec, candidates)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	keywordHits, err := r.keywordIndex.Search(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	fused := Fuse(NormalizeKeywordScores(keywordHits), SemanticScores(semanticHits), r.keywordWeight, r.semanticWeight)
	if len(fused) > k {
		fused = fused[:k]
	}
	result := &models.RetrievalResult{
		Chunks: make([]string, 0, len(fused)),
		Scores: make([]float64, 0, len(fused)),
	}
	for _, f := range fused {
		entry, ok := r.vectorIndex.Get(f.ChunkID)
		if !ok {
			if r.logger != nil {
				r.logger.Debug("fused chunk missing from vector index", zap.String("chunk_id", f.ChunkID))
			}
			continue
		}
		result.Chunks = append(result.Chunks, entry.Text)
		result.Scores = append(result.Scores, f.Score)
	}
	return result, nil
}

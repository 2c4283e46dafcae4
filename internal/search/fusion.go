package search

import (
	"sort"

	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/vector"
)

// FusedHit holds a chunk ID and its fused keyword/semantic score.
type FusedHit struct {
	ChunkID       string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
}

// NormalizeKeywordScores normalizes BM25 scores to [0,1] by the maximum.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// SemanticScores maps chunk ID to cosine score, clamped to [0,1] so both
// score families share a scale.
func SemanticScores(results []*vector.VectorResult) map[string]float64 {
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		s := r.Score
		if s < 0 {
			s = 0
		}
		if s > 1 {
			s = 1
		}
		scores[r.ID] = s
	}
	return scores
}

// Fuse merges keyword and semantic score maps with weights and returns hits
// sorted by descending fused score, ties broken by chunk ID for determinism.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []*FusedHit {
	hitMap := make(map[string]*FusedHit, len(keywordScores)+len(semanticScores))
	for id, score := range keywordScores {
		hitMap[id] = &FusedHit{ChunkID: id, KeywordScore: score}
	}
	for id, score := range semanticScores {
		if hit, exists := hitMap[id]; exists {
			hit.SemanticScore = score
		} else {
			hitMap[id] = &FusedHit{ChunkID: id, SemanticScore: score}
		}
	}
	hits := make([]*FusedHit, 0, len(hitMap))
	for _, hit := range hitMap {
		hit.Score = keywordWeight*hit.KeywordScore + semanticWeight*hit.SemanticScore
		hits = append(hits, hit)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	return hits
}

package search

import (
	"math"
	"testing"

	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/vector"
)

func TestNormalizeKeywordScores(t *testing.T) {
	got := NormalizeKeywordScores([]*keyword.KeywordResult{
		{ID: "a", Score: 4},
		{ID: "b", Score: 2},
		{ID: "c", Score: 0},
	})
	if got["a"] != 1 || got["b"] != 0.5 || got["c"] != 0 {
		t.Errorf("got %v", got)
	}

	if got := NormalizeKeywordScores(nil); len(got) != 0 {
		t.Errorf("empty input yields %v", got)
	}

	// All-zero scores must not divide by zero.
	got = NormalizeKeywordScores([]*keyword.KeywordResult{{ID: "a", Score: 0}})
	if got["a"] != 0 {
		t.Errorf("got %v", got)
	}
}

func TestSemanticScores_Clamped(t *testing.T) {
	got := SemanticScores([]*vector.VectorResult{
		{ID: "a", Score: 0.8},
		{ID: "b", Score: -0.2},
		{ID: "c", Score: 1.3},
	})
	if got["a"] != 0.8 || got["b"] != 0 || got["c"] != 1 {
		t.Errorf("got %v", got)
	}
}

func TestFuse(t *testing.T) {
	kw := map[string]float64{"a": 1, "b": 0.5}
	sem := map[string]float64{"b": 1, "c": 0.9}
	hits := Fuse(kw, sem, 0.3, 0.7)

	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	// b: 0.3*0.5 + 0.7*1 = 0.85; c: 0.7*0.9 = 0.63; a: 0.3*1 = 0.3
	if hits[0].ChunkID != "b" || hits[1].ChunkID != "c" || hits[2].ChunkID != "a" {
		t.Errorf("order: %s, %s, %s", hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID)
	}
	if math.Abs(hits[0].Score-0.85) > 1e-9 {
		t.Errorf("fused score %f", hits[0].Score)
	}
}

func TestFuse_TieBreakByChunkID(t *testing.T) {
	sem := map[string]float64{"z": 0.5, "a": 0.5, "m": 0.5}
	hits := Fuse(nil, sem, 0, 1)
	if hits[0].ChunkID != "a" || hits[1].ChunkID != "m" || hits[2].ChunkID != "z" {
		t.Errorf("tie order: %s, %s, %s", hits[0].ChunkID, hits[1].ChunkID, hits[2].ChunkID)
	}
}

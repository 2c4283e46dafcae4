package vector

import (
	"math"

	"github.com/hyperjump/kotae/pkg/utils"
)

// CosineSimilarity returns the cosine similarity between two vectors.
// Zero-length or mismatched vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i] * b[i])
		na += float64(a[i] * a[i])
		nb += float64(b[i] * b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// normalize scales the vector in place to unit L2 norm. Zero vectors are left as-is.
func normalize(x []float32) {
	utils.NormalizeL2(x)
}

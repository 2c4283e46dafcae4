package models

// RetrievalResult holds retrieved chunk texts with parallel similarity scores,
// ordered descending by score. It is transient and never persisted. An empty
// result is a valid state, not an error; generation proceeds without context.
type RetrievalResult struct {
	Chunks []string  `json:"chunks"`
	Scores []float64 `json:"scores"`
}

// Empty reports whether no chunks were retrieved.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Chunks) == 0
}

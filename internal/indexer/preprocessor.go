package indexer

import (
	"strings"
	"unicode"
)

// Preprocess normalizes document text before chunking: trims the ends,
// collapses runs of spaces and tabs, and collapses blank-line runs to a single
// newline. Chunk offsets refer to the preprocessed text, which is also what
// gets stored, so boundaries stay consistent across re-ingestion.
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	spacePending := false
	newlinePending := false
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			newlinePending = true
			spacePending = false
		case unicode.IsSpace(r):
			if !newlinePending {
				spacePending = true
			}
		default:
			if newlinePending {
				b.WriteByte('\n')
				newlinePending = false
			} else if spacePending {
				b.WriteByte(' ')
			}
			spacePending = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

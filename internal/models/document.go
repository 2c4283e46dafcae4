// Package models defines core data structures for documents, chunks, and conversations.
package models

import "time"

// Document represents an ingested text document with metadata.
// Documents are immutable once created and are the source of truth for chunking.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	Text      string                 `json:"text" db:"text"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// Chunk is a bounded contiguous slice of a document's text, the unit of indexing.
// StartOffset and EndOffset are rune offsets into the document text; EndOffset
// is always greater than StartOffset.
type Chunk struct {
	ID          string    `json:"id" db:"id"`
	DocumentID  string    `json:"document_id" db:"document_id"`
	Text        string    `json:"text" db:"text"`
	StartOffset int       `json:"start_offset" db:"start_offset"`
	EndOffset   int       `json:"end_offset" db:"end_offset"`
	Embedding   []float32 `json:"-" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// DocumentInput is the inbound payload for ingesting a document.
type DocumentInput struct {
	ID       string                 `json:"id,omitempty"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

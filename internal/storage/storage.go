// Package storage persists documents and chunks, the source of truth for
// full-index rebuilds.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Storage defines document and chunk persistence.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)
	ListDocumentsAfter(ctx context.Context, afterID string, limit int) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	CountDocuments(ctx context.Context) (int64, error)

	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunksByDocument(ctx context.Context, documentID string) ([]*models.Chunk, error)
	DeleteChunksByDocument(ctx context.Context, documentID string) error
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}

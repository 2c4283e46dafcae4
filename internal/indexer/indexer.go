package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
)

// Indexer ingests documents: store, chunk, embed, and index. It is the only
// writer of vector index entries.
type Indexer struct {
	storage      storage.Storage
	embedder     embedding.Embedder
	vectorIndex  vector.VectorIndex
	keywordIndex keyword.KeywordIndex
	chunker      *Chunker
	extractor    *extract.Extractor
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithKeywordIndex also indexes chunk texts into idx for hybrid retrieval.
func WithKeywordIndex(idx keyword.KeywordIndex) IndexerOption {
	return func(i *Indexer) { i.keywordIndex = idx }
}

// WithExtractor enables file ingestion for non-plain-text formats.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(i *Indexer) { i.extractor = e }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(i *Indexer) { i.logger = l }
}

// NewIndexer creates an indexer with the given dependencies.
func NewIndexer(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	chunker *Chunker,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:     store,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		chunker:     chunker,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocument ingests a document: chunk, embed, persist, and add to the
// vector (and optional keyword) index. An empty document after normalization
// is stored but indexes nothing; that is not an error. Re-ingesting an
// existing ID replaces its previous version; when the new version has fewer
// chunks, the stale tail is purged and the vector index rebuilt, since
// vector entries have no partial delete.
func (idx *Indexer) IndexDocument(ctx context.Context, input *models.DocumentInput) error {
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	doc := &models.Document{
		ID:       input.ID,
		Text:     Preprocess(input.Text),
		Metadata: input.Metadata,
	}

	prior, err := idx.storage.GetChunksByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("load existing chunks: %w", err)
	}
	chunks := idx.chunker.Chunk(doc.ID, doc.Text)
	stale := staleChunks(prior, chunks)

	// Embed before any write so an unavailable backend leaves storage untouched.
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, ch := range chunks {
			texts[i] = ch.Text
		}
		embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to generate embeddings: %w", err)
		}
		for i := range chunks {
			chunks[i].Embedding = embeddings[i]
		}
	}

	if err := idx.storage.CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	if len(stale) > 0 {
		if err := idx.storage.DeleteChunksByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete stale chunks: %w", err)
		}
		if idx.keywordIndex != nil {
			for _, ch := range stale {
				if err := idx.keywordIndex.Delete(ctx, ch.ID); err != nil {
					return fmt.Errorf("delete stale keyword entry: %w", err)
				}
			}
		}
	}

	if len(chunks) == 0 {
		if idx.logger != nil {
			idx.logger.Debug("document has no indexable text", zap.String("document_id", doc.ID))
		}
		if len(stale) > 0 {
			return idx.Rebuild(ctx)
		}
		return nil
	}
	if err := idx.storage.BatchCreateChunks(ctx, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}

	if len(stale) > 0 {
		// Rebuild picks up this document's new chunks along with everyone
		// else's and drops the orphaned vector entries.
		return idx.Rebuild(ctx)
	}
	if err := idx.indexChunks(ctx, doc, chunks); err != nil {
		return err
	}
	if idx.logger != nil {
		idx.logger.Debug("document indexed",
			zap.String("document_id", doc.ID),
			zap.Int("chunks", len(chunks)),
		)
	}
	return nil
}

// indexChunks adds already-embedded chunks to the vector index and, when
// configured, the keyword index.
func (idx *Indexer) indexChunks(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error {
	entries := make([]*vector.Entry, len(chunks))
	for i, ch := range chunks {
		entries[i] = &vector.Entry{
			ID:       ch.ID,
			Text:     ch.Text,
			Metadata: entryMetadata(doc, ch),
			Vector:   ch.Embedding,
		}
	}
	if err := idx.vectorIndex.Add(ctx, entries); err != nil {
		return fmt.Errorf("failed to index vectors: %w", err)
	}
	if idx.keywordIndex != nil {
		for _, ch := range chunks {
			if err := idx.keywordIndex.Index(ctx, ch.ID, ch.Text); err != nil {
				return fmt.Errorf("failed to index keywords: %w", err)
			}
		}
	}
	return nil
}

// staleChunks returns the chunks in prior whose IDs are absent from next.
func staleChunks(prior, next []*models.Chunk) []*models.Chunk {
	if len(prior) == 0 {
		return nil
	}
	keep := make(map[string]struct{}, len(next))
	for _, ch := range next {
		keep[ch.ID] = struct{}{}
	}
	var stale []*models.Chunk
	for _, ch := range prior {
		if _, ok := keep[ch.ID]; !ok {
			stale = append(stale, ch)
		}
	}
	return stale
}

// entryMetadata merges the document's metadata with the chunk's provenance.
func entryMetadata(doc *models.Document, ch *models.Chunk) map[string]interface{} {
	meta := make(map[string]interface{}, len(doc.Metadata)+2)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	meta["document_id"] = doc.ID
	meta["start_offset"] = ch.StartOffset
	return meta
}

// IndexFile reads and ingests the file at path. The document ID derives from
// the absolute path so re-indexing updates the same document. When
// allowedExts is non-empty, the file's extension must be listed
// (case-insensitive).
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) error {
	if idx.extractor == nil {
		return fmt.Errorf("file ingestion not configured")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if len(allowedExts) > 0 && !extAllowed(absPath, allowedExts) {
		return fmt.Errorf("unsupported extension: %s", filepath.Ext(absPath))
	}
	text, err := idx.extractor.Extract(absPath)
	if err != nil {
		return fmt.Errorf("extract %s: %w", absPath, err)
	}
	return idx.IndexDocument(ctx, &models.DocumentInput{
		ID:   fileid.FileDocID(absPath),
		Text: text,
		Metadata: map[string]interface{}{
			"source_path": absPath,
		},
	})
}

// IndexDirectory walks root and ingests every file whose extension is listed
// in allowedExts (empty means all). Returns the number of files indexed.
func (idx *Indexer) IndexDirectory(ctx context.Context, root string, allowedExts []string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if len(allowedExts) > 0 && !extAllowed(path, allowedExts) {
			return nil
		}
		if err := idx.IndexFile(ctx, path, nil); err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}
		count++
		return nil
	})
	return count, err
}

func extAllowed(path string, allowedExts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range allowedExts {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// DeleteDocument removes a document and its chunks from storage and the
// keyword index. Vector entries are immutable, so the vector index is rebuilt
// from the remaining documents.
func (idx *Indexer) DeleteDocument(ctx context.Context, docID string) error {
	chunks, err := idx.storage.GetChunksByDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	if idx.keywordIndex != nil {
		for _, ch := range chunks {
			if err := idx.keywordIndex.Delete(ctx, ch.ID); err != nil {
				return fmt.Errorf("delete keyword entry: %w", err)
			}
		}
	}
	if err := idx.storage.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return idx.Rebuild(ctx)
}

// rebuildBatchSize bounds how many documents are loaded per page during Rebuild.
const rebuildBatchSize = 100

// Rebuild drops all vector entries and re-chunks and re-embeds every stored
// document. Document and chunk rows are left untouched; chunking is
// deterministic, so a rebuild with unchanged documents and parameters
// reproduces the same chunk set. Paging is keyed on document ID so the
// iteration covers every document exactly once.
func (idx *Indexer) Rebuild(ctx context.Context) error {
	idx.vectorIndex.Reset()
	afterID := ""
	for {
		docs, err := idx.storage.ListDocumentsAfter(ctx, afterID, rebuildBatchSize)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		if len(docs) == 0 {
			return nil
		}
		for _, doc := range docs {
			if err := idx.reindexDocument(ctx, doc); err != nil {
				return fmt.Errorf("rebuild %s: %w", doc.ID, err)
			}
		}
		afterID = docs[len(docs)-1].ID
	}
}

// reindexDocument re-chunks and re-embeds one stored document into the
// vector and keyword indexes without rewriting its rows.
func (idx *Indexer) reindexDocument(ctx context.Context, doc *models.Document) error {
	chunks := idx.chunker.Chunk(doc.ID, doc.Text)
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return idx.indexChunks(ctx, doc, chunks)
}

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/vector"
)

// failingEmbedder fails every call; used to prove code paths that must not
// reach the backend.
type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("must not be called")
}
func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("must not be called")
}
func (failingEmbedder) Dimensions() int { return 8 }
func (failingEmbedder) Close() error    { return nil }

func buildIndex(t *testing.T, embedder embedding.Embedder, texts map[string]string) *vector.MemoryIndex {
	t.Helper()
	idx, err := vector.NewMemoryIndex("test", embedder.Dimensions())
	if err != nil {
		t.Fatal(err)
	}
	for id, text := range texts {
		vec, err := embedder.Embed(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		if err := idx.Add(context.Background(), []*vector.Entry{{ID: id, Text: text, Vector: vec}}); err != nil {
			t.Fatal(err)
		}
	}
	return idx
}

func TestRetriever_RanksSharedVocabularyFirst(t *testing.T) {
	embedder := embedding.NewMockEmbedder(64)
	idx := buildIndex(t, embedder, map[string]string{
		"sip":     "SIP trunk capacity planning for concurrent calls and codecs",
		"coffee":  "The office coffee machine needs descaling every month",
		"parking": "Visitor parking passes are available at the front desk",
	})
	r := NewRetriever(embedder, idx)

	got, err := r.Retrieve(context.Background(), "how many SIP trunk lines for concurrent calls", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Chunks) != 2 {
		t.Fatalf("got %d chunks", len(got.Chunks))
	}
	if got.Chunks[0] != "SIP trunk capacity planning for concurrent calls and codecs" {
		t.Errorf("top chunk %q", got.Chunks[0])
	}
	if len(got.Scores) != len(got.Chunks) {
		t.Errorf("scores/chunks length mismatch: %d vs %d", len(got.Scores), len(got.Chunks))
	}
	if got.Scores[0] < got.Scores[1] {
		t.Errorf("scores not descending: %v", got.Scores)
	}
}

func TestRetriever_EmptyIndexSkipsEmbedding(t *testing.T) {
	idx, _ := vector.NewMemoryIndex("test", 8)
	r := NewRetriever(failingEmbedder{}, idx)

	got, err := r.Retrieve(context.Background(), "anything", 3)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Empty() {
		t.Errorf("expected empty result, got %+v", got)
	}
}

func TestRetriever_InvalidK(t *testing.T) {
	idx, _ := vector.NewMemoryIndex("test", 8)
	r := NewRetriever(embedding.NewMockEmbedder(8), idx)
	if _, err := r.Retrieve(context.Background(), "q", 0); err == nil {
		t.Error("expected error for k=0")
	}
	if _, err := r.Retrieve(context.Background(), "q", -1); err == nil {
		t.Error("expected error for negative k")
	}
}

func TestRetriever_EmbedFailurePropagates(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	idx := buildIndex(t, embedder, map[string]string{"a": "some indexed text"})
	r := NewRetriever(failingEmbedder{}, idx)

	if _, err := r.Retrieve(context.Background(), "q", 1); err == nil {
		t.Error("expected embed error to propagate")
	}
}

func TestRetriever_KLargerThanCorpus(t *testing.T) {
	embedder := embedding.NewMockEmbedder(32)
	idx := buildIndex(t, embedder, map[string]string{
		"a": "first text",
		"b": "second text",
	})
	r := NewRetriever(embedder, idx)

	got, err := r.Retrieve(context.Background(), "text", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Chunks) != 2 {
		t.Errorf("got %d chunks, want 2", len(got.Chunks))
	}
}

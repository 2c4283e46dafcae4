package vector

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func entry(id string, vec []float32) *Entry {
	return &Entry{ID: id, Text: "text for " + id, Vector: vec}
}

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex("test", 3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	err = idx.Add(ctx, []*Entry{
		entry("a", []float32{1, 0, 0}),
		entry("b", []float32{0.9, 0.1, 0}),
		entry("c", []float32{0, 1, 0}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("top result should be a, got %s", results[0].ID)
	}
	if results[1].ID != "b" {
		t.Errorf("second result should be b, got %s", results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("scores not descending: %f < %f", results[0].Score, results[1].Score)
	}
}

func TestMemoryIndex_AddReplacesSameID(t *testing.T) {
	idx, _ := NewMemoryIndex("test", 2)
	ctx := context.Background()
	_ = idx.Add(ctx, []*Entry{{ID: "a", Text: "old", Vector: []float32{1, 0}}})
	_ = idx.Add(ctx, []*Entry{{ID: "a", Text: "new", Vector: []float32{0, 1}}})

	if idx.Size() != 1 {
		t.Errorf("Size=%d, want 1", idx.Size())
	}
	e, _ := idx.Get("a")
	if e.Text != "new" {
		t.Errorf("text=%q", e.Text)
	}
}

func TestMemoryIndex_SearchEmpty(t *testing.T) {
	idx, _ := NewMemoryIndex("test", 2)
	results, err := idx.Search(context.Background(), []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestMemoryIndex_SearchKLargerThanSize(t *testing.T) {
	idx, _ := NewMemoryIndex("test", 2)
	ctx := context.Background()
	_ = idx.Add(ctx, []*Entry{entry("x", []float32{1, 0}), entry("y", []float32{0, 1})})
	results, err := idx.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestMemoryIndex_TieBreakInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex("test", 2)
	ctx := context.Background()
	// Identical vectors score identically; earlier insertion wins.
	_ = idx.Add(ctx, []*Entry{
		entry("first", []float32{1, 0}),
		entry("second", []float32{1, 0}),
	})
	results, err := idx.Search(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "first" || results[1].ID != "second" {
		t.Errorf("tie-break order wrong: %s, %s", results[0].ID, results[1].ID)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex("test", 3)
	ctx := context.Background()

	err := idx.Add(ctx, []*Entry{
		entry("good", []float32{1, 0, 0}),
		entry("bad", []float32{1, 0}),
	})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	// No partial mutation: the valid entry must not have been stored.
	if idx.Size() != 0 {
		t.Errorf("index mutated on failed Add, size=%d", idx.Size())
	}

	if _, err := idx.Search(ctx, []float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for query, got %v", err)
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	ctx := context.Background()

	idx, _ := NewMemoryIndex("notes", 3)
	_ = idx.Add(ctx, []*Entry{
		{ID: "a", Text: "alpha", Metadata: map[string]interface{}{"document_id": "doc1"}, Vector: []float32{1, 0, 0}},
		{ID: "b", Text: "beta", Vector: []float32{0, 1, 0}},
	})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewMemoryIndex("notes", 3)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded size=%d", loaded.Size())
	}
	e, ok := loaded.Get("a")
	if !ok {
		t.Fatal("entry a missing after load")
	}
	if e.Text != "alpha" {
		t.Errorf("text=%q", e.Text)
	}
	if e.Metadata["document_id"] != "doc1" {
		t.Errorf("metadata=%v", e.Metadata)
	}

	results, err := loaded.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ID != "a" {
		t.Errorf("top result after load should be a, got %s", results[0].ID)
	}
}

func TestMemoryIndex_LoadMissingFile(t *testing.T) {
	idx, _ := NewMemoryIndex("test", 2)
	if err := idx.Load(filepath.Join(t.TempDir(), "nope.bin")); err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if idx.Size() != 0 {
		t.Errorf("size=%d", idx.Size())
	}
}

func TestMemoryIndex_LoadCollectionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	idx, _ := NewMemoryIndex("one", 2)
	_ = idx.Add(context.Background(), []*Entry{entry("a", []float32{1, 0})})
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	other, _ := NewMemoryIndex("two", 2)
	if err := other.Load(path); err == nil {
		t.Error("expected collection mismatch error")
	}

	wrongDims, _ := NewMemoryIndex("one", 3)
	if err := wrongDims.Load(path); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestMemoryIndex_Reset(t *testing.T) {
	idx, _ := NewMemoryIndex("test", 2)
	ctx := context.Background()
	_ = idx.Add(ctx, []*Entry{entry("a", []float32{1, 0})})
	idx.Reset()
	if idx.Size() != 0 {
		t.Errorf("size=%d after reset", idx.Size())
	}
	if _, ok := idx.Get("a"); ok {
		t.Error("entry survived reset")
	}
	// Index stays usable after reset.
	if err := idx.Add(ctx, []*Entry{entry("b", []float32{0, 1})}); err != nil {
		t.Fatal(err)
	}
}

package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/kotae/internal/ollama"
)

// embedServer serves /api/embed with 2-dimensional vectors and counts calls.
func embedServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := make([][]float32, len(req.Input))
		for i := range out {
			out[i] = []float32{float32(len(req.Input[i])), 1}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": out})
	}))
}

func TestOllamaEmbedder_WarmupRuns(t *testing.T) {
	var calls int32
	srv := embedServer(t, &calls)
	defer srv.Close()

	_, err := NewOllamaEmbedder(context.Background(), ollama.NewClient(srv.URL), "m", 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("warmup made %d calls", calls)
	}
}

func TestOllamaEmbedder_WarmupFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewOllamaEmbedder(context.Background(), ollama.NewClient(srv.URL), "m", 2, 10); err == nil {
		t.Error("expected warmup error")
	}
}

func TestOllamaEmbedder_CachesByText(t *testing.T) {
	var calls int32
	srv := embedServer(t, &calls)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), ollama.NewClient(srv.URL), "m", 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := e.Embed(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	after := atomic.LoadInt32(&calls)
	if _, err := e.Embed(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&calls) != after {
		t.Error("cached text hit the backend again")
	}
}

func TestOllamaEmbedder_BatchSendsOnlyMisses(t *testing.T) {
	var calls int32
	srv := embedServer(t, &calls)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), ollama.NewClient(srv.URL), "m", 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := e.Embed(ctx, "aa"); err != nil {
		t.Fatal(err)
	}
	got, err := e.EmbedBatch(ctx, []string{"aa", "bbb"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d vectors", len(got))
	}
	// Vectors map back to their original positions.
	if got[0][0] != 2 || got[1][0] != 3 {
		t.Errorf("order broken: %v", got)
	}
}

func TestOllamaEmbedder_DimensionValidation(t *testing.T) {
	var calls int32
	srv := embedServer(t, &calls)
	defer srv.Close()

	e, err := NewOllamaEmbedder(context.Background(), ollama.NewClient(srv.URL), "m", 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Error("expected dimension validation error")
	}
}

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path=%s", r.URL.Path)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req["model"] != "phi3:mini" {
			t.Errorf("model=%v", req["model"])
		}
		if req["stream"] != false {
			t.Error("stream must be false")
		}
		opts := req["options"].(map[string]interface{})
		if opts["temperature"] != float64(0) {
			t.Errorf("temperature=%v", opts["temperature"])
		}
		if opts["num_predict"] != float64(150) {
			t.Errorf("num_predict=%v", opts["num_predict"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": "the answer", "done": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.Generate(context.Background(), "phi3:mini", "a prompt", Options{Temperature: 0, MaxTokens: 150})
	if err != nil {
		t.Fatal(err)
	}
	if got != "the answer" {
		t.Errorf("got %q", got)
	}
}

func TestClient_EmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path=%s", r.URL.Path)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		out := make([][]float32, len(req.Input))
		for i := range out {
			out[i] = []float32{float32(i), 1}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": out})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.EmbedBatch(context.Background(), "nomic-embed-text", []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d embeddings", len(got))
	}
	if got[2][0] != 2 {
		t.Errorf("order not preserved: %v", got[2])
	}
}

func TestClient_EmbedBatchEmpty(t *testing.T) {
	c := NewClient("http://localhost:1") // must not be contacted
	got, err := c.EmbedBatch(context.Background(), "m", nil)
	if err != nil || got != nil {
		t.Errorf("got %v, %v", got, err)
	}
}

func TestClient_EmbedBatchCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": [][]float32{{1}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.EmbedBatch(context.Background(), "m", []string{"a", "b"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"bad request", http.StatusBadRequest, ErrBadRequest},
		{"not found", http.StatusNotFound, ErrBadRequest},
		{"server error", http.StatusInternalServerError, ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := NewClient(srv.URL)
			_, err := c.Generate(context.Background(), "m", "p", Options{})
			if !errors.Is(err, tt.want) {
				t.Errorf("status %d: got %v, want %v", tt.status, err, tt.want)
			}
		})
	}
}

func TestClient_TransportErrorIsUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.Generate(context.Background(), "m", "p", Options{})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_Warmup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embeddings": [][]float32{{0.1}}})
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).Warmup(context.Background(), "m"); err != nil {
		t.Fatal(err)
	}
}

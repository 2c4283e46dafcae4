// Package ollama provides an HTTP client for the Ollama API, used both as the
// language-model backend and as the embedding backend.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable indicates the backend could not be reached or failed
// server-side. Transient; callers may retry.
var ErrUnavailable = errors.New("ollama backend unavailable")

// ErrBadRequest indicates the backend rejected the request (malformed prompt,
// unknown model). Not retryable as-is.
var ErrBadRequest = errors.New("ollama rejected request")

// Client wraps Ollama API interactions.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the Ollama server at baseURL.
// An empty baseURL defaults to the local Ollama port.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Client{
		baseURL: baseURL,
		// Per-call deadlines come from the caller's context; this is a hard ceiling.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Options are generation parameters forwarded to the model.
type Options struct {
	Temperature float64
	MaxTokens   int
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate runs a non-streaming completion for prompt and returns the text.
// Fails with ErrBadRequest on a 4xx response and ErrUnavailable on transport
// errors or 5xx responses.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts Options) (string, error) {
	req := generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
		},
	}
	if opts.MaxTokens > 0 {
		req.Options["num_predict"] = opts.MaxTokens
	}
	body, err := c.post(ctx, "/api/generate", req)
	if err != nil {
		return "", err
	}
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return resp.Response, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// EmbedBatch returns one embedding per input text, order-preserving.
func (c *Client) EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := c.post(ctx, "/api/embed", embedRequest{Model: model, Input: texts})
	if err != nil {
		return nil, err
	}
	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrUnavailable, len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

// Warmup issues a small embedding call so the model is loaded before the
// first real request. Used by the lazy embedder's initialization.
func (c *Client) Warmup(ctx context.Context, model string) error {
	_, err := c.EmbedBatch(ctx, model, []string{"warm up"})
	return err
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("%w: %d - %s", ErrBadRequest, resp.StatusCode, bytes.TrimSpace(body))
	default:
		return nil, fmt.Errorf("%w: %d - %s", ErrUnavailable, resp.StatusCode, bytes.TrimSpace(body))
	}
}

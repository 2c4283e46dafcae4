package rag

import (
	"context"

	"github.com/hyperjump/kotae/internal/ollama"
)

// OllamaGenerator adapts an Ollama client to the Generator interface with a
// fixed model and sampling options.
type OllamaGenerator struct {
	client *ollama.Client
	model  string
	opts   ollama.Options
}

// NewOllamaGenerator wraps client for the given model. temperature and
// maxTokens are applied to every call.
func NewOllamaGenerator(client *ollama.Client, model string, temperature float64, maxTokens int) *OllamaGenerator {
	return &OllamaGenerator{
		client: client,
		model:  model,
		opts: ollama.Options{
			Temperature: temperature,
			MaxTokens:   maxTokens,
		},
	}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.client.Generate(ctx, g.model, prompt, g.opts)
}

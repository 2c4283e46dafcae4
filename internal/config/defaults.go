package config

import "time"

// DefaultSystemPrompt is used when prompt.system is unset. The assistant is
// instructed to answer from the retrieved context.
const DefaultSystemPrompt = "You are a helpful assistant. Answer using the provided context when it is relevant."

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8086
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/db/documents.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/kotae/data/indices/vectors"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "/usr/local/var/kotae/data/indices/bleve"
	}
	if cfg.Storage.Collection == "" {
		cfg.Storage.Collection = "kotae"
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = "http://localhost:11434"
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = "phi3:mini"
	}
	if cfg.Ollama.EmbeddingModel == "" {
		cfg.Ollama.EmbeddingModel = "nomic-embed-text"
	}
	if cfg.Ollama.MaxTokens == 0 {
		cfg.Ollama.MaxTokens = 150
	}
	if cfg.Ollama.GenerateTimeout == 0 {
		cfg.Ollama.GenerateTimeout = 2 * time.Minute
	}
	if cfg.Ollama.WarmupTimeout == 0 {
		cfg.Ollama.WarmupTimeout = 30 * time.Second
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 500
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 50
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.KeywordWeight == 0 {
		cfg.Retrieval.KeywordWeight = 0.3
	}
	if cfg.Retrieval.SemanticWeight == 0 {
		cfg.Retrieval.SemanticWeight = 0.7
	}
	if cfg.Prompt.System == "" {
		cfg.Prompt.System = DefaultSystemPrompt
	}
	if cfg.Prompt.MaxLength == 0 {
		cfg.Prompt.MaxLength = 4000
	}
	if cfg.History.MaxTurns == 0 {
		cfg.History.MaxTurns = 20
	}
	if cfg.History.MaxChars == 0 {
		cfg.History.MaxChars = 4000
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx"}
	}
}

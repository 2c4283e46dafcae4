// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fileid"
	"github.com/hyperjump/kotae/internal/history"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/ollama"
	"github.com/hyperjump/kotae/internal/prompt"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	seedDocuments(context.Background(), components, cfg, logger)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Directory != "" {
		idx := components.Indexer
		exts := cfg.Watch.Extensions
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(
			cfg.Watch.Directory,
			exts,
			func(path string) {
				if err := idx.IndexFile(context.Background(), path, exts); err != nil {
					logger.Warn("watch index file failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := idx.DeleteDocument(context.Background(), fileid.FileDocID(path)); err != nil {
					logger.Warn("watch delete by path failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(
		components.RAG,
		components.Indexer,
		components.Storage,
		components.VectorIndex,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8086", "server URL")
	sessionID := fs.String("session", "cli", "conversation session ID")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}
	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	body, _ := json.Marshal(map[string]string{
		"session_id": *sessionID,
		"question":   question,
	})
	resp, err := http.Post(*serverURL+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Ask failed (%d): %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var out struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.Answer)
}

// buildQuestion joins positional args into a single question string. Shells
// split unquoted questions into multiple args, so "kotae ask what is X" works.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		n, err := components.Indexer.IndexDirectory(ctx, path, cfg.Watch.Extensions)
		if err != nil {
			fmt.Printf("Ingesting directory failed: %v\n", err)
			os.Exit(1)
		}
		if saveErr := saveVectorIndex(components, cfg); saveErr != nil {
			fmt.Printf("Vector index save failed: %v\n", saveErr)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d file(s) from %s\n", n, path)
		return
	}
	if err := components.Indexer.IndexFile(ctx, path, nil); err != nil {
		fmt.Printf("Ingesting failed: %v\n", err)
		os.Exit(1)
	}
	if err := saveVectorIndex(components, cfg); err != nil {
		fmt.Printf("Vector index save failed: %v\n", err)
		os.Exit(1)
	}
	absPath, _ := filepath.Abs(path)
	fmt.Printf("Document ingested: %s\n", fileid.FileDocID(absPath))
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	if err := components.Indexer.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Printf("Deletion failed: %v\n", err)
		os.Exit(1)
	}
	if err := saveVectorIndex(components, cfg); err != nil {
		fmt.Printf("Vector index save failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8086", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
		os.Exit(1)
	}
	var status struct {
		Documents       int64  `json:"documents"`
		Chunks          int64  `json:"chunks"`
		VectorIndexSize int    `json:"vector_index_size"`
		DiskUsageBytes  *int64 `json:"disk_usage_bytes,omitempty"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		os.Exit(1)
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(pretty.String())
	case "text":
		fmt.Printf("documents:          %d\n", status.Documents)
		fmt.Printf("chunks:             %d\n", status.Chunks)
		fmt.Printf("vector_index_size:  %d\n", status.VectorIndexSize)
		if status.DiskUsageBytes != nil {
			fmt.Printf("disk_usage_bytes:   %d\n", *status.DiskUsageBytes)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	Embedder     embedding.Embedder
	VectorIndex  vector.VectorIndex
	KeywordIndex keyword.KeywordIndex
	Indexer      *indexer.Indexer
	Retriever    *search.Retriever
	History      *history.Store
	RAG          *rag.Service
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	client := ollama.NewClient(cfg.Ollama.BaseURL)

	factory := func(ctx context.Context) (embedding.Embedder, error) {
		return embedding.NewOllamaEmbedder(ctx, client, cfg.Ollama.EmbeddingModel, cfg.Embedding.Dimensions, cfg.Embedding.CacheSize)
	}
	lazyOpts := []embedding.LazyOption{}
	if debug {
		lazyOpts = append(lazyOpts, embedding.WithLogger(logger))
	}
	embedder := embedding.NewLazyEmbedder(factory, cfg.Embedding.Dimensions, cfg.Ollama.WarmupTimeout, lazyOpts...)

	vectorIndex, err := vector.NewMemoryIndex(cfg.Storage.Collection, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped", zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}

	var keywordIndex keyword.KeywordIndex
	retOpts := []search.RetrieverOption{}
	if cfg.Retrieval.Hybrid {
		bleveIdx, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
		}
		keywordIndex = bleveIdx
		retOpts = append(retOpts, search.WithKeywordIndex(keywordIndex, cfg.Retrieval.KeywordWeight, cfg.Retrieval.SemanticWeight))
	}
	if debug {
		retOpts = append(retOpts, search.WithLogger(logger))
	}

	chunker, err := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chunker: %w", err)
	}
	idxOpts := []indexer.IndexerOption{indexer.WithExtractor(extract.NewExtractor())}
	if keywordIndex != nil {
		idxOpts = append(idxOpts, indexer.WithKeywordIndex(keywordIndex))
	}
	if debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(store, embedder, vectorIndex, chunker, idxOpts...)

	retriever := search.NewRetriever(embedder, vectorIndex, retOpts...)
	histStore := history.NewStore()
	assembler := prompt.NewAssembler(cfg.Prompt.System, cfg.Prompt.MaxLength)
	generator := rag.NewOllamaGenerator(client, cfg.Ollama.Model, cfg.Ollama.Temperature, cfg.Ollama.MaxTokens)

	svcOpts := []rag.ServiceOption{
		rag.WithHistoryLimits(cfg.History.MaxTurns, cfg.History.MaxChars),
		rag.WithGenerateTimeout(cfg.Ollama.GenerateTimeout),
	}
	if debug {
		svcOpts = append(svcOpts, rag.WithLogger(logger))
	}
	ragSvc := rag.NewService(retriever, histStore, assembler, generator, cfg.Retrieval.TopK, svcOpts...)

	return &Components{
		Storage:      store,
		Embedder:     embedder,
		VectorIndex:  vectorIndex,
		KeywordIndex: keywordIndex,
		Indexer:      idx,
		Retriever:    retriever,
		History:      histStore,
		RAG:          ragSvc,
	}, nil
}

func saveVectorIndex(components *Components, cfg *config.Config) error {
	if cfg.Storage.VectorIndexPath == "" {
		return nil
	}
	return components.VectorIndex.Save(cfg.Storage.VectorIndexPath)
}

// seedDocuments ingests the configured seed files when the collection is
// empty, so a fresh install can answer questions out of the box. Failures are
// logged and skipped; the server still starts.
func seedDocuments(ctx context.Context, components *Components, cfg *config.Config, logger *zap.Logger) {
	if len(cfg.SeedDocuments) == 0 {
		return
	}
	count, err := components.Storage.CountDocuments(ctx)
	if err != nil {
		logger.Warn("seed: count documents failed", zap.Error(err))
		return
	}
	if count > 0 {
		return
	}
	seeded := 0
	for _, path := range cfg.SeedDocuments {
		info, err := os.Stat(path)
		if err != nil {
			logger.Warn("seed: stat failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if info.IsDir() {
			n, err := components.Indexer.IndexDirectory(ctx, path, cfg.Watch.Extensions)
			if err != nil {
				logger.Warn("seed: directory failed", zap.String("path", path), zap.Error(err))
				continue
			}
			seeded += n
			continue
		}
		if err := components.Indexer.IndexFile(ctx, path, nil); err != nil {
			logger.Warn("seed: file failed", zap.String("path", path), zap.Error(err))
			continue
		}
		seeded++
	}
	logger.Info("seed documents ingested", zap.Int("count", seeded))
}

func printUsage() {
	fmt.Println(`kotae - Local retrieval-augmented question answering

Usage:
  kotae server [flags]            Start the HTTP server
  kotae ask [flags] <question>    Ask a question (requires a running server)
  kotae ingest [flags] <path>     Ingest a file or directory
  kotae delete [flags] <id>       Delete a document
  kotae status [flags]            Show storage/index status
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Ask Flags:
  --server string    Server URL (default: http://localhost:8086)
  --session string   Conversation session ID (default: cli)

Ingest / Delete Flags:
  --config string    Config file path

Status Flags:
  --server string    Server URL (default: http://localhost:8086)
  --output string    Output format: text or json (default: text)

Examples:
  kotae server
  kotae ask "How do I configure SIP trunking?"
  kotae ask --session support-42 "What did we discuss earlier?"
  kotae ingest ./docs
  kotae status --output json`)
}

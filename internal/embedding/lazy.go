package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Factory constructs and warms up an embedding backend. It should respect the
// context deadline during warm-up.
type Factory func(ctx context.Context) (Embedder, error)

// LazyEmbedder defers backend construction to the first Embed call. Exactly
// one initialization runs at a time: concurrent first callers block on the
// init lock and reuse the backend the winner built. A failed initialization
// is not cached; the next call retries. Once initialized, embedding calls run
// without holding any lock.
type LazyEmbedder struct {
	factory       Factory
	dimensions    int
	warmupTimeout time.Duration
	logger        *zap.Logger

	mu      sync.RWMutex
	backend Embedder
}

// LazyOption configures a LazyEmbedder.
type LazyOption func(*LazyEmbedder)

// WithLogger sets a logger for initialization events.
func WithLogger(l *zap.Logger) LazyOption {
	return func(e *LazyEmbedder) { e.logger = l }
}

// NewLazyEmbedder wraps factory with lazy initialization. dimensions is the
// backend's configured dimensionality, known ahead of construction so the
// vector index can be created before the first embedding call.
func NewLazyEmbedder(factory Factory, dimensions int, warmupTimeout time.Duration, opts ...LazyOption) *LazyEmbedder {
	e := &LazyEmbedder{
		factory:       factory,
		dimensions:    dimensions,
		warmupTimeout: warmupTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed returns the embedding for a single text, initializing the backend on
// first use.
func (e *LazyEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	backend, err := e.get(ctx)
	if err != nil {
		return nil, err
	}
	return backend.Embed(ctx, text)
}

// EmbedBatch returns one embedding per text, initializing the backend on
// first use.
func (e *LazyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	backend, err := e.get(ctx)
	if err != nil {
		return nil, err
	}
	return backend.EmbedBatch(ctx, texts)
}

// Dimensions returns the configured dimensionality without triggering
// initialization.
func (e *LazyEmbedder) Dimensions() int {
	return e.dimensions
}

// Close closes the backend if it was ever initialized.
func (e *LazyEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == nil {
		return nil
	}
	err := e.backend.Close()
	e.backend = nil
	return err
}

func (e *LazyEmbedder) get(ctx context.Context) (Embedder, error) {
	e.mu.RLock()
	backend := e.backend
	e.mu.RUnlock()
	if backend != nil {
		return backend, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend != nil {
		return e.backend, nil
	}

	warmupCtx := ctx
	if e.warmupTimeout > 0 {
		var cancel context.CancelFunc
		warmupCtx, cancel = context.WithTimeout(ctx, e.warmupTimeout)
		defer cancel()
	}
	start := time.Now()
	backend, err := e.factory(warmupCtx)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("embedding backend init failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if backend.Dimensions() != e.dimensions {
		_ = backend.Close()
		return nil, fmt.Errorf("%w: backend reports %d dimensions, configured %d",
			ErrBackendUnavailable, backend.Dimensions(), e.dimensions)
	}
	if e.logger != nil {
		e.logger.Info("embedding backend initialized", zap.Duration("warmup", time.Since(start)))
	}
	e.backend = backend
	return e.backend, nil
}

// Package rag orchestrates retrieval-augmented answering with session-scoped
// conversation memory.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/kotae/internal/history"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/prompt"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// ErrGenerationTimeout indicates the language-model call exceeded its
// deadline. Transient: the caller may retry the whole Answer call. No history
// is recorded for the failed attempt.
var ErrGenerationTimeout = errors.New("generation timed out")

// Generator is the outbound language-model client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service answers questions: retrieve context, assemble a prompt with the
// session's history, call the language model, and record the exchange.
type Service struct {
	retriever *search.Retriever
	history   *history.Store
	assembler *prompt.Assembler
	generator Generator

	topK            int
	historyMaxTurns int
	historyMaxChars int
	generateTimeout time.Duration
	logger          *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for per-request debug output.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithHistoryLimits bounds how much history is included in a prompt.
// Non-positive values disable the respective limit.
func WithHistoryLimits(maxTurns, maxChars int) ServiceOption {
	return func(s *Service) {
		s.historyMaxTurns = maxTurns
		s.historyMaxChars = maxChars
	}
}

// WithGenerateTimeout bounds each language-model call. Zero means only the
// caller's context bounds the call.
func WithGenerateTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.generateTimeout = d }
}

// NewService creates the answering service. topK is how many chunks are
// retrieved per question.
func NewService(
	retriever *search.Retriever,
	historyStore *history.Store,
	assembler *prompt.Assembler,
	generator Generator,
	topK int,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		retriever: retriever,
		history:   historyStore,
		assembler: assembler,
		generator: generator,
		topK:      topK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Answer generates a reply for question within the given session. The user
// and assistant turns are appended to the session only after a successful
// generation, as one unit, so a failed attempt never poisons the history.
func (s *Service) Answer(ctx context.Context, sessionID, question string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	if question == "" {
		return "", fmt.Errorf("question is required")
	}

	turns := s.history.Trim(sessionID, s.historyMaxTurns, s.historyMaxChars)
	retrieved, err := s.retriever.Retrieve(ctx, question, s.topK)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}
	assembled := s.assembler.Assemble(retrieved, turns, question)
	if s.logger != nil {
		s.logger.Debug("prompt assembled",
			zap.String("session_id", sessionID),
			zap.Int("retrieved_chunks", len(retrieved.Chunks)),
			zap.Int("history_turns", len(turns)),
			zap.Int("prompt_len", len(assembled)),
		)
	}

	genCtx := ctx
	if s.generateTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.generateTimeout)
		defer cancel()
	}
	asked := time.Now()
	reply, err := s.generator.Generate(genCtx, assembled)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
		}
		return "", fmt.Errorf("generate: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("answer generated",
			zap.String("session_id", sessionID),
			zap.Duration("elapsed", time.Since(asked)),
			zap.String("answer_preview", utils.Truncate(reply, 120)),
		)
	}
	s.history.AppendExchange(sessionID,
		models.ConversationTurn{Role: models.RoleUser, Content: question, Timestamp: asked},
		models.ConversationTurn{Role: models.RoleAssistant, Content: reply, Timestamp: time.Now()},
	)
	return reply, nil
}

// History returns the session's full transcript in chronological order.
func (s *Service) History(sessionID string) []models.ConversationTurn {
	return s.history.Turns(sessionID)
}

package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/history"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/prompt"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/vector"
)

// fakeGenerator returns a canned reply or error and records prompts.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	delay   time.Duration
}

func (g *fakeGenerator) Generate(ctx context.Context, p string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, p)
	g.mu.Unlock()
	if g.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(g.delay):
		}
	}
	return g.reply, g.err
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

func newTestService(t *testing.T, gen Generator, texts map[string]string) (*Service, *history.Store) {
	t.Helper()
	embedder := embedding.NewMockEmbedder(32)
	idx, err := vector.NewMemoryIndex("test", 32)
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
	retriever := search.NewRetriever(embedder, idx)
	hist := history.NewStore()
	assembler := prompt.NewAssembler("You answer from the given context.", 0)
	svc := NewService(retriever, hist, assembler, gen, 3)
	return svc, hist
}

func TestService_AnswerRecordsExchange(t *testing.T) {
	gen := &fakeGenerator{reply: "You need two trunks."}
	svc, hist := newTestService(t, gen, map[string]string{
		"sip": "SIP trunk sizing depends on concurrent call volume",
	})

	got, err := svc.Answer(context.Background(), "s1", "How many SIP trunks?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "You need two trunks." {
		t.Errorf("got %q", got)
	}

	turns := hist.Turns("s1")
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != models.RoleUser || turns[0].Content != "How many SIP trunks?" {
		t.Errorf("user turn %+v", turns[0])
	}
	if turns[1].Role != models.RoleAssistant || turns[1].Content != "You need two trunks." {
		t.Errorf("assistant turn %+v", turns[1])
	}

	if !strings.Contains(gen.lastPrompt(), "SIP trunk sizing") {
		t.Error("retrieved context missing from prompt")
	}
	if !strings.Contains(gen.lastPrompt(), "Question: How many SIP trunks?") {
		t.Error("question missing from prompt")
	}
}

func TestService_HistoryFlowsIntoFollowUp(t *testing.T) {
	gen := &fakeGenerator{reply: "reply"}
	svc, _ := newTestService(t, gen, map[string]string{"a": "context text"})

	if _, err := svc.Answer(context.Background(), "s", "first question"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Answer(context.Background(), "s", "second question"); err != nil {
		t.Fatal(err)
	}

	p := gen.lastPrompt()
	if !strings.Contains(p, "user: first question") {
		t.Error("previous user turn missing from follow-up prompt")
	}
	if !strings.Contains(p, "assistant: reply") {
		t.Error("previous assistant turn missing from follow-up prompt")
	}
}

func TestService_EmptyIndexStillAnswers(t *testing.T) {
	gen := &fakeGenerator{reply: "I don't have material on that."}
	svc, hist := newTestService(t, gen, nil)

	got, err := svc.Answer(context.Background(), "s", "anything at all?")
	if err != nil {
		t.Fatal(err)
	}
	if got == "" {
		t.Error("expected an answer")
	}
	if strings.Contains(gen.lastPrompt(), "Context:") {
		t.Error("empty retrieval must omit the context block")
	}
	if hist.Len("s") != 2 {
		t.Errorf("history len=%d", hist.Len("s"))
	}
}

func TestService_GenerationFailureLeavesHistoryUntouched(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("backend exploded")}
	svc, hist := newTestService(t, gen, map[string]string{"a": "text"})

	_, err := svc.Answer(context.Background(), "s", "q")
	if err == nil {
		t.Fatal("expected error")
	}
	if hist.Len("s") != 0 {
		t.Errorf("failed attempt wrote %d turns", hist.Len("s"))
	}
}

func TestService_GenerationTimeout(t *testing.T) {
	gen := &fakeGenerator{reply: "late", delay: time.Second}
	svc, hist := newTestService(t, gen, map[string]string{"a": "text"})
	svcWithTimeout := NewService(svc.retriever, hist, svc.assembler, gen, 3,
		WithGenerateTimeout(20*time.Millisecond))

	_, err := svcWithTimeout.Answer(context.Background(), "s", "q")
	if !errors.Is(err, ErrGenerationTimeout) {
		t.Fatalf("expected ErrGenerationTimeout, got %v", err)
	}
	if hist.Len("s") != 0 {
		t.Errorf("timed-out attempt wrote %d turns", hist.Len("s"))
	}
}

func TestService_ValidatesInput(t *testing.T) {
	svc, _ := newTestService(t, &fakeGenerator{reply: "r"}, nil)
	if _, err := svc.Answer(context.Background(), "", "q"); err == nil {
		t.Error("expected error for empty session id")
	}
	if _, err := svc.Answer(context.Background(), "s", ""); err == nil {
		t.Error("expected error for empty question")
	}
}

func TestService_ConcurrentSessions(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	svc, hist := newTestService(t, gen, map[string]string{"a": "shared context"})

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := fmt.Sprintf("session-%d", i)
			for r := 0; r < 5; r++ {
				if _, err := svc.Answer(context.Background(), sid, fmt.Sprintf("q-%d", r)); err != nil {
					t.Errorf("session %s: %v", sid, err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		sid := fmt.Sprintf("session-%d", i)
		if got := hist.Len(sid); got != 10 {
			t.Errorf("session %s has %d turns, want 10", sid, got)
		}
	}
}

// Package prompt assembles generation prompts from system instructions,
// retrieved context, and conversation history under a length budget.
package prompt

import (
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

const (
	contextHeader  = "Context:"
	historyHeader  = "Conversation so far:"
	questionPrefix = "Question: "
	chunkSeparator = "\n---\n"
)

// Assembler builds prompts in a fixed order: system instructions, retrieved
// context, conversation history, current question. When the result exceeds
// the length budget it drops whole history turns oldest-first, then context
// chunks lowest-scoring (last) first. The question is never truncated. This
// ordering encodes the priority: question > retrieved facts > history.
type Assembler struct {
	system    string
	maxLength int
}

// NewAssembler creates an assembler with the given system instructions and
// length budget in bytes. A non-positive maxLength disables the budget.
func NewAssembler(system string, maxLength int) *Assembler {
	return &Assembler{system: system, maxLength: maxLength}
}

// Assemble builds the prompt for question given retrieved context and
// history. retrieved may be nil or empty; the context block is then omitted.
func (a *Assembler) Assemble(retrieved *models.RetrievalResult, history []models.ConversationTurn, question string) string {
	var chunks []string
	if retrieved != nil {
		chunks = retrieved.Chunks
	}
	turns := history

	rendered := render(a.system, chunks, turns, question)
	for a.maxLength > 0 && len(rendered) > a.maxLength {
		switch {
		case len(turns) > 0:
			turns = turns[1:]
		case len(chunks) > 0:
			chunks = chunks[:len(chunks)-1]
		default:
			return rendered
		}
		rendered = render(a.system, chunks, turns, question)
	}
	return rendered
}

func render(system string, chunks []string, turns []models.ConversationTurn, question string) string {
	var b strings.Builder
	if system != "" {
		b.WriteString(system)
		b.WriteString("\n\n")
	}
	if len(chunks) > 0 {
		b.WriteString(contextHeader)
		b.WriteByte('\n')
		b.WriteString(strings.Join(chunks, chunkSeparator))
		b.WriteString("\n\n")
	}
	if len(turns) > 0 {
		b.WriteString(historyHeader)
		b.WriteByte('\n')
		for _, t := range turns {
			b.WriteString(t.Role)
			b.WriteString(": ")
			b.WriteString(t.Content)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(questionPrefix)
	b.WriteString(question)
	return b.String()
}

// Package history provides process-wide, session-scoped conversation memory.
package history

import (
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// session holds one conversation thread. The mutex serializes appends so two
// concurrent requests for the same session never interleave partial turn
// pairs.
type session struct {
	mu    sync.Mutex
	turns []models.ConversationTurn
}

// Store maps session IDs to ordered conversation turns. It is the single
// owner of all sessions: sessions are created on first reference and live for
// the process lifetime. The zero value is not usable; call NewStore.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
}

// NewStore creates an empty history store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*session)}
}

// getOrCreate returns the session for id, creating it atomically if absent.
func (s *Store) getOrCreate(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}

// Turns returns a copy of the session's turns in chronological order,
// creating the session if it does not exist. The copy is safe to read while
// other requests append.
func (s *Store) Turns(sessionID string) []models.ConversationTurn {
	sess := s.getOrCreate(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]models.ConversationTurn, len(sess.turns))
	copy(out, sess.turns)
	return out
}

// Append adds a turn to the session, creating the session if absent.
func (s *Store) Append(sessionID string, turn models.ConversationTurn) {
	sess := s.getOrCreate(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.turns = append(sess.turns, turn)
}

// AppendExchange appends a user turn and the assistant's reply as one unit
// under the session's critical section, so concurrent exchanges land in some
// serial order and never interleave mid-pair.
func (s *Store) AppendExchange(sessionID string, user, assistant models.ConversationTurn) {
	sess := s.getOrCreate(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.turns = append(sess.turns, user, assistant)
}

// Trim returns a bounded view of the session's history without mutating the
// stored turns. The most recent maxTurns turns whose combined content length
// does not exceed maxChars are kept, oldest dropped first. A non-positive
// bound disables that limit.
func (s *Store) Trim(sessionID string, maxTurns, maxChars int) []models.ConversationTurn {
	turns := s.Turns(sessionID)
	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}
	if maxChars > 0 {
		total := 0
		start := len(turns)
		for i := len(turns) - 1; i >= 0; i-- {
			total += len(turns[i].Content)
			if total > maxChars {
				break
			}
			start = i
		}
		turns = turns[start:]
	}
	return turns
}

// Len returns the number of turns stored for the session, zero for an
// unknown session (without creating it).
func (s *Store) Len(sessionID string) int {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.turns)
}

// Sessions returns the IDs of all known sessions.
func (s *Store) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

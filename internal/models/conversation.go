package models

import "time"

// Turn roles. A session's history is an append-only alternation of user and
// assistant turns, though the store itself does not enforce alternation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one user or assistant message within a session.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

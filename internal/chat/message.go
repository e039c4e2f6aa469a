// Package chat holds the conversation state machine: the session that
// dispatches user input and the view that applies streamed events to one
// in-progress assistant message.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one chat turn. Assistant messages grow monotonically while
// streaming and freeze at finalization; all other roles are immutable
// from creation.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Timestamp time.Time
}

func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// Package models contains data types and constants shared across nova.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the conversation transcript.
// The transcript is append-only; only the text of the last message may be
// mutated in place while a reply streams in.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message with a fresh id and timestamp.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	}
}

// RecognizedApp is a snapshot of the last non-self foreign application
// observed by the context watcher. Icon holds platform image bytes, if any.
type RecognizedApp struct {
	Name string
	Icon []byte
}

// TurnRequest is the ephemeral value built at submit time. It exists only for
// the duration of one backend call and is never persisted.
type TurnRequest struct {
	Text          string
	Image         []byte
	ImageMIME     string
	HiddenContext string
}

package chat

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry of a session's history
type Message struct {
	ID      string
	Role    Role
	Content string
}

// NewMessage creates a message with a fresh id
func NewMessage(role Role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

// Session represents a chat session
type Session struct {
	ID       string
	Title    string
	Messages []Message
}

// NewSession creates a new Session instance
func NewSession(title string) Session {
	return Session{
		ID:       uuid.NewString(),
		Title:    title,
		Messages: []Message{},
	}
}

// Clone returns a copy that shares no memory with s
func (s Session) Clone() Session {
	c := s
	c.Messages = make([]Message, len(s.Messages))
	copy(c.Messages, s.Messages)
	return c
}

// WithMessageContent returns a copy of s where the message with the given id
// has its content replaced. Other messages are left as they are.
func (s Session) WithMessageContent(messageID, content string) (Session, bool) {
	for i := range s.Messages {
		if s.Messages[i].ID != messageID {
			continue
		}
		c := s.Clone()
		c.Messages[i].Content = content
		return c, true
	}
	return s, false
}

package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSession(t *testing.T) {
	s := NewSession("New Chat 1")

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "New Chat 1", s.Title)
	assert.NotNil(t, s.Messages)
	assert.Empty(t, s.Messages)
	assert.NotEqual(t, s.ID, NewSession("other").ID)
}

func TestSession_Clone(t *testing.T) {
	s := NewSession("a")
	s.Messages = append(s.Messages, NewMessage(RoleUser, "Hi"))

	c := s.Clone()
	c.Messages[0].Content = "changed"

	assert.Equal(t, "Hi", s.Messages[0].Content)
}

func TestSession_WithMessageContent(t *testing.T) {
	user := NewMessage(RoleUser, "Hi")
	reply := NewMessage(RoleAssistant, "")
	s := Session{ID: "s", Messages: []Message{user, reply}}

	updated, ok := s.WithMessageContent(reply.ID, "Hello")

	assert.True(t, ok)
	assert.Equal(t, "Hello", updated.Messages[1].Content)
	assert.Equal(t, reply.ID, updated.Messages[1].ID)
	assert.Equal(t, RoleAssistant, updated.Messages[1].Role)
	assert.Equal(t, user, updated.Messages[0])
	assert.Equal(t, "", s.Messages[1].Content, "original is untouched")

	_, ok = s.WithMessageContent("missing", "x")
	assert.False(t, ok)
}

func TestNewChatRequest(t *testing.T) {
	history := []Message{
		{ID: "1", Role: RoleUser, Content: "Hi"},
		{ID: "2", Role: RoleAssistant, Content: "Hello"},
	}

	req := NewChatRequest(history, DefaultOptions(""))

	assert.Equal(t, ChatModelLite, req.Model)
	assert.True(t, req.Stream)
	assert.Equal(t, []ChatMessage{
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleAssistant, Content: "Hello"},
	}, req.Messages)
}

func TestChatResponseStreamChunk_Delta(t *testing.T) {
	assert.Equal(t, "", ChatResponseStreamChunk{}.Delta())
	chunk := ChatResponseStreamChunk{Choices: []ChatResponseChoice{{Delta: ChatMessage{Content: "x"}}}}
	assert.Equal(t, "x", chunk.Delta())
}

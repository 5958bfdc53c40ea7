package reconcile

import (
	"strings"

	"github.com/gennadis/streamchat/internal/chat"
)

// State is the lifecycle position of one submission
type State int

const (
	Pending State = iota
	Streaming
	Succeeded
	Failed
	Canceled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Streaming:
		return "streaming"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Canceled
}

var transitions = map[State][]State{
	Pending:   {Streaming, Failed, Canceled},
	Streaming: {Succeeded, Failed, Canceled},
}

func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// submission is one accepted user message and the reply streamed for it
type submission struct {
	sessionID string
	user      chat.Message
	assistant chat.Message
	baseline  []chat.Message
	history   []chat.Message
	opts      chat.Options

	state State
	total strings.Builder
}

func (s *submission) transition(to State) bool {
	if !canTransition(s.state, to) {
		return false
	}
	s.state = to
	return true
}

// settled returns the session messages once the reply is final
func (s *submission) settled(content string) []chat.Message {
	messages := make([]chat.Message, 0, len(s.baseline)+2)
	messages = append(messages, s.baseline...)
	reply := s.assistant
	reply.Content = content
	return append(messages, s.user, reply)
}

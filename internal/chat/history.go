package chat

import "strings"

// BuildHistory returns the messages of s that may be sent to a completion
// endpoint: user and assistant entries with non-blank content, in order.
func BuildHistory(s Session) []Message {
	history := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		history = append(history, m)
	}
	return history
}

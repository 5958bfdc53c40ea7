package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildHistory(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     []string
	}{
		{
			name:     "empty session",
			messages: nil,
			want:     []string{},
		},
		{
			name: "drops blank placeholder",
			messages: []Message{
				{ID: "1", Role: RoleUser, Content: "Hi"},
				{ID: "2", Role: RoleAssistant, Content: ""},
			},
			want: []string{"1"},
		},
		{
			name: "drops whitespace only content",
			messages: []Message{
				{ID: "1", Role: RoleUser, Content: " \n\t"},
				{ID: "2", Role: RoleAssistant, Content: "Hello"},
			},
			want: []string{"2"},
		},
		{
			name: "drops unsupported roles",
			messages: []Message{
				{ID: "1", Role: RoleSystem, Content: "be nice"},
				{ID: "2", Role: "ai", Content: "legacy"},
				{ID: "3", Role: RoleUser, Content: "Hi"},
			},
			want: []string{"3"},
		},
		{
			name: "keeps order",
			messages: []Message{
				{ID: "1", Role: RoleUser, Content: "a"},
				{ID: "2", Role: RoleAssistant, Content: "b"},
				{ID: "3", Role: RoleUser, Content: "c"},
				{ID: "4", Role: RoleAssistant, Content: "d"},
			},
			want: []string{"1", "2", "3", "4"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := BuildHistory(Session{ID: "s", Messages: tc.messages})

			ids := []string{}
			for _, m := range got {
				ids = append(ids, m.ID)
				assert.NotEmpty(t, strings.TrimSpace(m.Content))
				assert.Contains(t, []Role{RoleUser, RoleAssistant}, m.Role)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestBuildHistory_Idempotent(t *testing.T) {
	s := Session{Messages: []Message{
		{ID: "1", Role: RoleUser, Content: "Hi"},
		{ID: "2", Role: RoleAssistant, Content: ""},
		{ID: "3", Role: RoleSystem, Content: "x"},
	}}

	first := BuildHistory(s)
	second := BuildHistory(s)

	assert.Equal(t, first, second)
	assert.Equal(t, first, BuildHistory(Session{Messages: first}))
	assert.Len(t, s.Messages, 3, "input must not be modified")
}

func TestBuildHistory_EmptyIsNotNil(t *testing.T) {
	assert.NotNil(t, BuildHistory(Session{}))
}

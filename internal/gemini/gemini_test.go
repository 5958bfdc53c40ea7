package gemini

import (
	"context"
	"errors"
	"io"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/gennadis/streamchat/internal/chat"
	"github.com/gennadis/streamchat/internal/client"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(text, genai.RoleModel),
		}},
	}
}

func seqOf(texts []string, failWith error) iter.Seq2[*genai.GenerateContentResponse, error] {
	return func(yield func(*genai.GenerateContentResponse, error) bool) {
		for _, text := range texts {
			if !yield(textResponse(text), nil) {
				return
			}
		}
		if failWith != nil {
			yield(nil, failWith)
		}
	}
}

func TestSeqStream_Fragments(t *testing.T) {
	s := newSeqStream(seqOf([]string{"Hel", "lo"}, nil))
	defer s.Close()

	f, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Hel", f.Text)

	f, err = s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "lo", f.Text)

	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)
	_, err = s.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSeqStream_ErrorBecomesTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	s := newSeqStream(seqOf([]string{"partial"}, boom))
	defer s.Close()

	_, err := s.Recv()
	require.NoError(t, err)

	_, err = s.Recv()
	var terr *client.TransportError
	require.True(t, errors.As(err, &terr))
	assert.ErrorIs(t, err, boom)
}

func TestSeqStream_CloseBeforeExhaustion(t *testing.T) {
	s := newSeqStream(seqOf([]string{"a", "b", "c"}, nil))
	_, err := s.Recv()
	require.NoError(t, err)
	assert.NoError(t, s.Close())
}

func TestToContents_MapsRoles(t *testing.T) {
	contents := toContents([]chat.Message{
		{ID: "1", Role: chat.RoleUser, Content: "Hi"},
		{ID: "2", Role: chat.RoleAssistant, Content: "Hello"},
	})

	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "Hello", contents[1].Parts[0].Text)
}

func TestModelFor(t *testing.T) {
	c := &Client{model: "gemini-2.5-flash"}
	assert.Equal(t, "gemini-2.5-flash", c.modelFor(chat.ChatModelLite))
	assert.Equal(t, "gemini-2.5-pro", c.modelFor("gemini-2.5-pro"))
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "", "")
	assert.Error(t, err)
}

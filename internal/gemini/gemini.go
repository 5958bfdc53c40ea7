// Package gemini streams completions from Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"google.golang.org/genai"

	"github.com/gennadis/streamchat/internal/chat"
	"github.com/gennadis/streamchat/internal/client"
)

const defaultModel = "gemini-2.5-flash"

// Client adapts a genai client to the completion stream contract
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client. model is used when the call options
// name a model that is not a Gemini one.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{client: gc, model: model}, nil
}

// Ready reports whether the underlying client was created
func (c *Client) Ready() bool {
	return c != nil && c.client != nil
}

// StartCompletion opens a streaming generation for history
func (c *Client) StartCompletion(ctx context.Context, history []chat.Message, opts chat.Options) (chat.Stream, error) {
	model := c.modelFor(opts.Model)
	contents := toContents(history)

	slog.Debug("gemini stream opened",
		slog.String("model", model),
		slog.Int("messages", len(contents)),
	)
	return newSeqStream(c.client.Models.GenerateContentStream(ctx, model, contents, nil)), nil
}

func (c *Client) modelFor(m chat.ChatModel) string {
	switch m {
	case "", chat.ChatModelLite, chat.ChatModelPro, chat.ChatModelMax:
		return c.model
	default:
		return string(m)
	}
}

func toContents(history []chat.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == chat.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}

// seqStream turns a pull iterator of responses into a chat.Stream
type seqStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
	err  error
}

func newSeqStream(seq iter.Seq2[*genai.GenerateContentResponse, error]) *seqStream {
	next, stop := iter.Pull2(seq)
	return &seqStream{next: next, stop: stop}
}

func (s *seqStream) Recv() (chat.Fragment, error) {
	if s.err != nil {
		return chat.Fragment{}, s.err
	}
	resp, err, ok := s.next()
	if !ok {
		s.err = io.EOF
		return chat.Fragment{}, s.err
	}
	if err != nil {
		s.err = &client.TransportError{Op: "gemini stream", Err: err}
		s.stop()
		return chat.Fragment{}, s.err
	}
	if resp == nil {
		return chat.Fragment{}, nil
	}
	return chat.Fragment{Text: resp.Text()}, nil
}

func (s *seqStream) Close() error {
	s.stop()
	return nil
}

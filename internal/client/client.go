package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gennadis/streamchat/internal/chat"
	"github.com/gennadis/streamchat/internal/config"
)

const (
	JSONContentType        = "application/json"
	EventStreamContentType = "text/event-stream"
)

// TokenSource provides the bearer token for API calls
type TokenSource interface {
	Token() string
}

type Client struct {
	httpClient *http.Client
	Config     *config.Config
	tokens     TokenSource
}

// NewClient creates a GigaChat API client. Streams are bounded by the
// request context only, so httpClient should not carry a Timeout.
func NewClient(cfg config.Config, tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		Config:     &cfg,
		tokens:     tokens,
	}
}

// Ready reports whether the client holds an access token
func (c *Client) Ready() bool {
	return c.tokens != nil && c.tokens.Token() != ""
}

// StartCompletion opens a streaming completion for history. The returned
// stream must be closed by the caller.
func (c *Client) StartCompletion(ctx context.Context, history []chat.Message, opts chat.Options) (chat.Stream, error) {
	request := chat.NewChatRequest(history, opts)
	reqBytes, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}
	completionsPath := strings.TrimRight(c.Config.BaseURL, "/") + "/chat/completions"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, completionsPath, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}

	accept := JSONContentType
	if opts.Stream {
		accept = EventStreamContentType
	}
	req.Header.Set("Content-Type", JSONContentType)
	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.tokens.Token()))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "send completion request", Err: err}
	}

	if err := handleApiError(res); err != nil {
		res.Body.Close()
		return nil, err
	}

	slog.Debug("completion stream opened",
		slog.String("model", string(request.Model)),
		slog.Int("messages", len(request.Messages)),
	)
	return newEventStream(res.Body), nil
}

func handleApiError(res *http.Response) error {
	if res.StatusCode == http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	if err != nil {
		return &TransportError{Op: "read error response", StatusCode: res.StatusCode, Err: err}
	}
	apiErr := ApiErrorResponse{}
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return &TransportError{Op: "completion request failed", StatusCode: res.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return &TransportError{Op: "completion request failed", StatusCode: res.StatusCode, Message: apiErr.Message}
}

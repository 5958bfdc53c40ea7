package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/gennadis/streamchat/internal/chat"
)

const maxEventSize = 1024 * 1024

var doneMarker = []byte("[DONE]")

// eventStream reads GigaChat server-sent events. Every "data:" line holds a
// JSON chunk; the stream is finished by "data: [DONE]".
type eventStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	err     error
}

func newEventStream(body io.ReadCloser) *eventStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &eventStream{body: body, scanner: scanner}
}

// Recv returns the next fragment. After the stream has ended every call
// returns the same terminal error.
func (s *eventStream) Recv() (chat.Fragment, error) {
	if s.err != nil {
		return chat.Fragment{}, s.err
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if !bytes.HasPrefix(line, []byte("data:")) {
			// blank separators, comments, event/id fields
			continue
		}
		data := bytes.TrimSpace(line[len("data:"):])
		if bytes.Equal(data, doneMarker) {
			s.err = io.EOF
			return chat.Fragment{}, s.err
		}

		var chunk chat.ChatResponseStreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			s.err = &TransportError{Op: "decode stream chunk", Err: err}
			return chat.Fragment{}, s.err
		}
		return chat.Fragment{Text: chunk.Delta()}, nil
	}

	err := s.scanner.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	s.err = &TransportError{Op: "read completion stream", Err: err}
	return chat.Fragment{}, s.err
}

func (s *eventStream) Close() error {
	return s.body.Close()
}

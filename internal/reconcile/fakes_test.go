package reconcile

import (
	"context"
	"io"
	"sync"

	"github.com/gennadis/streamchat/internal/chat"
	"github.com/gennadis/streamchat/internal/client"
)

var errDropped = &client.TransportError{Op: "read completion stream", Err: io.ErrUnexpectedEOF}

// scriptedStream yields fragments and then ends with err, or io.EOF if err is nil
type scriptedStream struct {
	fragments []string
	err       error
	closed    bool
}

func (s *scriptedStream) Recv() (chat.Fragment, error) {
	if len(s.fragments) == 0 {
		if s.err != nil {
			return chat.Fragment{}, s.err
		}
		return chat.Fragment{}, io.EOF
	}
	text := s.fragments[0]
	s.fragments = s.fragments[1:]
	return chat.Fragment{Text: text}, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type streamEvent struct {
	text string
	err  error
}

// chanStream yields whatever the test sends and ends when the channel is closed
type chanStream struct {
	ctx    context.Context
	events chan streamEvent
}

func newChanStream(ctx context.Context) *chanStream {
	return &chanStream{ctx: ctx, events: make(chan streamEvent)}
}

func (s *chanStream) Recv() (chat.Fragment, error) {
	select {
	case <-s.ctx.Done():
		return chat.Fragment{}, s.ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			return chat.Fragment{}, io.EOF
		}
		if ev.err != nil {
			return chat.Fragment{}, ev.err
		}
		return chat.Fragment{Text: ev.text}, nil
	}
}

func (s *chanStream) Close() error { return nil }

type completerCall struct {
	history []chat.Message
	opts    chat.Options
}

// fakeCompleter hands out the streams produced by open
type fakeCompleter struct {
	mu    sync.Mutex
	calls []completerCall
	open  func(ctx context.Context) (chat.Stream, error)
}

func completerOf(fragments []string, err error) *fakeCompleter {
	return &fakeCompleter{open: func(context.Context) (chat.Stream, error) {
		return &scriptedStream{fragments: append([]string(nil), fragments...), err: err}, nil
	}}
}

func (f *fakeCompleter) StartCompletion(ctx context.Context, history []chat.Message, opts chat.Options) (chat.Stream, error) {
	f.mu.Lock()
	f.calls = append(f.calls, completerCall{history: history, opts: opts})
	open := f.open
	f.mu.Unlock()
	return open(ctx)
}

func (f *fakeCompleter) lastCall() completerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return completerCall{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeCompleter) setOpen(open func(ctx context.Context) (chat.Stream, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = open
}

// recorder keeps every snapshot and the snapshot current at each scroll
type recorder struct {
	mu        sync.Mutex
	snapshots []Snapshot
	scrolls   []Snapshot
}

func (r *recorder) StateChanged(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) ScrollToLatest(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrolls = append(r.scrolls, r.snapshots[len(r.snapshots)-1])
}

func (r *recorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshots[len(r.snapshots)-1]
}

func (r *recorder) scrollCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scrolls)
}

// contentsOf lists the distinct successive contents the displayed session
// showed for the given message
func (r *recorder) contentsOf(messageID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var contents []string
	for _, s := range r.snapshots {
		if s.Displayed == nil {
			continue
		}
		for _, m := range s.Displayed.Messages {
			if m.ID != messageID {
				continue
			}
			if len(contents) == 0 || contents[len(contents)-1] != m.Content {
				contents = append(contents, m.Content)
			}
		}
	}
	return contents
}

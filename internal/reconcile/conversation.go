// Package reconcile keeps the displayed conversation and the session store
// in step while replies stream in from a completion backend.
//
// The Store is authoritative. The displayed session is a copy of the
// selected session that is updated on every fragment, while the Store only
// receives the final reply. At every terminal transition the displayed copy
// is reloaded from the Store so both hold equal values.
package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/gennadis/streamchat/internal/chat"
	"github.com/gennadis/streamchat/internal/readiness"
	"github.com/gennadis/streamchat/internal/session"
)

// Completer opens a completion stream for a sanitized history
type Completer interface {
	StartCompletion(ctx context.Context, history []chat.Message, opts chat.Options) (chat.Stream, error)
}

// Observer receives state changes. Methods are called with the conversation
// lock held, in order, and must neither block nor call back into the
// Conversation.
type Observer interface {
	StateChanged(Snapshot)
	ScrollToLatest(sessionID string)
}

// Snapshot is what the presentation layer renders
type Snapshot struct {
	Version   uint64
	Sessions  []chat.Session
	Displayed *chat.Session
	Loading   bool
	Ready     bool
}

// Result describes what happened to a Submit call
type Result struct {
	Accepted  bool
	SessionID string
	MessageID string
	State     State
}

type Conversation struct {
	store     *session.Store
	gate      *readiness.Gate
	completer Completer
	observer  Observer

	mu        sync.Mutex
	displayed *chat.Session
	model     chat.ChatModel
	version   uint64
}

// New creates a Conversation over store. If the store is empty a first
// session is created and displayed.
func New(store *session.Store, gate *readiness.Gate, completer Completer, observer Observer, model chat.ChatModel) *Conversation {
	if observer == nil {
		observer = nopObserver{}
	}
	c := &Conversation{
		store:     store,
		gate:      gate,
		completer: completer,
		observer:  observer,
		model:     model,
	}
	if store.Len() == 0 {
		store.Create()
	}
	c.mu.Lock()
	c.reloadDisplayed()
	c.mu.Unlock()

	gate.OnReady(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.notify()
	})
	return c
}

// NewSession creates an empty session and displays it
func (c *Conversation) NewSession() chat.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.store.Create()
	c.reloadDisplayed()
	c.notify()
	return s
}

// SelectSession displays the session with the given id
func (c *Conversation) SelectSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.Get(id); !ok {
		return
	}
	c.store.Select(id)
	c.reloadDisplayed()
	c.notify()
}

// RenameSession changes a session title in the store and, if it is
// displayed, in the displayed copy. Streaming content is left alone.
func (c *Conversation) RenameSession(id, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.Get(id); !ok {
		return
	}
	c.store.Rename(id, title)
	if c.displayed != nil && c.displayed.ID == id {
		c.displayed.Title = title
	}
	c.notify()
}

// DeleteSession removes a session. Deleting the displayed session displays
// the first remaining one, or nothing.
func (c *Conversation) DeleteSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.Get(id); !ok {
		return
	}
	c.store.Delete(id)
	if c.displayed != nil && c.displayed.ID == id {
		c.reloadDisplayed()
	}
	c.notify()
}

// SetModel selects the model used by subsequent submissions
func (c *Conversation) SetModel(model chat.ChatModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

func (c *Conversation) Model() chat.ChatModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// State returns the current snapshot
func (c *Conversation) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Submit sends text to the displayed session and blocks until the reply is
// final. Submissions are ignored while the backend is not ready, when the
// text is blank, when nothing is displayed, or while the displayed session
// already waits for a reply.
func (c *Conversation) Submit(ctx context.Context, text string) Result {
	sub, ok := c.accept(text)
	if !ok {
		return Result{}
	}
	c.stream(ctx, sub)
	return Result{
		Accepted:  true,
		SessionID: sub.sessionID,
		MessageID: sub.assistant.ID,
		State:     sub.state,
	}
}

func (c *Conversation) accept(text string) (*submission, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gate.IsReady() || strings.TrimSpace(text) == "" || c.displayed == nil {
		return nil, false
	}
	id := c.displayed.ID
	if !c.store.BeginFlight(id) {
		return nil, false
	}
	current, ok := c.store.Get(id)
	if !ok {
		c.store.EndFlight(id)
		return nil, false
	}

	sub := &submission{
		sessionID: id,
		user:      chat.NewMessage(chat.RoleUser, text),
		assistant: chat.NewMessage(chat.RoleAssistant, ""),
		baseline:  current.Messages,
		opts:      chat.DefaultOptions(c.model),
		state:     Pending,
	}
	outgoing := current.Clone()
	outgoing.Messages = append(outgoing.Messages, sub.user)
	sub.history = chat.BuildHistory(outgoing)

	c.store.Apply(id, func(s chat.Session) chat.Session {
		s.Messages = append(s.Messages, sub.user, sub.assistant)
		return s
	})
	c.reloadDisplayed()
	c.notify()

	slog.Info("submission accepted",
		slog.String("session_id", id),
		slog.String("message_id", sub.assistant.ID),
		slog.Int("history", len(sub.history)),
	)
	return sub, true
}

func (c *Conversation) stream(ctx context.Context, sub *submission) {
	stream, err := c.completer.StartCompletion(ctx, sub.history, sub.opts)
	if err != nil {
		c.fail(ctx, sub, err)
		return
	}
	defer stream.Close()

	c.mu.Lock()
	sub.transition(Streaming)
	c.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			c.fail(ctx, sub, err)
			return
		}
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			c.succeed(sub)
			return
		}
		if err != nil {
			c.fail(ctx, sub, err)
			return
		}
		if fragment.Text == "" {
			continue
		}
		c.applyFragment(sub, fragment)
	}
}

// applyFragment extends the running reply and shows it in the displayed
// session. The store is left untouched until the reply is final.
func (c *Conversation) applyFragment(sub *submission, fragment chat.Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub.total.WriteString(fragment.Text)
	if c.displayed == nil || c.displayed.ID != sub.sessionID {
		return
	}
	updated, ok := c.displayed.WithMessageContent(sub.assistant.ID, sub.total.String())
	if !ok {
		return
	}
	c.displayed = &updated
	c.notify()
}

func (c *Conversation) succeed(sub *submission) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reply := sub.total.String()
	c.store.Apply(sub.sessionID, func(s chat.Session) chat.Session {
		s.Messages = sub.settled(reply)
		return s
	})
	sub.transition(Succeeded)

	slog.Info("reply completed",
		slog.String("session_id", sub.sessionID),
		slog.String("message_id", sub.assistant.ID),
		slog.Int("length", len(reply)),
	)
	c.finish(sub)
}

func (c *Conversation) fail(ctx context.Context, sub *submission, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, marker := Failed, chat.ErrorMarker
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		state, marker = Canceled, chat.CanceledMarker
	}
	c.store.Apply(sub.sessionID, func(s chat.Session) chat.Session {
		s.Messages = sub.settled(marker)
		return s
	})
	sub.transition(state)

	slog.Error("Failed to stream reply",
		slog.String("session_id", sub.sessionID),
		slog.String("message_id", sub.assistant.ID),
		slog.String("state", state.String()),
		slog.Any("error", err),
	)
	c.finish(sub)
}

// finish releases the session, reconciles the displayed copy with the store
// and scrolls once everything is settled. Called with c.mu held.
func (c *Conversation) finish(sub *submission) {
	c.store.EndFlight(sub.sessionID)
	if c.displayed != nil && c.displayed.ID == sub.sessionID {
		c.reloadDisplayed()
	}
	c.notify()
	c.observer.ScrollToLatest(sub.sessionID)
}

// reloadDisplayed copies the store's selected session. Called with c.mu held.
func (c *Conversation) reloadDisplayed() {
	selected, ok := c.store.Selected()
	if !ok {
		c.displayed = nil
		return
	}
	c.displayed = &selected
}

func (c *Conversation) notify() {
	c.version++
	c.observer.StateChanged(c.snapshot())
}

func (c *Conversation) snapshot() Snapshot {
	snap := Snapshot{
		Version:  c.version,
		Sessions: c.store.List(),
		Ready:    c.gate.IsReady(),
	}
	if c.displayed != nil {
		displayed := c.displayed.Clone()
		snap.Displayed = &displayed
		snap.Loading = c.store.InFlight(displayed.ID)
	}
	return snap
}

type nopObserver struct{}

func (nopObserver) StateChanged(Snapshot)  {}
func (nopObserver) ScrollToLatest(string) {}

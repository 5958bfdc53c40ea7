package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gennadis/streamchat/internal/chat"
)

const defaultTitleFormat = "New Chat %d"

// Store holds chat sessions in memory together with the selected session
// and the set of sessions that have a reply in flight.
type Store struct {
	mu       sync.RWMutex
	sessions []chat.Session
	selected string
	inFlight map[string]struct{}
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		inFlight: make(map[string]struct{}),
	}
}

// Create appends a new empty session and selects it
func (s *Store) Create() chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := chat.NewSession(fmt.Sprintf(defaultTitleFormat, len(s.sessions)+1))
	s.sessions = append(s.sessions, session)
	s.selected = session.ID

	slog.Debug("session created",
		slog.String("id", session.ID),
		slog.String("title", session.Title),
	)
	return session.Clone()
}

// Rename replaces the title of the session with the given id
func (s *Store) Rename(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.sessions[i].Title = title

	slog.Debug("session renamed",
		slog.String("id", id),
		slog.String("title", title),
	)
}

// Delete removes the session with the given id. When the selected session is
// removed the selection falls back to the first remaining one.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
	delete(s.inFlight, id)

	if s.selected == id {
		s.selected = ""
		if len(s.sessions) > 0 {
			s.selected = s.sessions[0].ID
		}
	}

	slog.Debug("session deleted",
		slog.String("id", id),
		slog.Int("remaining", len(s.sessions)),
	)
}

// Select makes the session with the given id the selected one
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return
	}
	s.selected = id
}

// Apply replaces the session with the given id by the result of update.
// The session id cannot be changed by update. It reports whether the session exists.
func (s *Store) Apply(id string, update func(chat.Session) chat.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	updated := update(s.sessions[i].Clone()).Clone()
	updated.ID = id
	s.sessions[i] = updated
	return true
}

// Get returns a copy of the session with the given id
func (s *Store) Get(id string) (chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return chat.Session{}, false
	}
	return s.sessions[i].Clone(), true
}

// List returns copies of all sessions in creation order
func (s *Store) List() []chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]chat.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session.Clone())
	}
	return sessions
}

// Selected returns a copy of the selected session, if there is one
func (s *Store) Selected() (chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(s.selected)
	if i < 0 {
		return chat.Session{}, false
	}
	return s.sessions[i].Clone(), true
}

// Len returns the number of sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// BeginFlight marks the session as having a reply in flight. It returns false
// if the session does not exist or already has one.
func (s *Store) BeginFlight(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(id) < 0 {
		return false
	}
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

// EndFlight clears the in-flight marker of the session
func (s *Store) EndFlight(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}

// InFlight reports whether the session has a reply in flight
func (s *Store) InFlight(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, busy := s.inFlight[id]
	return busy
}

func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

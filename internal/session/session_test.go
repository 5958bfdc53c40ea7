package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gennadis/streamchat/internal/chat"
)

func TestStore_CreateSelectsNewSession(t *testing.T) {
	s := NewStore()

	first := s.Create()
	second := s.Create()

	assert.Equal(t, "New Chat 1", first.Title)
	assert.Equal(t, "New Chat 2", second.Title)
	assert.NotEqual(t, first.ID, second.ID)

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, second.ID, selected.ID)
	assert.Equal(t, 2, s.Len())
}

func TestStore_Rename(t *testing.T) {
	s := NewStore()
	created := s.Create()

	s.Rename(created.ID, "Trip plans")
	s.Rename("missing", "ignored")

	got, ok := s.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Trip plans", got.Title)
	assert.Equal(t, 1, s.Len())
}

func TestStore_DeleteSelectedFallsBackToFirst(t *testing.T) {
	s := NewStore()
	a := s.Create()
	b := s.Create()
	c := s.Create()

	s.Delete(c.ID)

	selected, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, a.ID, selected.ID)

	s.Select(b.ID)
	s.Delete(a.ID)
	selected, _ = s.Selected()
	assert.Equal(t, b.ID, selected.ID, "deleting another session keeps the selection")
}

func TestStore_DeleteLastSession(t *testing.T) {
	s := NewStore()
	only := s.Create()

	s.Delete(only.ID)

	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Empty(t, s.List())
}

func TestStore_SelectUnknownIsNoop(t *testing.T) {
	s := NewStore()
	a := s.Create()

	s.Select("missing")

	selected, _ := s.Selected()
	assert.Equal(t, a.ID, selected.ID)
}

func TestStore_ApplyPreservesOrderAndID(t *testing.T) {
	s := NewStore()
	a := s.Create()
	b := s.Create()
	c := s.Create()

	ok := s.Apply(b.ID, func(session chat.Session) chat.Session {
		session.ID = "hijacked"
		session.Messages = append(session.Messages, chat.NewMessage(chat.RoleUser, "Hi"))
		return session
	})
	require.True(t, ok)

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Len(t, list[1].Messages, 1)

	assert.False(t, s.Apply("missing", func(session chat.Session) chat.Session { return session }))
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	a := s.Create()
	s.Apply(a.ID, func(session chat.Session) chat.Session {
		session.Messages = append(session.Messages, chat.NewMessage(chat.RoleUser, "Hi"))
		return session
	})

	got, _ := s.Get(a.ID)
	got.Messages[0].Content = "tampered"

	again, _ := s.Get(a.ID)
	assert.Equal(t, "Hi", again.Messages[0].Content)
}

func TestStore_InFlight(t *testing.T) {
	s := NewStore()
	a := s.Create()

	assert.False(t, s.InFlight(a.ID))
	assert.True(t, s.BeginFlight(a.ID))
	assert.True(t, s.InFlight(a.ID))
	assert.False(t, s.BeginFlight(a.ID), "only one reply may be in flight")
	assert.False(t, s.BeginFlight("missing"))

	s.EndFlight(a.ID)
	assert.False(t, s.InFlight(a.ID))
	assert.True(t, s.BeginFlight(a.ID))

	s.Delete(a.ID)
	assert.False(t, s.InFlight(a.ID))
}

func TestStore_ConcurrentBeginFlight(t *testing.T) {
	s := NewStore()
	a := s.Create()

	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.BeginFlight(a.ID) {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
}

package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gennadis/streamchat/internal/reconcile"
)

type stateMsg reconcile.Snapshot

type scrollMsg struct {
	sessionID string
}

// Observer forwards conversation notifications to a running program.
// Sends happen on their own goroutines so the conversation never waits for
// the UI loop; the model drops snapshots older than the one it shows.
type Observer struct {
	mu      sync.RWMutex
	program *tea.Program
}

func NewObserver() *Observer {
	return &Observer{}
}

// Attach starts delivering notifications to p
func (o *Observer) Attach(p *tea.Program) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.program = p
}

func (o *Observer) send(msg tea.Msg) {
	o.mu.RLock()
	p := o.program
	o.mu.RUnlock()
	if p == nil {
		return
	}
	go p.Send(msg)
}

func (o *Observer) StateChanged(s reconcile.Snapshot) {
	o.send(stateMsg(s))
}

func (o *Observer) ScrollToLatest(sessionID string) {
	o.send(scrollMsg{sessionID: sessionID})
}

// Package tui is a terminal front end for a reconcile.Conversation.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gennadis/streamchat/internal/chat"
	"github.com/gennadis/streamchat/internal/reconcile"
)

// Conversation is the part of reconcile.Conversation the UI drives
type Conversation interface {
	NewSession() chat.Session
	SelectSession(id string)
	RenameSession(id, title string)
	DeleteSession(id string)
	Submit(ctx context.Context, text string) reconcile.Result
	SetModel(model chat.ChatModel)
	Model() chat.ChatModel
	State() reconcile.Snapshot
}

type Model struct {
	ctx    context.Context
	conv   Conversation
	models []chat.ChatModel

	snap     reconcile.Snapshot
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	renaming bool
	follow   bool
	width    int
	height   int
}

// NewModel creates the UI model. models lists the choices cycled by ctrl+t.
func NewModel(ctx context.Context, conv Conversation, models []chat.ChatModel) Model {
	input := textinput.New()
	input.Placeholder = "Send a message..."
	input.Focus()

	return Model{
		ctx:      ctx,
		conv:     conv,
		models:   models,
		snap:     conv.State(),
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		follow:   true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()

	case stateMsg:
		if msg.Version < m.snap.Version {
			return m, nil
		}
		m.snap = reconcile.Snapshot(msg)
		m.refresh()

	case scrollMsg:
		if m.snap.Displayed != nil && m.snap.Displayed.ID == msg.sessionID {
			m.follow = true
			m.viewport.GotoBottom()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		return tea.Quit, true

	case "enter":
		return m.enter(), true

	case "esc":
		if m.renaming {
			m.renaming = false
			m.input.SetValue("")
			m.input.Placeholder = "Send a message..."
		}
		return nil, true

	case "ctrl+n":
		m.conv.NewSession()
		m.sync()
		return nil, true

	case "ctrl+x":
		if d := m.snap.Displayed; d != nil {
			m.conv.DeleteSession(d.ID)
			m.sync()
		}
		return nil, true

	case "ctrl+r":
		if d := m.snap.Displayed; d != nil {
			m.renaming = true
			m.input.SetValue(d.Title)
			m.input.Placeholder = "Session title"
			m.input.CursorEnd()
		}
		return nil, true

	case "tab":
		m.selectRelative(1)
		return nil, true

	case "shift+tab":
		m.selectRelative(-1)
		return nil, true

	case "ctrl+t":
		m.cycleModel()
		return nil, true

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return cmd, true
	}
	return nil, false
}

func (m *Model) enter() tea.Cmd {
	value := m.input.Value()

	if m.renaming {
		if d := m.snap.Displayed; d != nil && strings.TrimSpace(value) != "" {
			m.conv.RenameSession(d.ID, strings.TrimSpace(value))
		}
		m.renaming = false
		m.input.SetValue("")
		m.input.Placeholder = "Send a message..."
		m.sync()
		return nil
	}

	if !m.canSubmit(value) {
		return nil
	}
	m.input.SetValue("")
	m.follow = true

	ctx, conv := m.ctx, m.conv
	return func() tea.Msg {
		conv.Submit(ctx, value)
		return nil
	}
}

func (m *Model) canSubmit(text string) bool {
	return m.snap.Ready && !m.snap.Loading && m.snap.Displayed != nil && strings.TrimSpace(text) != ""
}

func (m *Model) selectRelative(step int) {
	sessions := m.snap.Sessions
	if len(sessions) == 0 {
		return
	}
	current := 0
	if d := m.snap.Displayed; d != nil {
		for i, s := range sessions {
			if s.ID == d.ID {
				current = i
				break
			}
		}
	}
	next := (current + step + len(sessions)) % len(sessions)
	m.conv.SelectSession(sessions[next].ID)
	m.follow = true
	m.sync()
}

func (m *Model) cycleModel() {
	if len(m.models) == 0 {
		return
	}
	current := m.conv.Model()
	next := m.models[0]
	for i, model := range m.models {
		if model == current {
			next = m.models[(i+1)%len(m.models)]
			break
		}
	}
	m.conv.SetModel(next)
}

// sync pulls the latest snapshot after a local intent
func (m *Model) sync() {
	m.snap = m.conv.State()
	m.refresh()
}

func (m *Model) resize() {
	chatWidth := m.width - sidebarWidth - 2
	if chatWidth < 20 {
		chatWidth = 20
	}
	chatHeight := m.height - 4
	if chatHeight < 3 {
		chatHeight = 3
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = chatHeight
	m.input.Width = chatWidth - 4
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderMessages(m.snap.Displayed, m.viewport.Width))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) View() string {
	header := headerStyle.Render(fmt.Sprintf("%s · %s", m.title(), m.conv.Model()))
	status := ""
	switch {
	case !m.snap.Ready:
		status = m.spinner.View() + " connecting..."
	case m.snap.Loading:
		status = m.spinner.View() + " thinking..."
	}

	chatPane := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		m.input.View()+" "+status,
		hintStyle.Render("enter send · ctrl+n new · tab switch · ctrl+r rename · ctrl+x delete · ctrl+t model · ctrl+c quit"),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, renderSidebar(m.snap), chatPane)
}

func (m Model) title() string {
	if m.snap.Displayed == nil {
		return "No chat selected"
	}
	return m.snap.Displayed.Title
}

func renderSidebar(snap reconcile.Snapshot) string {
	var b strings.Builder
	for _, s := range snap.Sessions {
		line := truncate(s.Title, sidebarWidth-4)
		if snap.Displayed != nil && snap.Displayed.ID == s.ID {
			b.WriteString(selectedSessionStyle.Render("> " + line))
		} else {
			b.WriteString(sessionStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return sidebarStyle.Render(b.String())
}

func renderMessages(s *chat.Session, width int) string {
	if s == nil {
		return hintStyle.Render("Press ctrl+n to start a new chat.")
	}
	if len(s.Messages) == 0 {
		return hintStyle.Render("Ask anything.")
	}

	wrap := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	for _, msg := range s.Messages {
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(userStyle.Render("You"))
		default:
			b.WriteString(assistantStyle.Render("Assistant"))
		}
		b.WriteString("\n")

		content := msg.Content
		switch {
		case content == chat.ErrorMarker || content == chat.CanceledMarker:
			b.WriteString(errorStyle.Render(content))
		case content == "" && msg.Role == chat.RoleAssistant:
			b.WriteString(hintStyle.Render("..."))
		default:
			b.WriteString(wrap.Render(content))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

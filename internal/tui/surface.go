package tui

import (
	"advisor-cli/internal/chat"

	tea "github.com/charmbracelet/bubbletea"
)

// ─── Messages sent from the session goroutine to Bubble Tea ─────────────────

type appendMsg struct {
	role chat.Role
	body string
}

type typingMsg struct {
	show bool
}

type streamInsertMsg struct {
	id string
}

type streamUpdateMsg struct {
	id   string
	body string
}

type streamFinalizeMsg struct {
	id   string
	body string
}

type alertMsg struct {
	text string
}

type resetMsg struct {
	body string
}

// sessionDoneMsg signals the session call returned; input unlocks.
type sessionDoneMsg struct{}

// ─── Channel-backed surface ─────────────────────────────────────────────────
//
// Session calls run on their own goroutine and talk to a Surface; this
// implementation converts every call into a tea.Msg on a channel. The
// model's Update reads one message at a time via waitForSurface and
// re-arms the read after each one, so output stays ordered.

type programSurface struct {
	ch      chan tea.Msg
	confirm bool
}

var _ chat.Surface = (*programSurface)(nil)

func newProgramSurface() *programSurface {
	return &programSurface{ch: make(chan tea.Msg, 64)}
}

func (s *programSurface) AppendMessage(m chat.Message, body string) {
	s.ch <- appendMsg{role: m.Role, body: body}
}

func (s *programSurface) ShowTyping() { s.ch <- typingMsg{show: true} }
func (s *programSurface) HideTyping() { s.ch <- typingMsg{show: false} }

func (s *programSurface) InsertStreaming(m chat.Message) {
	s.ch <- streamInsertMsg{id: m.ID}
}

func (s *programSurface) UpdateStreaming(id, body string) {
	s.ch <- streamUpdateMsg{id: id, body: body}
}

func (s *programSurface) FinalizeStreaming(id, body string) {
	s.ch <- streamFinalizeMsg{id: id, body: body}
}

// ScrollToBottom is a no-op: inline mode always appends at the bottom.
func (s *programSurface) ScrollToBottom() {}

// Confirm is pre-answered by the model before the session call starts;
// the interactive question happens in the input loop, not here.
func (s *programSurface) Confirm(prompt string) bool { return s.confirm }

func (s *programSurface) Alert(text string) {
	s.ch <- alertMsg{text: text}
}

func (s *programSurface) Reset(welcome chat.Message, body string) {
	s.ch <- resetMsg{body: body}
}

// run executes a session call on its own goroutine and posts
// sessionDoneMsg when it returns. The channel stays open for the
// lifetime of the program.
func (s *programSurface) run(fn func()) {
	go func() {
		fn()
		s.ch <- sessionDoneMsg{}
	}()
}

// waitForSurface reads the next surface message from the channel.
func waitForSurface(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

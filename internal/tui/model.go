package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"advisor-cli/internal/api"
	"advisor-cli/internal/chat"
	"advisor-cli/internal/config"
	"advisor-cli/internal/export"
	"advisor-cli/internal/markdown"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ─── App mode ───────────────────────────────────────────────────────────────

type appMode int

const (
	modeIdle appMode = iota
	modeBusy
	modeConfirmClear
)

const inputPlaceholder = "Ask anything or type /help..."

// ─── Slash command registry ─────────────────────────────────────────────────

type slashCmd struct {
	name string
	desc string
}

var slashCommands = []slashCmd{
	{"/clear", "Clear the conversation history"},
	{"/config", "Show current configuration"},
	{"/export", "Export the transcript as HTML"},
	{"/help", "Show all commands"},
	{"/history", "Replay the stored conversation"},
	{"/quit", "Exit Advisor"},
}

// ─── Model ──────────────────────────────────────────────────────────────────

type model struct {
	width  int
	height int

	// Bubble Tea components
	input   textinput.Model
	spinner spinner.Model

	// App state
	mode    appMode
	cfg     *config.Config
	session *chat.Session
	surface *programSurface
	term    *markdown.Term
	version string
	profile string

	// Streaming state: the raw accumulated text of the in-progress
	// assistant message, shown below the spinner until finalize.
	streamTail string
	typing     bool

	// UI state
	ready        bool
	cmdMenuIdx   int
	cmdMenuOpen  bool
	lastInputVal string

	// Input history
	history      []string
	historyIdx   int
	historySaved string
}

func initialModel(version, profile string) model {
	ti := textinput.New()
	ti.Placeholder = inputPlaceholder
	ti.Focus()
	ti.CharLimit = 4096
	ti.Prompt = "❯ "
	ti.PromptStyle = promptSymbol
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(colorAccent)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	cfg, _ := config.Load(profile)

	surface := newProgramSurface()
	term := markdown.NewTerm(80)

	var session *chat.Session
	if cfg != nil && cfg.Server != "" {
		client := api.NewClient(cfg)
		session = chat.NewSession(client, surface, term, chat.Options{Detection: cfg.Detection()}, nil)
	}

	return model{
		input:      ti,
		spinner:    sp,
		version:    version,
		profile:    profile,
		cfg:        cfg,
		session:    session,
		surface:    surface,
		term:       term,
		mode:       modeIdle,
		historyIdx: -1,
	}
}

// ─── Init ───────────────────────────────────────────────────────────────────

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForSurface(m.surface.ch),
	)
}

// ─── Update ─────────────────────────────────────────────────────────────────

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = m.width - 6
		m.term.SetWidth(min(m.width-4, 100))

		if !m.ready {
			m.ready = true
			welcome := renderWelcome(m.version, serverStr(m.cfg), config.ProfileName(m.profile))
			cmds = append(cmds, tea.Println(welcome))
			// Replay stored history on startup when a server is configured.
			if m.session != nil {
				m.mode = modeBusy
				session, surface := m.session, m.surface
				m.surface.run(func() {
					if err := session.LoadHistory(context.Background()); err != nil {
						surface.Alert(fmt.Sprintf("Could not load history: %v", err))
					}
				})
			}
		}

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.mode == modeBusy {
				return m.cancelActive()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.mode == modeBusy {
				return m.cancelActive()
			}
			if m.mode == modeConfirmClear {
				m.mode = modeIdle
				m.input.Placeholder = inputPlaceholder
				m.input.SetValue("")
				return m, tea.Println(warnMsgStyle.Render("  ! Clear cancelled."))
			}
			if m.cmdMenuOpen {
				m.cmdMenuOpen = false
				m.cmdMenuIdx = 0
				return m, nil
			}

		case tea.KeyUp:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx--
						if m.cmdMenuIdx < 0 {
							m.cmdMenuIdx = len(matches) - 1
						}
						return m, nil
					}
				} else if len(m.history) > 0 {
					if m.historyIdx == -1 {
						m.historySaved = m.input.Value()
						m.historyIdx = len(m.history) - 1
					} else if m.historyIdx > 0 {
						m.historyIdx--
					}
					m.input.SetValue(m.history[m.historyIdx])
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyDown:
			if m.mode == modeIdle {
				if m.cmdMenuOpen {
					matches := matchCommands(m.input.Value())
					if len(matches) > 0 {
						m.cmdMenuIdx++
						if m.cmdMenuIdx >= len(matches) {
							m.cmdMenuIdx = 0
						}
						return m, nil
					}
				} else if m.historyIdx != -1 {
					m.historyIdx++
					if m.historyIdx >= len(m.history) {
						m.historyIdx = -1
						m.input.SetValue(m.historySaved)
						m.historySaved = ""
					} else {
						m.input.SetValue(m.history[m.historyIdx])
					}
					m.input.CursorEnd()
					return m, nil
				}
			}

		case tea.KeyTab:
			if m.mode == modeIdle && m.cmdMenuOpen {
				matches := matchCommands(m.input.Value())
				if len(matches) > 0 {
					idx := m.cmdMenuIdx
					if idx < 0 || idx >= len(matches) {
						idx = 0
					}
					m.input.SetValue(matches[idx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
				}
				return m, nil
			}

		case tea.KeyEnter:
			if m.mode == modeIdle && m.cmdMenuOpen && m.cmdMenuIdx >= 0 {
				matches := matchCommands(m.input.Value())
				if m.cmdMenuIdx < len(matches) {
					m.input.SetValue(matches[m.cmdMenuIdx].name + " ")
					m.input.CursorEnd()
					m.cmdMenuOpen = false
					m.cmdMenuIdx = 0
					return m, nil
				}
			}

			value := strings.TrimSpace(m.input.Value())

			if m.mode == modeConfirmClear {
				m.input.SetValue("")
				m.input.Placeholder = inputPlaceholder
				return m.handleClearConfirm(value)
			}

			if value == "" {
				return m, nil
			}

			if len(m.history) == 0 || m.history[len(m.history)-1] != value {
				m.history = append(m.history, value)
				if len(m.history) > 1000 {
					m.history = m.history[len(m.history)-1000:]
				}
			}
			m.historyIdx = -1
			m.historySaved = ""

			m.input.SetValue("")
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0

			return m.dispatchInput(value)
		}

	// ── Surface messages ──────────────────────────────────────────────
	case appendMsg:
		cmds = append(cmds, tea.Println(renderAppend(msg.role, msg.body)), m.rearm())
		return m, tea.Batch(cmds...)

	case typingMsg:
		m.typing = msg.show
		return m, m.rearm()

	case streamInsertMsg:
		return m, m.rearm()

	case streamUpdateMsg:
		m.streamTail = msg.body
		return m, m.rearm()

	case streamFinalizeMsg:
		m.streamTail = ""
		cmds = append(cmds, tea.Println(renderAppend(chat.RoleAssistant, msg.body)), m.rearm())
		return m, tea.Batch(cmds...)

	case alertMsg:
		cmds = append(cmds, tea.Println(warnMsgStyle.Render("  ! "+msg.text)), m.rearm())
		return m, tea.Batch(cmds...)

	case resetMsg:
		cmds = append(cmds,
			tea.Println(successMsgStyle.Render("  ✓ History cleared")),
			tea.Println(renderAppend(chat.RoleAssistant, msg.body)),
			m.rearm(),
		)
		return m, tea.Batch(cmds...)

	case sessionDoneMsg:
		m.mode = modeIdle
		m.streamTail = ""
		m.typing = false
		return m, m.rearm()
	}

	// Update sub-components
	var cmd tea.Cmd

	if m.mode != modeBusy {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)

	// Track input changes to open/close the command menu
	newVal := m.input.Value()
	if newVal != m.lastInputVal {
		m.lastInputVal = newVal
		if m.historyIdx != -1 {
			if m.historyIdx < len(m.history) && m.history[m.historyIdx] != newVal {
				m.historyIdx = -1
				m.historySaved = ""
			}
		}
		if strings.HasPrefix(newVal, "/") && m.mode == modeIdle {
			m.cmdMenuOpen = true
			m.cmdMenuIdx = 0
		} else {
			m.cmdMenuOpen = false
			m.cmdMenuIdx = 0
		}
	}

	return m, tea.Batch(cmds...)
}

func (m model) rearm() tea.Cmd {
	return waitForSurface(m.surface.ch)
}

func (m model) cancelActive() (tea.Model, tea.Cmd) {
	if m.session != nil {
		m.session.Cancel()
	}
	m.mode = modeIdle
	m.streamTail = ""
	m.typing = false
	return m, tea.Println(warnMsgStyle.Render("  ! Cancelled."))
}

// ─── Input dispatch ─────────────────────────────────────────────────────────

func (m model) dispatchInput(input string) (tea.Model, tea.Cmd) {
	if input == "?" {
		return m.cmdHelp()
	}
	if strings.HasPrefix(input, "/") {
		return m.dispatchCommand(input)
	}
	return m.cmdSend(input)
}

func (m model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help", "/h":
		return m.cmdHelp()
	case "/config":
		return m.cmdConfig()
	case "/clear":
		return m.cmdClear()
	case "/export":
		return m.cmdExport(args)
	case "/history":
		return m.cmdHistory()
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	default:
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Unknown command: %s — type /help", cmd)))
	}
}

func (m model) cmdSend(text string) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, m.notConfigured()
	}
	m.mode = modeBusy
	session := m.session
	m.surface.run(func() {
		session.Send(context.Background(), text)
	})
	return m, nil
}

func (m model) cmdHelp() (tea.Model, tea.Cmd) {
	pad := func(s string, w int) string {
		for len(s) < w {
			s += " "
		}
		return s
	}

	lines := []tea.Cmd{
		tea.Println(""),
		tea.Println(dimStyle.Render("  Shortcuts:")),
		tea.Println(""),
		tea.Println("  " + pad(hintKeyStyle.Render("/history"), 28) + dimStyle.Render("Replay the stored conversation")),
		tea.Println("  " + pad(hintKeyStyle.Render("/clear"), 28) + dimStyle.Render("Clear the conversation history")),
		tea.Println("  " + pad(hintKeyStyle.Render("/export [file]"), 28) + dimStyle.Render("Export the transcript as HTML")),
		tea.Println("  " + pad(hintKeyStyle.Render("/config"), 28) + dimStyle.Render("Show current configuration")),
		tea.Println("  " + pad(hintKeyStyle.Render("/quit"), 28) + dimStyle.Render("Exit Advisor")),
		tea.Println(""),
		tea.Println(dimStyle.Render("  Or just type a question to ask the advisor!")),
		tea.Println(""),
	}
	return m, tea.Sequence(lines...)
}

func (m model) cmdConfig() (tea.Model, tea.Cmd) {
	if m.cfg == nil {
		return m, m.notConfigured()
	}
	user := m.cfg.Username
	if user == "" {
		user = "(not set)"
	}
	auth := "no"
	if m.cfg.Authenticated() {
		auth = "yes"
	}
	lines := []tea.Cmd{
		tea.Println(""),
		tea.Println(dimStyle.Render("  Profile:    ") + config.ProfileName(m.profile)),
		tea.Println(dimStyle.Render("  Server:     ") + serverStr(m.cfg)),
		tea.Println(dimStyle.Render("  User:       ") + user),
		tea.Println(dimStyle.Render("  Logged in:  ") + auth),
		tea.Println(dimStyle.Render("  Detection:  ") + m.cfg.Detection()),
		tea.Println(""),
	}
	return m, tea.Sequence(lines...)
}

func (m model) cmdClear() (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, m.notConfigured()
	}
	m.mode = modeConfirmClear
	m.input.Placeholder = "y/N..."
	return m, tea.Println(warnMsgStyle.Render("  " + chat.ConfirmClearText + " (y/N)"))
}

func (m model) handleClearConfirm(value string) (tea.Model, tea.Cmd) {
	m.mode = modeIdle
	answer := strings.ToLower(value)
	if answer != "y" && answer != "yes" {
		return m, tea.Println(warnMsgStyle.Render("  ! Clear cancelled."))
	}

	m.mode = modeBusy
	m.surface.confirm = true
	session := m.session
	m.surface.run(func() {
		session.ClearHistory(context.Background())
	})
	return m, nil
}

func (m model) cmdExport(args []string) (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, m.notConfigured()
	}
	path := "advisor-transcript.html"
	if len(args) > 0 {
		path = args[0]
	}

	transcript := m.session.Transcript()
	if len(transcript) == 0 {
		return m, tea.Println(warnMsgStyle.Render("  ! Nothing to export yet."))
	}

	f, err := os.Create(path)
	if err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Export failed: %v", err)))
	}
	defer f.Close()

	if err := export.NewExporter().WriteTranscript(f, "Advisor Session", transcript); err != nil {
		return m, tea.Println(errorMsgStyle.Render(fmt.Sprintf("  ✗ Export failed: %v", err)))
	}
	return m, tea.Println(successMsgStyle.Render("  ✓ Transcript written to " + path))
}

func (m model) cmdHistory() (tea.Model, tea.Cmd) {
	if m.session == nil {
		return m, m.notConfigured()
	}
	m.mode = modeBusy
	session, surface := m.session, m.surface
	m.surface.run(func() {
		if err := session.LoadHistory(context.Background()); err != nil {
			surface.Alert(fmt.Sprintf("Could not load history: %v", err))
		}
	})
	return m, nil
}

func (m model) notConfigured() tea.Cmd {
	return tea.Sequence(
		tea.Println(errorMsgStyle.Render("  ✗ No server configured.")),
		tea.Println(dimStyle.Render("  Run: advisor login <url> -u <user> -p <pass>")),
	)
}

// ─── View ───────────────────────────────────────────────────────────────────
//
// Inline mode: View() shows the input prompt (or the in-progress
// response tail) plus hints. Completed output is printed above via
// tea.Println.

func (m model) View() string {
	if !m.ready {
		return ""
	}

	var s strings.Builder

	switch m.mode {
	case modeBusy:
		if m.streamTail != "" {
			s.WriteString(streamTailStyle.Render(tailLines(m.streamTail, 8)))
			s.WriteString("\n")
		}
		status := "Responding..."
		if m.typing {
			status = "Thinking..."
		}
		s.WriteString(m.spinner.View() + " " + statusStyle.Render(status))
	default:
		s.WriteString(m.input.View())
	}
	s.WriteString("\n")

	sepWidth := min(m.width, 80)
	if sepWidth < 20 {
		sepWidth = 20
	}
	s.WriteString(separatorStyle.Render(strings.Repeat("─", sepWidth)))
	s.WriteString("\n")

	s.WriteString(m.renderHints())

	return s.String()
}

func (m model) renderHints() string {
	if m.mode == modeBusy {
		return hintBarStyle.Render("  Esc cancel")
	}
	if m.mode == modeConfirmClear {
		return hintBarStyle.Render("  Enter confirm   Esc cancel")
	}

	if m.cmdMenuOpen {
		matches := matchCommands(m.input.Value())
		if len(matches) > 0 {
			return m.renderCommandMenu(matches)
		}
	}

	return hintBarStyle.Render("  ? for help")
}

func (m model) renderCommandMenu(matches []slashCmd) string {
	maxLen := 0
	for _, c := range matches {
		if len(c.name) > maxLen {
			maxLen = len(c.name)
		}
	}

	var lines []string
	for i, c := range matches {
		padded := c.name
		for len(padded) < maxLen {
			padded += " "
		}

		var line string
		if i == m.cmdMenuIdx {
			line = "  " + cmdSelectedNameStyle.Render(padded) + "  " + cmdSelectedDescStyle.Render(c.desc)
		} else {
			line = "  " + cmdNameStyle.Render(padded) + "  " + cmdDescStyle.Render(c.desc)
		}
		lines = append(lines, line)
	}

	lines = append(lines, hintBarStyle.Render("  ↑↓ navigate  Tab/Enter select"))

	return strings.Join(lines, "\n")
}

// matchCommands returns all slash commands matching a prefix.
func matchCommands(prefix string) []slashCmd {
	prefix = strings.ToLower(prefix)
	if prefix == "/" {
		return slashCommands
	}
	var matches []slashCmd
	for _, c := range slashCommands {
		if strings.HasPrefix(c.name, prefix) {
			matches = append(matches, c)
		}
	}
	return matches
}

// ─── Rendering helpers ──────────────────────────────────────────────────────

func renderWelcome(version, server, profile string) string {
	titleLine := titleStyle.Render("Advisor CLI") + " " + versionStyle.Render("v"+version)

	var infoLine string
	if server == "" {
		infoLine = welcomeHintStyle.Render("Run advisor login <url> to get started")
	} else {
		serverDisplay := server
		if len(serverDisplay) > 48 {
			serverDisplay = serverDisplay[:45] + "..."
		}
		infoLine = welcomeInfoLabel.Render(fmt.Sprintf("%s · %s", serverDisplay, profile))
	}

	return fmt.Sprintf("\n%s\n%s\n", titleLine, infoLine)
}

func renderAppend(role chat.Role, body string) string {
	switch role {
	case chat.RoleUser:
		return "\n" + userPromptStyle.Render("❯ ") + body
	case chat.RoleAssistant:
		return "\n" + assistantLabelStyle.Render("● Advisor") + "\n" + indentText(body, "  ")
	default:
		return "\n" + dimStyle.Render(body)
	}
}

// tailLines keeps the last n lines of a block of text.
func tailLines(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func indentText(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

func serverStr(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.Server
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

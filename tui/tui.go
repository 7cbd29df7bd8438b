// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Shows the login button, connection list and logout control for one session
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/peoplelogin/flow"
)

// Session is the part of flow.Controller the TUI drives.
type Session interface {
	CheckAuth(ctx context.Context) error
	ManualLogin(ctx context.Context) error
	ListConnections(ctx context.Context) error
	Logout(ctx context.Context) error
	Hover(over bool) error
}

// opDoneMsg is sent when a controller operation returns.
type opDoneMsg struct {
	op  string
	err error
}

// Model is the main bubbletea model
type Model struct {
	ctx     context.Context
	session Session
	screen  *Screen
	spinner spinner.Model

	running string
	hovered bool
	err     error

	width  int
	height int
}

// NewModel creates a new TUI model. The session must render into screen.
func NewModel(ctx context.Context, session Session, screen *Screen) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = busyStyle

	return Model{
		ctx:     ctx,
		session: session,
		screen:  screen,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Init checks for an existing grant as soon as the program starts.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run("check", m.session.CheckAuth))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case opDoneMsg:
		m.running = ""
		m.err = msg.err
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	flags := m.screen.Snapshot().Flags

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "enter", "l":
		if flags.LoginPrompt && !flags.Busy && m.running == "" {
			m.running = "login"
			m.hovered = false
			return m, m.run("login", m.session.ManualLogin)
		}
	case "r":
		if flags.State == flow.StateIdle && m.running == "" {
			m.running = "list"
			return m, m.run("list", m.session.ListConnections)
		}
	case "o":
		if flags.LogoutButton {
			m.running = "logout"
			return m, m.run("logout", m.session.Logout)
		}
	case "tab", "left", "right":
		if flags.LoginPrompt {
			m.hovered = !m.hovered
			m.err = m.session.Hover(m.hovered)
		}
	}

	return m, nil
}

func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) View() string {
	snap := m.screen.Snapshot()
	flags := snap.Flags

	var s strings.Builder
	s.WriteString(titleStyle.Render("Google Contacts"))
	s.WriteString("\n")

	if flags.LoginPrompt {
		s.WriteString(loginButton(flags.Button))
		s.WriteString("\n")
	}

	if flags.Busy {
		s.WriteString(m.spinner.View())
		s.WriteString(busyStyle.Render(" Working..."))
		s.WriteString("\n")
	}

	if snap.Notice != "" {
		s.WriteString(noticeStyle.Render(snap.Notice))
		s.WriteString("\n")
	}

	if flags.Authenticated {
		for _, line := range snap.Lines {
			s.WriteString(outputStyle.Render(line))
			s.WriteString("\n")
		}
	}

	if flags.LogoutButton {
		s.WriteString(logoutStyle.Render("[o] Log out"))
		s.WriteString("\n")
	}

	if flags.LoggedOutNotice {
		s.WriteString(noticeStyle.Render("You have been logged out."))
		s.WriteString("\n")
	}

	for _, alert := range snap.Alerts {
		s.WriteString(alertStyle.Render(alert))
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString(alertStyle.Render(m.err.Error()))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render(helpText(flags)))
	return s.String()
}

func helpText(flags flow.ViewFlags) string {
	keys := []string{}
	if flags.LoginPrompt {
		keys = append(keys, "enter: sign in", "tab: focus")
	}
	if flags.State == flow.StateIdle {
		keys = append(keys, "r: refresh")
	}
	if flags.LogoutButton {
		keys = append(keys, "o: log out")
	}
	keys = append(keys, "q: quit")
	return strings.Join(keys, " • ")
}

// loginButton draws the sign-in button with the colours of state b.
func loginButton(b flow.ButtonState) string {
	p := b.Palette()

	box := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color(p.Box)).
		Padding(0, 2).
		Render("Sign in with Google")

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderTopForeground(lipgloss.Color(p.BorderTop)).
		BorderLeftForeground(lipgloss.Color(p.BorderTop)).
		BorderRightForeground(lipgloss.Color(p.BorderBottom)).
		BorderBottomForeground(lipgloss.Color(p.BorderBottom)).
		Render(box)
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	outputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	busyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	logoutStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginTop(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	alertStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)

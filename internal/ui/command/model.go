package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskgraph/internal/theme"
)

// Palette commands understood by the app.
const (
	CmdRepair     = "repair"
	CmdReload     = "reload"
	CmdCompleted  = "completed"
	CmdActionable = "actionable"
	CmdExpandAll  = "expand"
	CmdUnlock     = "unlock"
	CmdClearDate  = "clear-unlock"
	CmdType       = "type"
	CmdBlock      = "block"
	CmdUnblock    = "unblock"
	CmdSettings   = "settings"
	CmdQuit       = "quit"
)

var suggestions = []string{
	CmdRepair, CmdReload, CmdCompleted, CmdActionable, CmdExpandAll,
	CmdUnlock + " ", CmdClearDate, CmdType + " ", CmdBlock + " ",
	CmdUnblock + " ", CmdSettings, CmdQuit,
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg struct {
	Name string
	Args []string
}

// Parse splits a palette line into a command name and arguments.
// Everything after the name is passed as a single argument so titles
// with spaces survive.
func Parse(line string) CommandMsg {
	line = strings.TrimSpace(line)
	name, rest, _ := strings.Cut(line, " ")
	msg := CommandMsg{Name: strings.ToLower(name)}
	if rest = strings.TrimSpace(rest); rest != "" {
		msg.Args = []string{rest}
	}
	return msg
}

// Arg returns the command's argument, or "".
func (c CommandMsg) Arg() string {
	if len(c.Args) == 0 {
		return ""
	}
	return c.Args[0]
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "repair, unlock 2026-06-01, type mission, block <title>..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(suggestions)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Reset clears the input and focuses it.
func (m *Model) Reset() tea.Cmd {
	m.input.Reset()
	return m.input.Focus()
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "enter" {
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if line == "" {
			return m, nil
		}
		return m, func() tea.Msg {
			return Parse(line)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Command Palette"),
		m.input.View(),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

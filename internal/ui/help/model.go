package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskgraph/internal/keys"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// View renders the help overlay with the key bindings and a legend of
// the type and status badges used in the tree.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("Legend"),
		legend(),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func legend() string {
	var b strings.Builder
	for _, t := range model.ValidItemTypes() {
		b.WriteString(theme.TypeStyle(t).Render(theme.TypeBadge(t)))
		b.WriteString(" " + t.Label() + "\n")
	}
	b.WriteString(theme.BlockedBadgeStyle.Render(" ⊘ ") + " blocked\n")
	b.WriteString(theme.UnlockDateStyle.Render(" ⏲ ") + " waiting for unlock date")
	return b.String()
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

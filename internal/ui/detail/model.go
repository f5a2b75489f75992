package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/keys"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/theme"
)

// BackMsg signals the parent to navigate back to the tree view.
type BackMsg struct{}

// Model is the item detail view component.
type Model struct {
	itemID    string
	found     bool
	viewport  viewport.Model
	keys      *keys.KeyMap
	themeName string
	width     int
	height    int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, themeName string, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport:  vp,
		keys:      keys,
		themeName: themeName,
		width:     width,
		height:    height,
	}
}

// ItemID returns the id of the displayed item.
func (m Model) ItemID() string {
	return m.itemID
}

// Show displays id from snap and scrolls to the top.
func (m *Model) Show(snap *graph.Snapshot, r graph.Resolver, id string) {
	m.itemID = id
	m.Refresh(snap, r)
	m.viewport.GotoTop()
}

// Refresh re-renders the displayed item from snap, keeping the scroll
// position.
func (m *Model) Refresh(snap *graph.Snapshot, r graph.Resolver) {
	it, ok := snap.Item(m.itemID)
	m.found = ok
	if !ok {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(Render(snap, r, it, m.themeName, m.width))
}

// SetTheme switches the markdown style used for descriptions.
func (m *Model) SetTheme(name string, snap *graph.Snapshot, r graph.Resolver) {
	m.themeName = name
	m.Refresh(snap, r)
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg {
			return BackMsg{}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if !m.found {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("Item no longer exists")
	}

	return m.viewport.View()
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}

// Render builds the full detail content for it.
func Render(snap *graph.Snapshot, r graph.Resolver, it model.Item, themeName string, width int) string {
	var sections []string

	// Breadcrumb
	if anc := snap.AncestorsOf(it.ID); len(anc) > 0 {
		titles := make([]string, len(anc))
		for i, a := range anc {
			titles[i] = a.Title
		}
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render(strings.Join(titles, " › ")))
	}

	// Title
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(it.Title))

	// Badges line: type + status
	typ := graph.EffectiveType(snap, it)
	typeLabel := typ.Label()
	if it.ManualType {
		typeLabel += " (pinned)"
	}
	typeBadge := theme.TypeStyle(typ).Render(typeLabel)

	rep := r.Report(snap, it.ID)
	var statusBadge string
	switch {
	case it.Completed:
		statusBadge = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen).Render("done")
	case rep.Blocked:
		statusBadge = theme.BlockedBadgeStyle.Render("blocked")
	default:
		statusBadge = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render("open")
	}
	sections = append(sections,
		lipgloss.JoinHorizontal(lipgloss.Top, typeBadge, "  ", statusBadge),
		"",
	)

	// Metadata table
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%-11s %s",
			metaStyle.Render(label), valStyle.Render(value)))
	}
	if !it.CreatedAt.IsZero() {
		meta("Created:", it.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if !it.UpdatedAt.IsZero() {
		meta("Updated:", it.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if it.CompletedAt != nil {
		meta("Completed:", it.CompletedAt.Local().Format("2006-01-02 15:04"))
	}
	if gate, ok := snap.DateGateOf(it.ID); ok {
		meta("Unlocks:", gate.UnblockAt.Local().Format("2006-01-02 15:04"))
	}

	// Separator
	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(width-4, 80), 0)))
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	if lines := ReportLines(snap, rep); len(lines) > 0 {
		sections = append(sections, "", separator, "", headerStyle.Render("Blocked because"))
		for _, l := range lines {
			sections = append(sections, "  • "+l)
		}
	}

	if dependents := snap.BlockedBy(it.ID); len(dependents) > 0 {
		sections = append(sections, "", headerStyle.Render(fmt.Sprintf("Blocks (%d)", len(dependents))))
		for _, d := range dependents {
			if b, ok := snap.Item(d.BlockedTaskID); ok {
				sections = append(sections, "  • "+b.Title)
			}
		}
	}

	// Description
	sections = append(sections, "", separator, "", headerStyle.Render("Description"))
	body := renderMarkdown(it.Description, themeName, width-4)
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	return lipgloss.NewStyle().Padding(0, 2).Render(strings.Join(sections, "\n"))
}

// ReportLines explains a block report in plain sentences.
func ReportLines(snap *graph.Snapshot, rep graph.BlockReport) []string {
	var lines []string
	if rep.DateGate != nil {
		lines = append(lines, "locked until "+rep.DateGate.UnblockAt.Local().Format(time.RFC1123))
	}
	for _, id := range rep.Blockers {
		title := id
		if b, ok := snap.Item(id); ok {
			title = b.Title
		}
		lines = append(lines, fmt.Sprintf("waiting on %q", title))
	}
	if rep.ChildrenBlocked {
		lines = append(lines, "every child is blocked")
	}
	return lines
}

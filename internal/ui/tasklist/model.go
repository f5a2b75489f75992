package tasklist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/keys"
	"github.com/nhle/taskgraph/internal/theme"
)

// SelectedItemMsg is sent when the user opens an item's detail.
type SelectedItemMsg struct {
	ItemID string
}

// Model is the tree view component.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	opts        Options
	snap        *graph.Snapshot
	resolver    graph.Resolver
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new tree view model.
func New(k *keys.KeyMap, showCompleted bool, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle
	l.SetStatusBarItemName("item", "items")

	// Paging and quitting are handled by the app.
	l.KeyMap.NextPage.SetKeys("pgdown", "right")
	l.KeyMap.PrevPage.SetKeys("pgup", "left")
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ShowFullHelp.SetEnabled(false)

	si := textinput.New()
	si.Placeholder = "search titles..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list: l,
		keys: k,
		opts: Options{
			ShowCompleted: showCompleted,
			Collapsed:     make(map[string]bool),
		},
		snap:        graph.Empty(),
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// SetSnapshot rebuilds the rows from snap, keeping the selection on the
// same item when it is still shown.
func (m *Model) SetSnapshot(snap *graph.Snapshot, r graph.Resolver) tea.Cmd {
	m.snap = snap
	m.resolver = r
	return m.rebuild()
}

func (m *Model) rebuild() tea.Cmd {
	selected, _ := m.Selected()

	rows := BuildRows(m.snap, m.resolver, m.opts)
	items := make([]list.Item, len(rows))
	for i, row := range rows {
		items[i] = row
	}
	cmd := m.list.SetItems(items)

	if selected.Item.ID != "" {
		m.Select(selected.Item.ID)
	}
	return cmd
}

// Selected returns the focused row.
func (m Model) Selected() (Row, bool) {
	row, ok := m.list.SelectedItem().(Row)
	return row, ok
}

// Select moves the cursor to the row for id. It reports whether the row
// is shown.
func (m *Model) Select(id string) bool {
	for i, it := range m.list.Items() {
		if row, ok := it.(Row); ok && row.Item.ID == id {
			m.list.Select(i)
			return true
		}
	}
	return false
}

// Options returns the current view options.
func (m Model) Options() Options {
	return m.opts
}

// ToggleCompleted shows or hides completed items.
func (m *Model) ToggleCompleted() tea.Cmd {
	m.opts.ShowCompleted = !m.opts.ShowCompleted
	return m.rebuild()
}

// SetShowCompleted shows or hides completed items.
func (m *Model) SetShowCompleted(show bool) tea.Cmd {
	m.opts.ShowCompleted = show
	return m.rebuild()
}

// ToggleActionable restricts the view to actionable leaves.
func (m *Model) ToggleActionable() tea.Cmd {
	m.opts.ActionableOnly = !m.opts.ActionableOnly
	return m.rebuild()
}

// ExpandAll unfolds every collapsed item.
func (m *Model) ExpandAll() tea.Cmd {
	m.opts.Collapsed = make(map[string]bool)
	return m.rebuild()
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Update handles messages for the tree view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.opts.Query = m.searchInput.Value()
		return m, m.rebuild()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.opts.Query = ""
		return m, m.rebuild()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		row, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedItemMsg{ItemID: row.Item.ID}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.opts.Query)
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Fold):
		row, ok := m.Selected()
		if !ok || !row.HasChildren {
			return m, nil
		}
		if m.opts.Collapsed[row.Item.ID] {
			delete(m.opts.Collapsed, row.Item.ID)
		} else {
			m.opts.Collapsed[row.Item.ID] = true
		}
		return m, m.rebuild()

	case key.Matches(msg, m.keys.ShowCompleted):
		return m, m.ToggleCompleted()

	case key.Matches(msg, m.keys.ActionableOnly):
		return m, m.ToggleActionable()
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the tree view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when nothing is shown.
func (m Model) renderEmptyState() string {
	hasFilters := m.opts.Query != "" || m.opts.ActionableOnly ||
		(!m.opts.ShowCompleted && m.snap.Len() > 0)

	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if hasFilters {
		return style.Render("No matching items.\nTry adjusting your filters.")
	}

	return style.Render(
		"No items yet.\n\n" +
			"Press n to add one.",
	)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}

package tasklist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/theme"
)

// Row is one line of the tree view.
type Row struct {
	Item  model.Item
	Depth int

	// Prefix holds the tree-drawing characters, e.g. "│  └─ ".
	Prefix string

	Type        model.ItemType
	Blocked     bool
	UnlockAt    *time.Time
	HasChildren bool
	Collapsed   bool

	// Dimmed rows are shown only because a descendant matched the filter.
	Dimmed bool
}

// FilterValue returns the string used for fuzzy filtering.
func (r Row) FilterValue() string { return r.Item.Title }

// Title returns the item title.
func (r Row) Title() string { return r.Item.Title }

// Description returns a short summary line.
func (r Row) Description() string {
	parts := []string{r.Type.Label()}
	if r.Blocked {
		parts = append(parts, "blocked")
	}
	if r.Item.Completed {
		parts = append(parts, "done")
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering tree rows.
type ItemDelegate struct{}

// Height returns the number of lines each row takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between rows.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	row, ok := item.(Row)
	if !ok {
		return
	}
	fmt.Fprint(w, renderRow(row, index == m.Index()))
}

func renderRow(row Row, isSelected bool) string {
	check := "[ ]"
	if row.Item.Completed {
		check = "[x]"
	}

	fold := ""
	if row.Collapsed {
		fold = " ▸"
	}

	badge := theme.TypeStyle(row.Type).Render(theme.TypeBadge(row.Type))

	title := row.Item.Title
	if row.Item.Completed || row.Dimmed {
		title = theme.DimmedStyle.Render(title)
	}

	status := ""
	if row.Blocked {
		status += theme.BlockedBadgeStyle.Render(" ⊘")
	}
	if row.UnlockAt != nil && row.UnlockAt.After(time.Now()) {
		status += theme.UnlockDateStyle.Render(" ⏲ " + row.UnlockAt.Local().Format("Jan 02 15:04"))
	}

	line := fmt.Sprintf("%s%s %s %s%s%s",
		theme.TreeGuideStyle.Render(row.Prefix), check, badge, title, status, fold)

	if isSelected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

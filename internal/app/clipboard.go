package app

import (
	"fmt"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskgraph/internal/importer"
)

// clipboardResultMsg is sent after a subtree has been copied.
type clipboardResultMsg struct {
	count int
	err   error
}

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// copySubtree copies the subtree rooted at id to the system clipboard in
// the YAML import format, so it can be pasted into `taskgraph import`.
func (m *Model) copySubtree(id string) tea.Cmd {
	snap := m.engine.Snapshot()
	return func() tea.Msg {
		doc, err := importer.Export(snap, &id)
		if err != nil {
			return clipboardResultMsg{err: err}
		}
		data, err := importer.Marshal(doc)
		if err != nil {
			return clipboardResultMsg{err: err}
		}
		if err := writeClipboard(string(data)); err != nil {
			return clipboardResultMsg{err: fmt.Errorf("clipboard: %w", err)}
		}
		return clipboardResultMsg{count: 1 + len(snap.DescendantsOf(id))}
	}
}

package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskgraph/internal/engine"
	"github.com/nhle/taskgraph/internal/importer"
	"github.com/nhle/taskgraph/internal/itemref"
	"github.com/nhle/taskgraph/internal/ui/command"
	"github.com/nhle/taskgraph/internal/ui/itemform"
)

// mutationResultMsg is sent after an engine mutation finishes.
type mutationResultMsg struct {
	op string

	// selectID is focused in the tree after the refresh, if set.
	selectID string

	note string
	err  error
}

// reloadResultMsg is sent after the snapshot has been reloaded from storage.
type reloadResultMsg struct{ err error }

func (m *Model) handleMutationResult(msg mutationResultMsg) tea.Cmd {
	if msg.err != nil {
		m.setError(fmt.Errorf("%s: %w", msg.op, msg.err))
		return nil
	}

	cmd := m.refreshViews()
	if msg.selectID != "" {
		m.taskList.Select(msg.selectID)
	}
	if msg.note != "" {
		m.setStatus(msg.note)
	} else {
		m.setStatus(msg.op + " ✓")
	}
	// Mutations can add or remove date gates.
	m.watcher.Refresh()
	return cmd
}

// mutate runs fn against the engine off the UI goroutine.
func (m *Model) mutate(op, selectID string, fn func(ctx context.Context, e *engine.Engine) error) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		err := fn(context.Background(), e)
		return mutationResultMsg{op: op, selectID: selectID, err: err}
	}
}

// toggleComplete flips the completion state of id.
func (m *Model) toggleComplete(id string) tea.Cmd {
	return m.mutate("toggle", id, func(ctx context.Context, e *engine.Engine) error {
		_, err := e.ToggleComplete(ctx, id)
		return err
	})
}

// deleteItem removes id, promoting its children unless cascade is set.
func (m *Model) deleteItem(id string, cascade bool) tea.Cmd {
	op := "delete"
	if cascade {
		op = "delete subtree"
	}
	return m.mutate(op, "", func(ctx context.Context, e *engine.Engine) error {
		return e.Delete(ctx, id, engine.DeleteOptions{Cascade: cascade})
	})
}

// outline applies one of the engine's outline moves to id.
func (m *Model) outline(op, id string, fn func(ctx context.Context, id string) error) tea.Cmd {
	return m.mutate(op, id, func(ctx context.Context, _ *engine.Engine) error {
		return fn(ctx, id)
	})
}

// reload replaces the snapshot with the persisted state.
func (m *Model) reload() tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		return reloadResultMsg{err: e.Populate(context.Background())}
	}
}

// startCreate opens the form for a new item under parentID.
func (m *Model) startCreate(parentID *string) tea.Cmd {
	title := ""
	if parentID != nil {
		if p, err := m.engine.Item(*parentID); err == nil {
			title = p.Title
		}
	}
	m.previousView = m.currentView
	m.currentView = ViewForm
	return m.formView.StartCreate(parentID, title)
}

// startEdit opens the form for id.
func (m *Model) startEdit(id string) tea.Cmd {
	it, err := m.engine.Item(id)
	if err != nil {
		m.setError(err)
		return nil
	}
	m.previousView = m.currentView
	m.currentView = ViewForm
	return m.formView.StartEdit(it, gateTime(m.engine, id))
}

func gateTime(e *engine.Engine, id string) *time.Time {
	if gate, ok := e.Snapshot().DateGateOf(id); ok {
		at := gate.UnblockAt
		return &at
	}
	return nil
}

// submitForm applies a completed form.
func (m *Model) submitForm(msg itemform.SubmitMsg) tea.Cmd {
	if !msg.Editing() {
		e := m.engine
		return func() tea.Msg {
			ctx := context.Background()
			it, err := e.Create(ctx, msg.Draft())
			if err != nil {
				return mutationResultMsg{op: "add", err: err}
			}
			if msg.UnlockAt != nil {
				if err := e.SetUnlockDate(ctx, it.ID, *msg.UnlockAt); err != nil {
					return mutationResultMsg{op: "unlock date", selectID: it.ID, err: err}
				}
			}
			return mutationResultMsg{op: "add", selectID: it.ID}
		}
	}

	return m.mutate("edit", msg.ID, func(ctx context.Context, e *engine.Engine) error {
		// Gate first so clearing a gate and completing in one edit works.
		_, hasGate := e.Snapshot().DateGateOf(msg.ID)
		switch {
		case msg.UnlockAt != nil:
			if err := e.SetUnlockDate(ctx, msg.ID, *msg.UnlockAt); err != nil {
				return err
			}
		case hasGate:
			if err := e.ClearUnlockDate(ctx, msg.ID); err != nil {
				return err
			}
		}
		_, err := e.Update(ctx, msg.ID, msg.Patch())
		return err
	})
}

// executeCommand handles a command from the palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Name {
	case command.CmdRepair:
		e := m.engine
		return func() tea.Msg {
			n, err := e.Repair(context.Background())
			return mutationResultMsg{op: "repair", err: err, note: fmt.Sprintf("repair rewrote %d position(s)", n)}
		}
	case command.CmdReload:
		return m.reload()
	case command.CmdCompleted:
		return m.taskList.ToggleCompleted()
	case command.CmdActionable:
		return m.taskList.ToggleActionable()
	case command.CmdExpandAll:
		return m.taskList.ExpandAll()
	case command.CmdSettings:
		m.settings.Open(*m.cfg)
		m.currentView = ViewSettings
		return nil
	case command.CmdQuit, "q":
		m.watcher.Stop()
		return tea.Quit
	}

	id, ok := m.focusedID()
	if !ok {
		m.setStatus("no item selected")
		return nil
	}

	switch c.Name {
	case command.CmdUnlock:
		at, err := importer.ParseTime(c.Arg())
		if err != nil {
			m.setError(err)
			return nil
		}
		return m.mutate("unlock date", id, func(ctx context.Context, e *engine.Engine) error {
			return e.SetUnlockDate(ctx, id, at)
		})
	case command.CmdClearDate:
		return m.mutate("clear unlock date", id, func(ctx context.Context, e *engine.Engine) error {
			return e.ClearUnlockDate(ctx, id)
		})
	case command.CmdType:
		patch, err := itemref.TypePatch(c.Arg())
		if err != nil {
			m.setError(err)
			return nil
		}
		return m.mutate("type", id, func(ctx context.Context, e *engine.Engine) error {
			_, err := e.Update(ctx, id, patch)
			return err
		})
	case command.CmdBlock, command.CmdUnblock:
		blocking, err := itemref.Resolve(m.engine.Snapshot(), c.Arg())
		if err != nil {
			m.setError(err)
			return nil
		}
		return m.mutate(c.Name, id, func(ctx context.Context, e *engine.Engine) error {
			if c.Name == command.CmdBlock {
				return e.AddBlocker(ctx, id, blocking.ID)
			}
			return e.RemoveBlocker(ctx, id, blocking.ID)
		})
	}

	m.setStatus(fmt.Sprintf("unknown command %q", c.Name))
	return nil
}

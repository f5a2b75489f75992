package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskgraph/internal/engine"
	"github.com/nhle/taskgraph/internal/keys"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/ui"
	"github.com/nhle/taskgraph/internal/ui/command"
	"github.com/nhle/taskgraph/internal/ui/config"
	"github.com/nhle/taskgraph/internal/ui/detail"
	helpview "github.com/nhle/taskgraph/internal/ui/help"
	"github.com/nhle/taskgraph/internal/ui/itemform"
	"github.com/nhle/taskgraph/internal/ui/tasklist"
	"github.com/nhle/taskgraph/internal/unlock"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewForm
	ViewSettings
)

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the task graph engine.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	engine       *engine.Engine
	cfg          *model.AppConfig
	watcher      *unlock.Watcher
	keys         *keys.KeyMap
	taskList     tasklist.Model
	detail       detail.Model
	helpView     helpview.Model
	commandView  command.Model
	formView     itemform.Model
	settings     config.Model
	ready        bool

	// pendingSubtreeDelete is the item awaiting a second press of the
	// delete-subtree key.
	pendingSubtreeDelete string

	status    string
	statusErr bool
}

// New creates a new root application model. The engine must already be
// populated. Settings edited in the UI are written to configPath.
func New(e *engine.Engine, cfg *model.AppConfig, configPath string) Model {
	k := keys.DefaultKeyMap()
	m := Model{
		currentView: ViewList,
		engine:      e,
		cfg:         cfg,
		watcher:     unlock.New(e, cfg.RecheckInterval()),
		keys:        k,
		taskList:    tasklist.New(k, cfg.Display.ShowCompleted, 80, 24),
		detail:      detail.New(k, cfg.Display.Theme, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		formView:    itemform.New(80, 24),
		settings:    config.New(configPath, *cfg, k, 80, 24),
	}
	m.taskList.SetSnapshot(e.Snapshot(), e.Resolver())
	return m
}

// Init starts the unlock watcher.
func (m Model) Init() tea.Cmd {
	return m.watcher.Start()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.taskList.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.formView.SetSize(contentWidth, contentHeight)
		m.settings.SetSize(contentWidth, contentHeight)
		m.detail.Refresh(m.engine.Snapshot(), m.engine.Resolver())
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case unlock.ChangedMsg:
		cmd := m.refreshViews()
		if n := len(msg.Unblocked); n > 0 {
			m.setStatus(fmt.Sprintf("%d item(s) unlocked", n))
		}
		return m, tea.Batch(cmd, m.watcher.WaitForNext())

	case mutationResultMsg:
		cmd := m.handleMutationResult(msg)
		return m, cmd

	case reloadResultMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setStatus("reloaded from storage")
		cmd := m.refreshViews()
		m.watcher.Refresh()
		return m, cmd

	case clipboardResultMsg:
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.setStatus(fmt.Sprintf("copied %d item(s)", msg.count))
		}
		return m, nil

	case tasklist.SelectedItemMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.Show(m.engine.Snapshot(), m.engine.Resolver(), msg.ItemID)
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewList
		return m, nil

	case itemform.SubmitMsg:
		m.currentView = m.previousView
		cmd := m.submitForm(msg)
		return m, cmd

	case itemform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case config.SavedMsg:
		*m.cfg = msg.Config
		m.detail.SetTheme(msg.Config.Display.Theme, m.engine.Snapshot(), m.engine.Resolver())
		m.setStatus("settings saved")
		cmd := m.taskList.SetShowCompleted(msg.Config.Display.ShowCompleted)
		return m, cmd

	case config.DoneMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(msg)
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleKey processes global and item-action keys. It reports whether the
// key was consumed.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.watcher.Stop()
		return tea.Quit, true
	}

	// Text inputs own every other key.
	if m.currentView == ViewForm || m.currentView == ViewSettings ||
		m.currentView == ViewCommand && !key.Matches(msg, m.keys.Back) {
		return nil, false
	}
	if m.currentView == ViewList && m.taskList.Searching() {
		return nil, false
	}

	if !key.Matches(msg, m.keys.DeleteSubtree) {
		m.pendingSubtreeDelete = ""
	}

	switch {
	case key.Matches(msg, m.keys.Quit) && m.currentView == ViewList:
		m.watcher.Stop()
		return tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil, true

	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m.commandView.Reset(), true

	case key.Matches(msg, m.keys.Back) && (m.currentView == ViewHelp || m.currentView == ViewCommand):
		m.currentView = m.previousView
		return nil, true
	}

	if m.currentView != ViewList && m.currentView != ViewDetail {
		return nil, false
	}

	id, ok := m.focusedID()
	if !ok {
		if key.Matches(msg, m.keys.AddSibling) {
			return m.startCreate(nil), true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m.toggleComplete(id), true
	case key.Matches(msg, m.keys.Edit):
		return m.startEdit(id), true
	case key.Matches(msg, m.keys.Copy):
		return m.copySubtree(id), true
	case key.Matches(msg, m.keys.AddChild):
		return m.startCreate(&id), true
	}

	// Structural edits only apply in the tree.
	if m.currentView != ViewList {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.AddSibling):
		it, err := m.engine.Item(id)
		if err != nil {
			return nil, true
		}
		return m.startCreate(it.ParentID), true
	case key.Matches(msg, m.keys.Delete):
		return m.deleteItem(id, false), true
	case key.Matches(msg, m.keys.DeleteSubtree):
		if m.pendingSubtreeDelete != id {
			m.pendingSubtreeDelete = id
			m.setStatus("press D again to delete the whole subtree")
			return nil, true
		}
		m.pendingSubtreeDelete = ""
		return m.deleteItem(id, true), true
	case key.Matches(msg, m.keys.Indent):
		return m.outline("indent", id, m.engine.Indent), true
	case key.Matches(msg, m.keys.Outdent):
		return m.outline("outdent", id, m.engine.Outdent), true
	case key.Matches(msg, m.keys.MoveUp):
		return m.outline("move up", id, m.engine.MoveUp), true
	case key.Matches(msg, m.keys.MoveDown):
		return m.outline("move down", id, m.engine.MoveDown), true
	case key.Matches(msg, m.keys.Refresh):
		return m.reload(), true
	}
	return nil, false
}

// focusedID returns the item the user is acting on in the current view.
func (m Model) focusedID() (string, bool) {
	switch m.currentView {
	case ViewDetail:
		id := m.detail.ItemID()
		_, err := m.engine.Item(id)
		return id, err == nil
	case ViewList:
		row, ok := m.taskList.Selected()
		return row.Item.ID, ok
	}
	return "", false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewForm:
		m.formView, cmd = m.formView.Update(msg)
	case ViewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

// refreshViews re-renders every view from the engine's current snapshot.
func (m *Model) refreshViews() tea.Cmd {
	snap := m.engine.Snapshot()
	r := m.engine.Resolver()
	m.detail.Refresh(snap, r)
	return m.taskList.SetSnapshot(snap, r)
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Task Graph", m.summary())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.renderStatus())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewForm:
		return m.formView.View()
	case ViewSettings:
		return m.settings.View()
	default:
		return ""
	}
}

// summary returns the header's right-hand counts.
func (m Model) summary() string {
	snap := m.engine.Snapshot()
	blocked := 0
	done := 0
	for id, b := range m.engine.Resolver().Evaluate(snap) {
		if b {
			blocked++
		}
		if it, ok := snap.Item(id); ok && it.Completed {
			done++
		}
	}
	return fmt.Sprintf("%d items · %d done · %d blocked", snap.Len(), done, blocked)
}

func (m Model) renderStatus() string {
	if m.statusErr {
		return "✗ " + m.status
	}
	return m.status
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | x toggle | e edit | a add child | y copy | j/k scroll"
	case ViewForm:
		return "enter submit | esc cancel"
	case ViewSettings:
		if m.settings.Editing() {
			return "enter next | esc cancel"
		}
		return "e edit | esc back"
	default:
		if m.taskList.Searching() {
			return "enter apply | esc clear"
		}
		return "q quit | ? help | n new | a child | x done | tab/S-tab indent | / search"
	}
}

package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskgraph/internal/engine"
	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/testutil"
	"github.com/nhle/taskgraph/internal/ui/command"
	"github.com/nhle/taskgraph/internal/ui/config"
)

var now = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

func newApp(t *testing.T, titles ...string) (Model, *engine.Engine) {
	t.Helper()
	e := engine.New(testutil.NewTestStore(t), "owner-1",
		engine.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	if err := e.Populate(ctx); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	for _, title := range titles {
		if _, err := e.Create(ctx, model.ItemDraft{Title: title}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	cfg := &model.AppConfig{Display: model.DisplayConfig{Theme: "notty", ShowCompleted: true}}
	m := New(e, cfg, filepath.Join(t.TempDir(), "config.yaml"))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), e
}

func press(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// finish runs a single mutation command and feeds its result back.
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, _ := m.Update(cmd())
	return next.(Model)
}

func find(t *testing.T, e *engine.Engine, title string) model.Item {
	t.Helper()
	it, ok := e.Entry(graph.ByTitle(title))
	if !ok {
		t.Fatalf("no item %q", title)
	}
	return it
}

func TestToggleCompleteFromTree(t *testing.T) {
	m, e := newApp(t, "Write tests")

	m, cmd := press(t, m, runes("x"))
	m = finish(t, m, cmd)

	if !find(t, e, "Write tests").Completed {
		t.Error("item should be completed")
	}
	if m.statusErr || !strings.Contains(m.status, "toggle") {
		t.Errorf("status = %q", m.status)
	}
}

func TestIndentFromTree(t *testing.T) {
	m, e := newApp(t, "Parent", "Child")

	m, _ = press(t, m, runes("j"))
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = finish(t, m, cmd)

	child := find(t, e, "Child")
	if child.ParentKey() != find(t, e, "Parent").ID {
		t.Fatal("Child should be indented under Parent")
	}
	if row, ok := m.taskList.Selected(); !ok || row.Item.ID != child.ID {
		t.Error("selection should follow the moved item")
	}
}

func TestDeleteSubtreeNeedsSecondPress(t *testing.T) {
	m, e := newApp(t, "Root")
	root := find(t, e, "Root")
	if _, err := e.Create(context.Background(), model.ItemDraft{Title: "Leaf", ParentID: &root.ID}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	m.refreshViews()

	m, cmd := press(t, m, runes("D"))
	if cmd != nil {
		t.Fatal("first press should only ask for confirmation")
	}
	if e.Snapshot().Len() != 2 {
		t.Fatal("nothing should be deleted yet")
	}

	m, cmd = press(t, m, runes("D"))
	finish(t, m, cmd)
	if e.Snapshot().Len() != 0 {
		t.Errorf("subtree should be gone, %d items left", e.Snapshot().Len())
	}
}

func TestCopySubtree(t *testing.T) {
	m, _ := newApp(t, "Plan trip")

	var copied string
	orig := writeClipboard
	writeClipboard = func(s string) error { copied = s; return nil }
	defer func() { writeClipboard = orig }()

	m, cmd := press(t, m, runes("y"))
	m = finish(t, m, cmd)

	if !strings.Contains(copied, "title: Plan trip") {
		t.Errorf("clipboard = %q", copied)
	}
	if m.status != "copied 1 item(s)" {
		t.Errorf("status = %q", m.status)
	}
}

func TestPaletteCommands(t *testing.T) {
	m, e := newApp(t, "Docs", "Release")

	next, cmd := m.Update(command.CommandMsg{Name: command.CmdType, Args: []string{"mission"}})
	m = finish(t, next.(Model), cmd)
	if typ, _ := e.EffectiveType(find(t, e, "Docs").ID); typ != model.TypeMission {
		t.Errorf("type = %s", typ)
	}

	m, _ = press(t, m, runes("j"))
	next, cmd = m.Update(command.CommandMsg{Name: command.CmdBlock, Args: []string{"Docs"}})
	m = finish(t, next.(Model), cmd)
	if !e.IsBlocked(find(t, e, "Release").ID) {
		t.Error("Release should be blocked by Docs")
	}

	next, cmd = m.Update(command.CommandMsg{Name: command.CmdUnlock, Args: []string{"2026-08-01"}})
	finish(t, next.(Model), cmd)
	if _, ok := e.Snapshot().DateGateOf(find(t, e, "Release").ID); !ok {
		t.Error("Release should have an unlock date")
	}
}

func TestPaletteErrorsReachStatusBar(t *testing.T) {
	m, _ := newApp(t, "Only")

	next, cmd := m.Update(command.CommandMsg{Name: command.CmdBlock, Args: []string{"ghost"}})
	m = next.(Model)
	if cmd != nil {
		t.Fatal("unknown blocker should not start a mutation")
	}
	if !m.statusErr || !strings.Contains(m.View(), "not found") {
		t.Errorf("status = %q", m.status)
	}
}

func TestCompletingBlockedItemReportsError(t *testing.T) {
	m, e := newApp(t, "First", "Second")
	ctx := context.Background()
	if err := e.AddBlocker(ctx, find(t, e, "Second").ID, find(t, e, "First").ID); err != nil {
		t.Fatalf("AddBlocker: %v", err)
	}
	m.refreshViews()

	m, _ = press(t, m, runes("j"))
	m, cmd := press(t, m, runes("x"))
	m = finish(t, m, cmd)

	if !m.statusErr {
		t.Errorf("status = %q, want an error", m.status)
	}
	if find(t, e, "Second").Completed {
		t.Error("blocked item must not complete")
	}
}

func TestSettingsSaveAppliesDisplayOptions(t *testing.T) {
	m, e := newApp(t, "Done already", "Still open")
	if _, err := e.ToggleComplete(context.Background(), find(t, e, "Done already").ID); err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	m.refreshViews()

	next, _ := m.Update(command.CommandMsg{Name: command.CmdSettings})
	m = next.(Model)
	if m.currentView != ViewSettings {
		t.Fatalf("view = %v, want settings", m.currentView)
	}

	cfg := *m.cfg
	cfg.Display.ShowCompleted = false
	next, _ = m.Update(config.SavedMsg{Config: cfg})
	m = next.(Model)

	if m.cfg.Display.ShowCompleted {
		t.Error("config should be updated in place")
	}
	if strings.Contains(m.taskList.View(), "Done already") {
		t.Error("completed item should be hidden")
	}

	next, _ = m.Update(config.DoneMsg{})
	if next.(Model).currentView != ViewList {
		t.Error("closing settings should return to the tree")
	}
}

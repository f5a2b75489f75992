package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nhle/taskgraph/internal/engine"
	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/store"
	"github.com/nhle/taskgraph/internal/testutil"
)

const owner = "owner-1"

var now = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func newEngine(t *testing.T, s store.Store) *engine.Engine {
	t.Helper()
	e := engine.New(s, owner, engine.WithClock(func() time.Time { return now }))
	if err := e.Populate(context.Background()); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	return e
}

func mustCreate(t *testing.T, e *engine.Engine, title string, parent *model.Item) model.Item {
	t.Helper()
	draft := model.ItemDraft{Title: title}
	if parent != nil {
		draft.ParentID = model.StringPtr(parent.ID)
	}
	it, err := e.Create(context.Background(), draft)
	if err != nil {
		t.Fatalf("Create %q: %v", title, err)
	}
	return it
}

func mustValid(t *testing.T, e *engine.Engine) {
	t.Helper()
	if err := e.Snapshot().Validate(); err != nil {
		t.Fatalf("snapshot invalid: %v", err)
	}
}

// reload checks that storage agrees with the engine's snapshot.
func reload(t *testing.T, s store.Store, e *engine.Engine) {
	t.Helper()
	fresh := newEngine(t, s)
	want := e.Snapshot().Items()
	got := fresh.Snapshot().Items()
	if len(got) != len(want) {
		t.Fatalf("storage has %d items, snapshot has %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Position != want[i].Position ||
			got[i].ParentKey() != want[i].ParentKey() || got[i].Completed != want[i].Completed {
			t.Errorf("item %d: storage %+v, snapshot %+v", i, got[i], want[i])
		}
	}
	if len(fresh.Snapshot().TaskDependencies()) != len(e.Snapshot().TaskDependencies()) {
		t.Error("task dependencies differ from storage")
	}
	if len(fresh.Snapshot().DateDependencies()) != len(e.Snapshot().DateDependencies()) {
		t.Error("date dependencies differ from storage")
	}
}

func titles(items []model.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreateAppendsAndPersists(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)

	launch := mustCreate(t, e, "Launch", nil)
	beta := mustCreate(t, e, "Beta", &launch)
	ga := mustCreate(t, e, "GA", &launch)

	if beta.Position != 0 || ga.Position != 1 {
		t.Errorf("positions = %d, %d", beta.Position, ga.Position)
	}
	if launch.ID == "" || launch.CreatedAt.IsZero() {
		t.Error("store should assign id and created_at")
	}

	typ, err := e.EffectiveType(launch.ID)
	if err != nil || typ != model.TypeAmbition {
		t.Errorf("Launch type = %s, %v", typ, err)
	}

	rc := mustCreate(t, e, "RC", &beta)
	typ, err = e.EffectiveType(beta.ID)
	if err != nil || typ != model.TypeMission {
		t.Errorf("Beta type = %s, %v", typ, err)
	}
	if typ, _ := e.EffectiveType(rc.ID); typ != model.TypeTask {
		t.Errorf("RC type = %s", typ)
	}
	reload(t, s, e)
}

func TestCreateUnderMissingParent(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)

	_, err := e.Create(context.Background(), model.ItemDraft{ParentID: model.StringPtr("ghost")})
	if !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMoveReorderScenario(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)

	launch := mustCreate(t, e, "Launch", nil)
	mustCreate(t, e, "Beta", &launch)
	ga := mustCreate(t, e, "GA", &launch)

	if err := e.Move(context.Background(), ga.ID, &launch.ID, 0); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := titles(e.ChildrenOf(&launch.ID)); !equal(got, []string{"GA", "Beta"}) {
		t.Errorf("children = %v", got)
	}
	mustValid(t, e)
	reload(t, s, e)
}

func TestMoveRejectsCycleWithoutWrites(t *testing.T) {
	s := testutil.NewTestStore(t)
	fs := testutil.NewFaultStore(s, -1)
	e := newEngine(t, fs)

	root := mustCreate(t, e, "root", nil)
	child := mustCreate(t, e, "child", &root)
	before := e.Snapshot()
	writes := fs.Writes()

	err := e.Move(context.Background(), root.ID, &child.ID, 0)
	if !errors.Is(err, graph.ErrInvalidStructure) {
		t.Fatalf("err = %v, want ErrInvalidStructure", err)
	}
	if e.Snapshot() != before {
		t.Error("snapshot advanced after a rejected move")
	}
	if fs.Writes() != writes {
		t.Error("rejected move reached storage")
	}
}

func TestOutlineEditing(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)
	ctx := context.Background()

	a := mustCreate(t, e, "a", nil)
	b := mustCreate(t, e, "b", nil)
	c := mustCreate(t, e, "c", nil)

	if err := e.Indent(ctx, b.ID); err != nil {
		t.Fatalf("Indent: %v", err)
	}
	if got := titles(e.ChildrenOf(&a.ID)); !equal(got, []string{"b"}) {
		t.Errorf("a children = %v", got)
	}
	if err := e.MoveUp(ctx, c.ID); err != nil {
		t.Fatalf("MoveUp: %v", err)
	}
	if got := titles(e.ChildrenOf(nil)); !equal(got, []string{"c", "a"}) {
		t.Errorf("roots = %v", got)
	}
	if err := e.Outdent(ctx, b.ID); err != nil {
		t.Fatalf("Outdent: %v", err)
	}
	if err := e.MoveDown(ctx, c.ID); err != nil {
		t.Fatalf("MoveDown: %v", err)
	}
	if got := titles(e.ChildrenOf(nil)); !equal(got, []string{"a", "c", "b"}) {
		t.Errorf("roots = %v", got)
	}
	mustValid(t, e)
	reload(t, s, e)
}

func TestUpdateCompletion(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)
	ctx := context.Background()

	a := mustCreate(t, e, "a", nil)
	b := mustCreate(t, e, "b", nil)
	if err := e.AddBlocker(ctx, b.ID, a.ID); err != nil {
		t.Fatalf("AddBlocker: %v", err)
	}

	if _, err := e.ToggleComplete(ctx, b.ID); !errors.Is(err, graph.ErrValidation) {
		t.Fatalf("completing a blocked item: err = %v", err)
	}

	done, err := e.ToggleComplete(ctx, a.ID)
	if err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil || !done.CompletedAt.Equal(now) {
		t.Errorf("completed=%v at=%v", done.Completed, done.CompletedAt)
	}
	if e.IsBlocked(b.ID) {
		t.Error("b should be unblocked once a is complete")
	}

	undone, err := e.ToggleComplete(ctx, a.ID)
	if err != nil {
		t.Fatalf("ToggleComplete: %v", err)
	}
	if undone.Completed || undone.CompletedAt != nil {
		t.Errorf("completed=%v at=%v", undone.Completed, undone.CompletedAt)
	}
	reload(t, s, e)
}

func TestToggleCompleteConcurrent(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)
	a := mustCreate(t, e, "a", nil)

	const toggles = 10
	var wg sync.WaitGroup
	errs := make(chan error, toggles)
	for range toggles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.ToggleComplete(context.Background(), a.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("ToggleComplete: %v", err)
	}

	got, _ := e.Snapshot().Item(a.ID)
	if got.Completed {
		t.Errorf("%d toggles left the item completed", toggles)
	}
	reload(t, s, e)
}

func TestUpdateValidation(t *testing.T) {
	s := testutil.NewTestStore(t)
	fs := testutil.NewFaultStore(s, -1)
	e := newEngine(t, fs)
	a := mustCreate(t, e, "a", nil)
	writes := fs.Writes()

	_, err := e.Update(context.Background(), a.ID, model.ItemPatch{Title: model.StringPtr("")})
	if !errors.Is(err, graph.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
	if fs.Writes() != writes {
		t.Error("validation failure reached storage")
	}

	_, err = e.Update(context.Background(), "ghost", model.ItemPatch{Title: model.StringPtr("x")})
	if !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateManualType(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)
	ctx := context.Background()
	a := mustCreate(t, e, "a", nil)

	if _, err := e.Update(ctx, a.ID, model.ItemPatch{Type: model.TypePtr(model.TypeTask)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if typ, _ := e.EffectiveType(a.ID); typ != model.TypeTask {
		t.Errorf("pinned type = %s", typ)
	}

	if _, err := e.Update(ctx, a.ID, model.ItemPatch{ManualType: model.BoolPtr(false)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if typ, _ := e.EffectiveType(a.ID); typ != model.TypeAmbition {
		t.Errorf("derived type = %s", typ)
	}
	reload(t, s, e)
}

func TestDeletePromote(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)
	ctx := context.Background()

	p := mustCreate(t, e, "p", nil)
	mustCreate(t, e, "a", &p)
	x := mustCreate(t, e, "x", &p)
	mustCreate(t, e, "b", &p)
	x1 := mustCreate(t, e, "x1", &x)
	mustCreate(t, e, "x2", &x)
	if err := e.AddBlocker(ctx, x1.ID, p.ID); err != nil {
		t.Fatalf("AddBlocker: %v", err)
	}

	if err := e.Delete(ctx, x.ID, engine.DeleteOptions{}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := titles(e.ChildrenOf(&p.ID)); !equal(got, []string{"a", "b", "x1", "x2"}) {
		t.Errorf("children = %v", got)
	}
	if len(e.Snapshot().TaskDependencies()) != 1 {
		t.Error("dependency of a promoted child should survive")
	}
	mustValid(t, e)
	reload(t, s, e)
}

func TestDeleteCascade(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)
	ctx := context.Background()

	r := mustCreate(t, e, "r", nil)
	x := mustCreate(t, e, "x", &r)
	w := mustCreate(t, e, "w", &r)
	y := mustCreate(t, e, "y", &x)
	if err := e.AddBlocker(ctx, w.ID, y.ID); err != nil {
		t.Fatalf("AddBlocker: %v", err)
	}
	if err := e.AddBlocker(ctx, r.ID, w.ID); err != nil {
		t.Fatalf("AddBlocker: %v", err)
	}
	if err := e.SetUnlockDate(ctx, y.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("SetUnlockDate: %v", err)
	}

	if err := e.Delete(ctx, x.ID, engine.DeleteOptions{Cascade: true}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	snap := e.Snapshot()
	if snap.Has(x.ID) || snap.Has(y.ID) {
		t.Error("subtree should be gone")
	}
	if deps := snap.TaskDependencies(); len(deps) != 1 || deps[0].BlockingTaskID != w.ID {
		t.Errorf("task deps = %+v", deps)
	}
	if len(snap.DateDependencies()) != 0 {
		t.Error("date gate of a removed item should be gone")
	}
	if got, _ := e.Item(w.ID); got.Position != 0 {
		t.Errorf("w position = %d, want 0", got.Position)
	}
	mustValid(t, e)
	reload(t, s, e)
}

func TestDeleteNotFound(t *testing.T) {
	e := newEngine(t, testutil.NewTestStore(t))
	err := e.Delete(context.Background(), "ghost", engine.DeleteOptions{Cascade: true})
	if !errors.Is(err, graph.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStorageFailureKeepsSnapshot(t *testing.T) {
	tests := []struct {
		name string
		tx   bool
	}{
		{"without transactions", false},
		{"with transactions", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.NewTestStore(t)
			var (
				fs  *testutil.FaultStore
				eng *engine.Engine
			)
			if tt.tx {
				fts := testutil.NewFaultTxStore(s, 8)
				fs, eng = fts.FaultStore, newEngine(t, fts)
			} else {
				fs = testutil.NewFaultStore(s, 8)
				eng = newEngine(t, fs)
			}

			p := mustCreate(t, eng, "p", nil)
			for _, title := range []string{"a", "b", "c", "d", "e"} {
				mustCreate(t, eng, title, &p)
			}
			if fs.Writes() != 6 {
				t.Fatalf("setup used %d writes", fs.Writes())
			}
			last := eng.ChildrenOf(&p.ID)[4]
			before := eng.Snapshot()

			err := eng.Move(context.Background(), last.ID, &p.ID, 0)
			if !errors.Is(err, graph.ErrStorage) {
				t.Fatalf("err = %v, want ErrStorage", err)
			}
			if !errors.Is(err, testutil.ErrInjected) {
				t.Errorf("err = %v should wrap the store error", err)
			}
			var se *graph.StorageError
			if !errors.As(err, &se) || se.Op != "move" {
				t.Errorf("err = %#v, want StorageError for move", err)
			}
			if eng.Snapshot() != before {
				t.Error("snapshot advanced after a failed write")
			}
			mustValid(t, eng)
			if got := titles(eng.ChildrenOf(&p.ID)); !equal(got, []string{"a", "b", "c", "d", "e"}) {
				t.Errorf("children = %v", got)
			}

			if tt.tx {
				reload(t, s, eng)
			}
		})
	}
}

func TestSetDependenciesReconciles(t *testing.T) {
	s := testutil.NewTestStore(t)
	fs := testutil.NewFaultStore(s, -1)
	e := newEngine(t, fs)
	ctx := context.Background()

	a := mustCreate(t, e, "a", nil)
	x := mustCreate(t, e, "x", nil)
	y := mustCreate(t, e, "y", nil)

	desired := []model.Dependency{
		model.TaskDep(model.TaskDependency{BlockingTaskID: x.ID}),
		model.TaskDep(model.TaskDependency{BlockingTaskID: y.ID}),
		model.DateDep(model.DateDependency{UnblockAt: now.Add(24 * time.Hour)}),
	}
	got, err := e.SetDependencies(ctx, a.ID, desired)
	if err != nil {
		t.Fatalf("SetDependencies: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("result = %d deps", len(got))
	}
	for _, d := range got {
		if d.ID() == "" {
			t.Error("created dependency lacks a storage id")
		}
	}
	if !e.IsBlocked(a.ID) {
		t.Error("a should be blocked")
	}

	writes := fs.Writes()
	again, err := e.SetDependencies(ctx, a.ID, got)
	if err != nil {
		t.Fatalf("SetDependencies: %v", err)
	}
	if fs.Writes() != writes {
		t.Errorf("idempotent call issued %d writes", fs.Writes()-writes)
	}
	if len(again) != 3 {
		t.Errorf("result = %d deps", len(again))
	}

	if err := e.RemoveBlocker(ctx, a.ID, x.ID); err != nil {
		t.Fatalf("RemoveBlocker: %v", err)
	}
	if err := e.ClearUnlockDate(ctx, a.ID); err != nil {
		t.Fatalf("ClearUnlockDate: %v", err)
	}
	deps, _ := e.Dependencies(a.ID)
	if len(deps) != 1 || deps[0].Task == nil || deps[0].Task.BlockingTaskID != y.ID {
		t.Errorf("remaining deps = %+v", deps)
	}
	reload(t, s, e)
}

func TestSetDependenciesValidation(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)
	a := mustCreate(t, e, "a", nil)
	b := mustCreate(t, e, "b", nil)
	at := now.Add(time.Hour)

	tests := []struct {
		name    string
		id      string
		desired []model.Dependency
		want    error
	}{
		{"unknown item", "ghost", nil, graph.ErrNotFound},
		{
			"unknown blocker", a.ID,
			[]model.Dependency{model.TaskDep(model.TaskDependency{BlockingTaskID: "ghost"})},
			graph.ErrNotFound,
		},
		{
			"self block", a.ID,
			[]model.Dependency{model.TaskDep(model.TaskDependency{BlockingTaskID: a.ID})},
			graph.ErrValidation,
		},
		{
			"foreign edge", a.ID,
			[]model.Dependency{model.TaskDep(model.TaskDependency{BlockingTaskID: a.ID, BlockedTaskID: b.ID})},
			graph.ErrValidation,
		},
		{
			"two date gates", a.ID,
			[]model.Dependency{
				model.DateDep(model.DateDependency{UnblockAt: at}),
				model.DateDep(model.DateDependency{UnblockAt: at.Add(time.Hour)}),
			},
			graph.ErrValidation,
		},
		{
			"duplicate blocker", a.ID,
			[]model.Dependency{
				model.TaskDep(model.TaskDependency{BlockingTaskID: b.ID}),
				model.TaskDep(model.TaskDependency{BlockingTaskID: b.ID}),
			},
			graph.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := e.Snapshot()
			_, err := e.SetDependencies(context.Background(), tt.id, tt.desired)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if e.Snapshot() != before {
				t.Error("snapshot changed")
			}
		})
	}
}

func TestSetDependenciesRejectsUnknownIDs(t *testing.T) {
	s := testutil.NewTestStore(t)
	fs := testutil.NewFaultStore(s, -1)
	e := newEngine(t, fs)
	ctx := context.Background()

	b := mustCreate(t, e, "b", nil)
	c := mustCreate(t, e, "c", nil)
	x := mustCreate(t, e, "x", nil)

	cDeps, err := e.SetDependencies(ctx, c.ID, []model.Dependency{
		model.TaskDep(model.TaskDependency{BlockingTaskID: x.ID}),
	})
	if err != nil {
		t.Fatalf("SetDependencies: %v", err)
	}
	cEdge := cDeps[0].ID()

	for _, id := range []string{cEdge, "client-chosen"} {
		t.Run(id, func(t *testing.T) {
			writes := fs.Writes()
			before := e.Snapshot()
			_, err := e.SetDependencies(ctx, b.ID, []model.Dependency{
				model.TaskDep(model.TaskDependency{ID: id, BlockingTaskID: x.ID}),
			})
			if !errors.Is(err, graph.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
			if errors.Is(err, graph.ErrStorage) || fs.Writes() != writes {
				t.Error("unknown id reached storage")
			}
			if e.Snapshot() != before {
				t.Error("snapshot changed")
			}
		})
	}

	deps, _ := e.Dependencies(c.ID)
	if len(deps) != 1 || deps[0].ID() != cEdge {
		t.Errorf("c's edge was disturbed: %+v", deps)
	}
	reload(t, s, e)
}

func TestUnlockDateGate(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)
	ctx := context.Background()
	a := mustCreate(t, e, "a", nil)

	if err := e.SetUnlockDate(ctx, a.ID, now.Add(time.Hour)); err != nil {
		t.Fatalf("SetUnlockDate: %v", err)
	}
	if !e.IsBlocked(a.ID) {
		t.Error("future gate should block")
	}
	if err := e.SetUnlockDate(ctx, a.ID, now.Add(-time.Hour)); err != nil {
		t.Fatalf("SetUnlockDate: %v", err)
	}
	if e.IsBlocked(a.ID) {
		t.Error("past gate should not block")
	}
	if n := len(e.Snapshot().DateDependencies()); n != 1 {
		t.Errorf("date gates = %d, want 1", n)
	}
	reload(t, s, e)
}

func TestActionableAndReport(t *testing.T) {
	s := testutil.NewTestStore(t)
	e := newEngine(t, s)
	ctx := context.Background()

	a := mustCreate(t, e, "A", nil)
	b := mustCreate(t, e, "B", &a)
	mustCreate(t, e, "C", &a)
	x := mustCreate(t, e, "X", nil)
	if err := e.AddBlocker(ctx, b.ID, x.ID); err != nil {
		t.Fatalf("AddBlocker: %v", err)
	}

	if e.IsBlocked(a.ID) {
		t.Error("A has an actionable child and must not be blocked")
	}
	if got := titles(e.Actionable()); !equal(got, []string{"A", "C", "X"}) {
		t.Errorf("actionable = %v", got)
	}

	rep, err := e.Report(b.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if !rep.Blocked || len(rep.Blockers) != 1 || rep.Blockers[0] != x.ID {
		t.Errorf("report = %+v", rep)
	}
}

func TestRepair(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	testutil.MustInsertItem(t, s, owner, model.Item{Title: "a", Position: 4})
	testutil.MustInsertItem(t, s, owner, model.Item{Title: "b", Position: 9})

	e := newEngine(t, s)
	if err := e.Snapshot().Validate(); err == nil {
		t.Fatal("fixture should need repair")
	}
	n, err := e.Repair(ctx)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if n != 2 {
		t.Errorf("rewrote %d rows, want 2", n)
	}
	mustValid(t, e)
	reload(t, s, e)
}

func TestEntries(t *testing.T) {
	e := newEngine(t, testutil.NewTestStore(t))
	a := mustCreate(t, e, "Write report", nil)
	mustCreate(t, e, "Draft", &a)

	if got := titles(e.Entries(graph.TitleContains("report"))); !equal(got, []string{"Write report"}) {
		t.Errorf("entries = %v", got)
	}
	if it, ok := e.Entry(graph.ByParent(&a.ID)); !ok || it.Title != "Draft" {
		t.Errorf("entry = %v, %v", it.Title, ok)
	}
}

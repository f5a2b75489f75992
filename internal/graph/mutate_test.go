package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nhle/taskgraph/internal/model"
)

func TestPlanCreateAppends(t *testing.T) {
	s := NewSnapshot([]model.Item{
		node("p", "", 0),
		node("a", "p", 0),
		node("b", "p", 1),
	}, nil, nil)

	item, err := PlanCreate(s, model.ItemDraft{ParentID: model.StringPtr("p"), Title: "c"})
	if err != nil {
		t.Fatalf("PlanCreate: %v", err)
	}
	if item.Position != 2 || item.ParentKey() != "p" {
		t.Errorf("got parent %q position %d, want p/2", item.ParentKey(), item.Position)
	}

	root, err := PlanCreate(s, model.ItemDraft{})
	if err != nil {
		t.Fatalf("PlanCreate root: %v", err)
	}
	if root.Position != 1 || root.ParentID != nil {
		t.Errorf("root draft placed at %q/%d", root.ParentKey(), root.Position)
	}
}

func TestPlanCreateErrors(t *testing.T) {
	s := NewSnapshot([]model.Item{node("p", "", 0)}, nil, nil)
	bogus := model.ItemType("epic")

	tests := []struct {
		name  string
		draft model.ItemDraft
		want  error
	}{
		{"missing parent", model.ItemDraft{ParentID: model.StringPtr("ghost")}, ErrNotFound},
		{"unknown type", model.ItemDraft{Type: &bogus, ManualType: true}, ErrValidation},
		{"manual without type", model.ItemDraft{ManualType: true}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PlanCreate(s, tt.draft); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestMoveReorderScenario(t *testing.T) {
	s := NewSnapshot([]model.Item{
		node("Launch", "", 0),
		node("Beta", "Launch", 0),
		node("GA", "Launch", 1),
	}, nil, nil)

	plan, err := PlanMove(s, "GA", model.StringPtr("Launch"), 0)
	if err != nil {
		t.Fatalf("PlanMove: %v", err)
	}
	next := plan.Apply(s)
	mustValid(t, next)

	ga, _ := next.Item("GA")
	beta, _ := next.Item("Beta")
	if ga.Position != 0 || beta.Position != 1 {
		t.Errorf("GA at %d, Beta at %d; want 0 and 1", ga.Position, beta.Position)
	}
	if ga.ParentKey() != "Launch" || beta.ParentKey() != "Launch" {
		t.Error("both should remain children of Launch")
	}
	for _, id := range []string{"Beta", "GA"} {
		if typ, _ := EffectiveTypeOf(next, id); typ != model.TypeTask {
			t.Errorf("%s type = %s", id, typ)
		}
	}
}

func TestMoveWithinGroupKeepsContiguity(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	items := []model.Item{node("p", "", 0)}
	for i, id := range ids {
		items = append(items, node(id, "p", i))
	}
	s := NewSnapshot(items, nil, nil)

	for from := range ids {
		for to := range ids {
			t.Run(fmt.Sprintf("%d_to_%d", from, to), func(t *testing.T) {
				plan, err := PlanMove(s, ids[from], model.StringPtr("p"), to)
				if err != nil {
					t.Fatalf("PlanMove: %v", err)
				}
				if from == to && !plan.IsEmpty() {
					t.Errorf("no-op move produced %d writes", plan.Writes())
				}
				next := plan.Apply(s)
				mustValid(t, next)
				moved, _ := next.Item(ids[from])
				if moved.Position != to {
					t.Errorf("moved item at %d, want %d", moved.Position, to)
				}

				// Only the span between from and to shifts.
				lo, hi := from, to
				if lo > hi {
					lo, hi = hi, lo
				}
				if lo != hi && plan.Writes() != hi-lo+1 {
					t.Errorf("writes = %d, want %d", plan.Writes(), hi-lo+1)
				}
			})
		}
	}
}

func TestMoveAcrossParents(t *testing.T) {
	s := NewSnapshot([]model.Item{
		node("p1", "", 0),
		node("p2", "", 1),
		node("a0", "p1", 0),
		node("a1", "p1", 1),
		node("a2", "p1", 2),
		node("b0", "p2", 0),
		node("b1", "p2", 1),
	}, nil, nil)

	plan, err := PlanMove(s, "a1", model.StringPtr("p2"), 1)
	if err != nil {
		t.Fatalf("PlanMove: %v", err)
	}
	next := plan.Apply(s)
	mustValid(t, next)

	if got := childIDList(next, "p1"); !equalIDs(got, []string{"a0", "a2"}) {
		t.Errorf("p1 children = %v", got)
	}
	if got := childIDList(next, "p2"); !equalIDs(got, []string{"b0", "a1", "b1"}) {
		t.Errorf("p2 children = %v", got)
	}
}

func TestMoveToRootAndClamp(t *testing.T) {
	s := NewSnapshot([]model.Item{
		node("r0", "", 0),
		node("r1", "", 1),
		node("c", "r0", 0),
	}, nil, nil)

	plan, err := PlanMove(s, "c", nil, 99)
	if err != nil {
		t.Fatalf("PlanMove: %v", err)
	}
	next := plan.Apply(s)
	mustValid(t, next)
	if got := childIDList(next, ""); !equalIDs(got, []string{"r0", "r1", "c"}) {
		t.Errorf("roots = %v", got)
	}

	plan, err = PlanMove(next, "c", nil, -5)
	if err != nil {
		t.Fatalf("PlanMove: %v", err)
	}
	next = plan.Apply(next)
	mustValid(t, next)
	if got := childIDList(next, ""); !equalIDs(got, []string{"c", "r0", "r1"}) {
		t.Errorf("roots = %v", got)
	}
}

func TestMoveRejectsCycles(t *testing.T) {
	s := NewSnapshot([]model.Item{
		node("root", "", 0),
		node("child", "root", 0),
		node("grand", "child", 0),
	}, nil, nil)

	tests := []struct {
		name   string
		id     string
		parent string
		want   error
	}{
		{"self", "root", "root", ErrInvalidStructure},
		{"child", "root", "child", ErrInvalidStructure},
		{"grandchild", "root", "grand", ErrInvalidStructure},
		{"middle under leaf", "child", "grand", ErrInvalidStructure},
		{"unknown item", "ghost", "root", ErrNotFound},
		{"unknown parent", "grand", "ghost", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanMove(s, tt.id, model.StringPtr(tt.parent), 0)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !plan.IsEmpty() {
				t.Error("rejected move returned writes")
			}
			mustValid(t, s)
			if got, _ := s.Item("root"); got.ParentID != nil {
				t.Error("snapshot changed")
			}
		})
	}
}

func TestDeleteCascade(t *testing.T) {
	s := NewSnapshot([]model.Item{
		node("r", "", 0),
		node("x", "r", 0),
		node("w", "r", 1),
		node("y", "x", 0),
		node("z", "y", 0),
	}, []model.TaskDependency{
		blocks("d1", "z", "w"),
		blocks("d2", "w", "y"),
		blocks("d3", "w", "r"),
	}, []model.DateDependency{
		gate("g1", "z", testNow),
		gate("g2", "w", testNow),
	})

	plan, err := PlanDeleteCascade(s, "x")
	if err != nil {
		t.Fatalf("PlanDeleteCascade: %v", err)
	}
	next := plan.Apply(s)
	mustValid(t, next)

	for _, id := range []string{"x", "y", "z"} {
		if next.Has(id) {
			t.Errorf("%s should be removed", id)
		}
	}
	if got := childIDList(next, "r"); !equalIDs(got, []string{"w"}) {
		t.Errorf("r children = %v", got)
	}
	if deps := next.TaskDependencies(); len(deps) != 1 || deps[0].ID != "d3" {
		t.Errorf("task deps = %v, want only d3", deps)
	}
	if dates := next.DateDependencies(); len(dates) != 1 || dates[0].ID != "g2" {
		t.Errorf("date deps = %v, want only g2", dates)
	}
	if !equalIDs(plan.DeleteTaskDeps, []string{"d1", "d2"}) {
		t.Errorf("planned task dep deletes = %v", plan.DeleteTaskDeps)
	}
}

func TestDeletePromote(t *testing.T) {
	s := NewSnapshot([]model.Item{
		node("p", "", 0),
		node("a", "p", 0),
		node("x", "p", 1),
		node("b", "p", 2),
		node("x1", "x", 0),
		node("x2", "x", 1),
		node("x2a", "x2", 0),
	}, []model.TaskDependency{
		blocks("keep", "x1", "a"),
		blocks("drop", "x", "b"),
	}, []model.DateDependency{
		gate("gx", "x", testNow),
		gate("gx2", "x2", testNow),
	})

	plan, err := PlanDeletePromote(s, "x")
	if err != nil {
		t.Fatalf("PlanDeletePromote: %v", err)
	}
	next := plan.Apply(s)
	mustValid(t, next)

	if got := childIDList(next, "p"); !equalIDs(got, []string{"a", "b", "x1", "x2"}) {
		t.Errorf("p children = %v", got)
	}
	if got := childIDList(next, "x2"); !equalIDs(got, []string{"x2a"}) {
		t.Errorf("grandchildren should stay put, got %v", got)
	}
	if deps := next.TaskDependencies(); len(deps) != 1 || deps[0].ID != "keep" {
		t.Errorf("task deps = %v", deps)
	}
	if dates := next.DateDependencies(); len(dates) != 1 || dates[0].ID != "gx2" {
		t.Errorf("date deps = %v", dates)
	}
}

func TestDeletePromoteRoot(t *testing.T) {
	s := NewSnapshot([]model.Item{
		node("r0", "", 0),
		node("r1", "", 1),
		node("c", "r0", 0),
	}, nil, nil)

	plan, err := PlanDeletePromote(s, "r0")
	if err != nil {
		t.Fatalf("PlanDeletePromote: %v", err)
	}
	next := plan.Apply(s)
	mustValid(t, next)
	if got := childIDList(next, ""); !equalIDs(got, []string{"r1", "c"}) {
		t.Errorf("roots = %v", got)
	}
}

func TestDeleteNotFound(t *testing.T) {
	s := Empty()
	if _, err := PlanDeleteCascade(s, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("cascade err = %v", err)
	}
	if _, err := PlanDeletePromote(s, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("promote err = %v", err)
	}
}

func TestPlanUpdate(t *testing.T) {
	pinned := node("pinned", "", 2)
	pinned.ManualType = true
	pinned.Type = model.TypePtr(model.TypeMission)

	s := NewSnapshot([]model.Item{
		node("free", "", 0),
		node("stuck", "", 1),
		pinned,
		done(node("finished", "", 3)),
	}, []model.TaskDependency{blocks("d", "free", "stuck")}, nil)
	r := fixedResolver()

	t.Run("complete sets timestamp", func(t *testing.T) {
		plan, err := PlanUpdate(s, r, "free", model.ItemPatch{Completed: model.BoolPtr(true)}, testNow)
		if err != nil {
			t.Fatalf("PlanUpdate: %v", err)
		}
		got, _ := plan.Apply(s).Item("free")
		if !got.Completed || got.CompletedAt == nil || !got.CompletedAt.Equal(testNow) {
			t.Errorf("got completed=%v at=%v", got.Completed, got.CompletedAt)
		}
	})

	t.Run("uncomplete clears timestamp", func(t *testing.T) {
		plan, err := PlanUpdate(s, r, "finished", model.ItemPatch{Completed: model.BoolPtr(false)}, testNow)
		if err != nil {
			t.Fatalf("PlanUpdate: %v", err)
		}
		got, _ := plan.Apply(s).Item("finished")
		if got.Completed || got.CompletedAt != nil {
			t.Errorf("got completed=%v at=%v", got.Completed, got.CompletedAt)
		}
	})

	t.Run("blocked item cannot complete", func(t *testing.T) {
		_, err := PlanUpdate(s, r, "stuck", model.ItemPatch{Completed: model.BoolPtr(true)}, testNow)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("empty title", func(t *testing.T) {
		_, err := PlanUpdate(s, r, "free", model.ItemPatch{Title: model.StringPtr("  ")}, testNow)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})

	t.Run("setting type pins it", func(t *testing.T) {
		plan, err := PlanUpdate(s, r, "free", model.ItemPatch{Type: model.TypePtr(model.TypeObjective)}, testNow)
		if err != nil {
			t.Fatalf("PlanUpdate: %v", err)
		}
		next := plan.Apply(s)
		if typ, _ := EffectiveTypeOf(next, "free"); typ != model.TypeObjective {
			t.Errorf("type = %s", typ)
		}
	})

	t.Run("clearing manual flag reverts to derived", func(t *testing.T) {
		plan, err := PlanUpdate(s, r, "pinned", model.ItemPatch{ManualType: model.BoolPtr(false)}, testNow)
		if err != nil {
			t.Fatalf("PlanUpdate: %v", err)
		}
		next := plan.Apply(s)
		got, _ := next.Item("pinned")
		if got.ManualType || got.Type != nil {
			t.Errorf("manual=%v type=%v", got.ManualType, got.Type)
		}
		if typ, _ := EffectiveTypeOf(next, "pinned"); typ != model.TypeAmbition {
			t.Errorf("type = %s", typ)
		}
	})

	t.Run("unchanged fields write nothing", func(t *testing.T) {
		plan, err := PlanUpdate(s, r, "free", model.ItemPatch{
			Title:     model.StringPtr("free"),
			Completed: model.BoolPtr(false),
		}, testNow)
		if err != nil {
			t.Fatalf("PlanUpdate: %v", err)
		}
		if !plan.IsEmpty() {
			t.Errorf("plan = %+v, want empty", plan)
		}
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := PlanUpdate(s, r, "ghost", model.ItemPatch{}, testNow)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestPlanNormalize(t *testing.T) {
	s := NewSnapshot([]model.Item{
		node("a", "", 3),
		node("b", "", 7),
		node("c", "a", 2),
		node("d", "a", 2),
	}, nil, nil)
	if s.Validate() == nil {
		t.Fatal("fixture should be invalid")
	}

	next := PlanNormalize(s).Apply(s)
	mustValid(t, next)
	if got := childIDList(next, ""); !equalIDs(got, []string{"a", "b"}) {
		t.Errorf("roots = %v", got)
	}
	if got := childIDList(next, "a"); !equalIDs(got, []string{"c", "d"}) {
		t.Errorf("children = %v", got)
	}

	if again := PlanNormalize(next); !again.IsEmpty() {
		t.Error("normalizing a valid snapshot should write nothing")
	}
}

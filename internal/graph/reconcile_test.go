package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/nhle/taskgraph/internal/model"
)

// recordingWriter assigns sequential ids and records every call.
type recordingWriter struct {
	next    int
	sentIDs []string
	created []model.Dependency
	updated []model.Dependency
	deleted []model.Dependency
	failOn  string
}

func (w *recordingWriter) CreateDependency(_ context.Context, d model.Dependency) (model.Dependency, error) {
	if w.failOn == "create" {
		return model.Dependency{}, errors.New("boom")
	}
	w.sentIDs = append(w.sentIDs, d.ID())
	w.next++
	id := fmt.Sprintf("new-%d", w.next)
	switch d.Kind {
	case model.DependencyTask:
		c := *d.Task
		c.ID = id
		d = model.TaskDep(c)
	case model.DependencyDate:
		c := *d.Date
		c.ID = id
		d = model.DateDep(c)
	}
	w.created = append(w.created, d)
	return d, nil
}

func (w *recordingWriter) UpdateDependency(_ context.Context, d model.Dependency) (model.Dependency, error) {
	if w.failOn == "update" {
		return model.Dependency{}, errors.New("boom")
	}
	w.updated = append(w.updated, d)
	return d, nil
}

func (w *recordingWriter) DeleteDependency(_ context.Context, d model.Dependency) error {
	if w.failOn == "delete" {
		return errors.New("boom")
	}
	w.deleted = append(w.deleted, d)
	return nil
}

func (w *recordingWriter) calls() int {
	return len(w.created) + len(w.updated) + len(w.deleted)
}

func keys(deps []model.Dependency) []string {
	out := make([]string, len(deps))
	for i, d := range deps {
		out[i] = string(d.Kind) + ":" + d.ID()
	}
	sort.Strings(out)
	return out
}

func currentDeps() []model.Dependency {
	return []model.Dependency{
		model.TaskDep(blocks("t1", "x", "a")),
		model.TaskDep(blocks("t2", "y", "a")),
		model.DateDep(gate("g1", "a", testNow.Add(time.Hour))),
	}
}

func TestReconcileIdempotent(t *testing.T) {
	cur := currentDeps()
	w := &recordingWriter{}

	got, err := Reconcile(context.Background(), w, cur, cur)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if w.calls() != 0 {
		t.Errorf("issued %d writes, want none", w.calls())
	}
	if !equalIDs(keys(got), keys(cur)) {
		t.Errorf("result = %v, want %v", keys(got), keys(cur))
	}

	again, err := Reconcile(context.Background(), w, got, cur)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if w.calls() != 0 || !equalIDs(keys(again), keys(cur)) {
		t.Errorf("second pass wrote %d times, result %v", w.calls(), keys(again))
	}
}

func TestReconcileClassifies(t *testing.T) {
	cur := currentDeps()
	moved := gate("g1", "a", testNow.Add(48*time.Hour))
	desired := []model.Dependency{
		cur[0],
		model.DateDep(moved),
		model.TaskDep(blocks("", "z", "a")),
	}
	w := &recordingWriter{}

	got, err := Reconcile(context.Background(), w, cur, desired)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !equalIDs(keys(w.deleted), []string{"task:t2"}) {
		t.Errorf("deleted = %v", keys(w.deleted))
	}
	if !equalIDs(keys(w.updated), []string{"date:g1"}) {
		t.Errorf("updated = %v", keys(w.updated))
	}
	if !equalIDs(keys(w.created), []string{"task:new-1"}) {
		t.Errorf("created = %v", keys(w.created))
	}
	if !equalIDs(keys(got), []string{"date:g1", "task:new-1", "task:t1"}) {
		t.Errorf("result = %v", keys(got))
	}
	for _, d := range got {
		if d.Kind == model.DependencyDate && !d.Date.UnblockAt.Equal(moved.UnblockAt) {
			t.Errorf("updated gate carries %v", d.Date.UnblockAt)
		}
	}
}

func TestReconcileUnknownIDIsNew(t *testing.T) {
	w := &recordingWriter{}
	desired := []model.Dependency{model.TaskDep(blocks("stale-id", "x", "a"))}

	got, err := Reconcile(context.Background(), w, nil, desired)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(w.created) != 1 || len(got) != 1 || got[0].ID() != "new-1" {
		t.Errorf("created = %v, result = %v", keys(w.created), keys(got))
	}
	if len(w.sentIDs) != 1 || w.sentIDs[0] != "" {
		t.Errorf("writer saw ids %q, want storage to assign", w.sentIDs)
	}
}

func TestReconcileEmptyDesiredDeletesAll(t *testing.T) {
	w := &recordingWriter{}
	got, err := Reconcile(context.Background(), w, currentDeps(), nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(got) != 0 || len(w.deleted) != 3 {
		t.Errorf("result = %v, deleted = %v", keys(got), keys(w.deleted))
	}
}

func TestReconcilePropagatesErrors(t *testing.T) {
	for _, op := range []string{"create", "update", "delete"} {
		t.Run(op, func(t *testing.T) {
			cur := currentDeps()
			desired := []model.Dependency{
				model.DateDep(gate("g1", "a", testNow)),
				model.TaskDep(blocks("", "z", "a")),
			}
			w := &recordingWriter{failOn: op}
			if _, err := Reconcile(context.Background(), w, cur, desired); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestDiffSameKindDifferentID(t *testing.T) {
	cur := []model.Dependency{model.TaskDep(blocks("same", "x", "a"))}
	desired := []model.Dependency{model.DateDep(gate("same", "a", testNow))}

	d := Diff(cur, desired)
	if len(d.Create) != 1 || len(d.Delete) != 1 || len(d.Update) != 0 {
		t.Errorf("diff = %+v; kinds must not match across types", d)
	}
	if d.IsNoop() {
		t.Error("diff should not be a no-op")
	}
}

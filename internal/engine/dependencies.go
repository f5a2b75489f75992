package engine

import (
	"context"
	"time"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/store"
)

// storeWriter adapts a Store to graph.DependencyWriter.
type storeWriter struct {
	s       store.Store
	ownerID string
}

func (w storeWriter) CreateDependency(ctx context.Context, d model.Dependency) (model.Dependency, error) {
	switch d.Kind {
	case model.DependencyTask:
		dep, err := w.s.InsertTaskDependency(ctx, w.ownerID, *d.Task)
		return model.TaskDep(dep), err
	default:
		dep, err := w.s.InsertDateDependency(ctx, w.ownerID, *d.Date)
		return model.DateDep(dep), err
	}
}

func (w storeWriter) UpdateDependency(ctx context.Context, d model.Dependency) (model.Dependency, error) {
	switch d.Kind {
	case model.DependencyTask:
		dep, err := w.s.UpdateTaskDependency(ctx, w.ownerID, *d.Task)
		return model.TaskDep(dep), err
	default:
		dep, err := w.s.UpdateDateDependency(ctx, w.ownerID, *d.Date)
		return model.DateDep(dep), err
	}
}

func (w storeWriter) DeleteDependency(ctx context.Context, d model.Dependency) error {
	if d.Kind == model.DependencyTask {
		return w.s.DeleteTaskDependency(ctx, w.ownerID, d.ID())
	}
	return w.s.DeleteDateDependency(ctx, w.ownerID, d.ID())
}

// Dependencies returns the blocking edges and date gate that gate id.
func (e *Engine) Dependencies(id string) ([]model.Dependency, error) {
	snap := e.snap.Load()
	if !snap.Has(id) {
		return nil, graph.NotFoundError{Kind: "item", ID: id}
	}
	return snap.DependenciesOf(id), nil
}

// SetDependencies replaces the dependencies gating id with desired and
// returns the resulting set. Entries without an id are created; entries
// whose blocked or gated task is empty are bound to id.
func (e *Engine) SetDependencies(ctx context.Context, id string, desired []model.Dependency) ([]model.Dependency, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setDependenciesLocked(ctx, id, desired)
}

func (e *Engine) setDependenciesLocked(ctx context.Context, id string, desired []model.Dependency) ([]model.Dependency, error) {
	snap := e.snap.Load()
	if !snap.Has(id) {
		return nil, graph.NotFoundError{Kind: "item", ID: id}
	}
	current := snap.DependenciesOf(id)
	desired, err := normalizeDependencies(snap, id, current, desired)
	if err != nil {
		return nil, err
	}

	if graph.Diff(current, desired).IsNoop() {
		return current, nil
	}

	var result []model.Dependency
	err = e.run(ctx, "set-dependencies", func(ctx context.Context, s store.Store) error {
		var err error
		result, err = graph.Reconcile(ctx, storeWriter{s: s, ownerID: e.ownerID}, current, desired)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.snap.Store(replaceDependencies(snap, id, result))
	return result, nil
}

// normalizeDependencies binds desired entries to id and validates them.
// A non-empty id must name one of the current dependencies of id.
func normalizeDependencies(snap *graph.Snapshot, id string, current, desired []model.Dependency) ([]model.Dependency, error) {
	out := make([]model.Dependency, 0, len(desired))
	seen := make(map[string]bool)
	dates := 0

	known := make(map[model.DependencyKey]bool, len(current))
	for _, d := range current {
		known[d.Key()] = true
	}

	for _, d := range desired {
		if d.ID() != "" && !known[d.Key()] {
			return nil, graph.ValidationError{Field: "dependency", Reason: "unknown " + string(d.Kind) + " dependency id " + d.ID()}
		}
		switch d.Kind {
		case model.DependencyTask:
			if d.Task == nil {
				return nil, graph.ValidationError{Field: "dependency", Reason: "task dependency without data"}
			}
			dep := *d.Task
			if dep.BlockedTaskID == "" {
				dep.BlockedTaskID = id
			}
			if dep.BlockedTaskID != id {
				return nil, graph.ValidationError{Field: "dependency", Reason: "blocked task must be " + id}
			}
			if dep.BlockingTaskID == id {
				return nil, graph.ValidationError{Field: "dependency", Reason: "an item cannot block itself"}
			}
			if !snap.Has(dep.BlockingTaskID) {
				return nil, graph.NotFoundError{Kind: "blocking item", ID: dep.BlockingTaskID}
			}
			if seen[dep.BlockingTaskID] {
				return nil, graph.ValidationError{Field: "dependency", Reason: "duplicate blocker " + dep.BlockingTaskID}
			}
			seen[dep.BlockingTaskID] = true
			out = append(out, model.TaskDep(dep))

		case model.DependencyDate:
			if d.Date == nil {
				return nil, graph.ValidationError{Field: "dependency", Reason: "date dependency without data"}
			}
			dep := *d.Date
			if dep.TaskID == "" {
				dep.TaskID = id
			}
			if dep.TaskID != id {
				return nil, graph.ValidationError{Field: "dependency", Reason: "gated task must be " + id}
			}
			if dep.UnblockAt.IsZero() {
				return nil, graph.ValidationError{Field: "unblock_at", Reason: "must be set"}
			}
			dates++
			if dates > 1 {
				return nil, graph.ValidationError{Field: "dependency", Reason: "at most one date gate per item"}
			}
			out = append(out, model.DateDep(dep))

		default:
			return nil, graph.ValidationError{Field: "dependency", Reason: "unknown kind " + string(d.Kind)}
		}
	}
	return out, nil
}

// replaceDependencies swaps the dependencies gating id for result.
func replaceDependencies(snap *graph.Snapshot, id string, result []model.Dependency) *graph.Snapshot {
	var taskDeps []model.TaskDependency
	for _, d := range snap.TaskDependencies() {
		if d.BlockedTaskID != id {
			taskDeps = append(taskDeps, d)
		}
	}
	var dateDeps []model.DateDependency
	for _, d := range snap.DateDependencies() {
		if d.TaskID != id {
			dateDeps = append(dateDeps, d)
		}
	}
	for _, d := range result {
		switch d.Kind {
		case model.DependencyTask:
			taskDeps = append(taskDeps, *d.Task)
		case model.DependencyDate:
			dateDeps = append(dateDeps, *d.Date)
		}
	}
	return snap.WithDependencies(taskDeps, dateDeps)
}

// AddBlocker makes blockingID block id. Adding an existing edge is a no-op.
func (e *Engine) AddBlocker(ctx context.Context, id, blockingID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.snap.Load().DependenciesOf(id)
	for _, d := range current {
		if d.Kind == model.DependencyTask && d.Task.BlockingTaskID == blockingID {
			return nil
		}
	}
	desired := append(current, model.TaskDep(model.TaskDependency{
		BlockingTaskID: blockingID,
		BlockedTaskID:  id,
	}))
	_, err := e.setDependenciesLocked(ctx, id, desired)
	return err
}

// RemoveBlocker drops the edge from blockingID to id.
func (e *Engine) RemoveBlocker(ctx context.Context, id, blockingID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snap.Load()
	if !snap.Has(id) {
		return graph.NotFoundError{Kind: "item", ID: id}
	}
	var (
		desired []model.Dependency
		found   bool
	)
	for _, d := range snap.DependenciesOf(id) {
		if d.Kind == model.DependencyTask && d.Task.BlockingTaskID == blockingID {
			found = true
			continue
		}
		desired = append(desired, d)
	}
	if !found {
		return graph.NotFoundError{Kind: "dependency", ID: blockingID + " -> " + id}
	}
	_, err := e.setDependenciesLocked(ctx, id, desired)
	return err
}

// SetUnlockDate gates id until at, replacing any existing gate.
func (e *Engine) SetUnlockDate(ctx context.Context, id string, at time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var desired []model.Dependency
	gate := model.DateDependency{TaskID: id, UnblockAt: at}
	for _, d := range e.snap.Load().DependenciesOf(id) {
		if d.Kind == model.DependencyDate {
			gate.ID = d.Date.ID
			continue
		}
		desired = append(desired, d)
	}
	desired = append(desired, model.DateDep(gate))
	_, err := e.setDependenciesLocked(ctx, id, desired)
	return err
}

// ClearUnlockDate removes the date gate of id, if any.
func (e *Engine) ClearUnlockDate(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var desired []model.Dependency
	for _, d := range e.snap.Load().DependenciesOf(id) {
		if d.Kind != model.DependencyDate {
			desired = append(desired, d)
		}
	}
	_, err := e.setDependenciesLocked(ctx, id, desired)
	return err
}

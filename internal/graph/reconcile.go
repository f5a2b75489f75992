package graph

import (
	"context"
	"fmt"

	"github.com/nhle/taskgraph/internal/model"
)

// DependencyWriter persists individual dependency changes. Create returns
// the stored dependency carrying its storage-assigned id.
type DependencyWriter interface {
	CreateDependency(ctx context.Context, dep model.Dependency) (model.Dependency, error)
	UpdateDependency(ctx context.Context, dep model.Dependency) (model.Dependency, error)
	DeleteDependency(ctx context.Context, dep model.Dependency) error
}

// DependencyDiff classifies a desired dependency set against the current one.
type DependencyDiff struct {
	Unchanged []model.Dependency
	Update    []model.Dependency
	Create    []model.Dependency
	Delete    []model.Dependency
}

// IsNoop reports whether applying the diff writes nothing.
func (d DependencyDiff) IsNoop() bool {
	return len(d.Update) == 0 && len(d.Create) == 0 && len(d.Delete) == 0
}

// Diff matches desired against current by (kind, id). Desired entries
// without an id, or whose key is unknown, are new; current entries absent
// from desired are stale.
func Diff(current, desired []model.Dependency) DependencyDiff {
	byKey := make(map[model.DependencyKey]model.Dependency, len(current))
	for _, d := range current {
		byKey[d.Key()] = d
	}

	var diff DependencyDiff
	matched := make(map[model.DependencyKey]bool, len(desired))
	for _, want := range desired {
		key := want.Key()
		have, ok := byKey[key]
		if key.ID == "" || !ok || matched[key] {
			diff.Create = append(diff.Create, want)
			continue
		}
		matched[key] = true
		if have.SameFields(want) {
			diff.Unchanged = append(diff.Unchanged, have)
		} else {
			diff.Update = append(diff.Update, want)
		}
	}

	for _, d := range current {
		if !matched[d.Key()] {
			diff.Delete = append(diff.Delete, d)
		}
	}
	return diff
}

// Reconcile makes the stored dependency set equal desired and returns the
// resulting set: unchanged entries, storage-confirmed updates and created
// entries with their assigned ids. Stale entries are deleted first so that
// a replacement never collides with the row it supersedes.
//
// New entries reach the writer without an id; storage assigns one.
// Reconciling a set against itself writes nothing.
func Reconcile(
	ctx context.Context,
	w DependencyWriter,
	current, desired []model.Dependency,
) ([]model.Dependency, error) {
	diff := Diff(current, desired)

	for _, d := range diff.Delete {
		if err := w.DeleteDependency(ctx, d); err != nil {
			return nil, fmt.Errorf("deleting %s dependency %s: %w", d.Kind, d.ID(), err)
		}
	}

	out := append([]model.Dependency(nil), diff.Unchanged...)
	for _, d := range diff.Update {
		stored, err := w.UpdateDependency(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("updating %s dependency %s: %w", d.Kind, d.ID(), err)
		}
		out = append(out, stored)
	}
	for _, d := range diff.Create {
		stored, err := w.CreateDependency(ctx, d.WithoutID())
		if err != nil {
			return nil, fmt.Errorf("creating %s dependency: %w", d.Kind, err)
		}
		out = append(out, stored)
	}
	return out, nil
}

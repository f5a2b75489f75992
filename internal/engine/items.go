package engine

import (
	"context"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/store"
)

// DeleteOptions selects the delete strategy.
type DeleteOptions struct {
	// Cascade removes the whole subtree. Otherwise the item's children are
	// promoted to its parent.
	Cascade bool
}

// Create inserts a new item after its future siblings.
func (e *Engine) Create(ctx context.Context, draft model.ItemDraft) (model.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snap.Load()
	item, err := graph.PlanCreate(snap, draft)
	if err != nil {
		return model.Item{}, err
	}

	var created model.Item
	err = e.run(ctx, "create", func(ctx context.Context, s store.Store) error {
		created, err = s.InsertItem(ctx, e.ownerID, item)
		return err
	})
	if err != nil {
		return model.Item{}, err
	}

	e.snap.Store(snap.ReplaceItems(created))
	return created, nil
}

// Update applies a content patch. Completing a blocked item fails with a
// validation error.
func (e *Engine) Update(ctx context.Context, id string, patch model.ItemPatch) (model.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.updateLocked(ctx, id, patch)
}

// ToggleComplete flips the item's completion state. The current state is
// read under the write lock, so concurrent toggles never collapse.
func (e *Engine) ToggleComplete(ctx context.Context, id string) (model.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	it, ok := e.snap.Load().Item(id)
	if !ok {
		return model.Item{}, graph.NotFoundError{Kind: "item", ID: id}
	}
	return e.updateLocked(ctx, id, model.ItemPatch{Completed: model.BoolPtr(!it.Completed)})
}

func (e *Engine) updateLocked(ctx context.Context, id string, patch model.ItemPatch) (model.Item, error) {
	snap := e.snap.Load()
	plan, err := graph.PlanUpdate(snap, e.Resolver(), id, patch, e.now())
	if err != nil {
		return model.Item{}, err
	}
	if err := e.commit(ctx, snap, plan); err != nil {
		return model.Item{}, err
	}

	item, _ := e.snap.Load().Item(id)
	return item, nil
}

// Delete removes an item, either with its subtree or promoting its
// children. Dependencies touching removed items go with them.
func (e *Engine) Delete(ctx context.Context, id string, opts DeleteOptions) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snap.Load()
	var (
		plan graph.Plan
		err  error
	)
	if opts.Cascade {
		plan, err = graph.PlanDeleteCascade(snap, id)
	} else {
		plan, err = graph.PlanDeletePromote(snap, id)
	}
	if err != nil {
		return err
	}
	return e.commit(ctx, snap, plan)
}

// Move reparents and reorders an item. A nil parent moves it to the root
// level. The position is clamped into the destination group.
func (e *Engine) Move(ctx context.Context, id string, parentID *string, position int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moveLocked(ctx, id, parentID, position)
}

func (e *Engine) moveLocked(ctx context.Context, id string, parentID *string, position int) error {
	snap := e.snap.Load()
	plan, err := graph.PlanMove(snap, id, parentID, position)
	if err != nil {
		return err
	}
	return e.commit(ctx, snap, plan)
}

type targetFunc func(s *graph.Snapshot, id string) (*string, int, error)

func (e *Engine) moveTo(ctx context.Context, id string, target targetFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	parentID, pos, err := target(e.snap.Load(), id)
	if err != nil {
		return err
	}
	return e.moveLocked(ctx, id, parentID, pos)
}

// Indent makes the item the last child of its previous sibling.
func (e *Engine) Indent(ctx context.Context, id string) error {
	return e.moveTo(ctx, id, graph.IndentTarget)
}

// Outdent moves the item to just after its parent.
func (e *Engine) Outdent(ctx context.Context, id string) error {
	return e.moveTo(ctx, id, graph.OutdentTarget)
}

// MoveUp swaps the item with its previous sibling.
func (e *Engine) MoveUp(ctx context.Context, id string) error {
	return e.moveTo(ctx, id, func(s *graph.Snapshot, id string) (*string, int, error) {
		return graph.ShiftTarget(s, id, -1)
	})
}

// MoveDown swaps the item with its next sibling.
func (e *Engine) MoveDown(ctx context.Context, id string) error {
	return e.moveTo(ctx, id, func(s *graph.Snapshot, id string) (*string, int, error) {
		return graph.ShiftTarget(s, id, 1)
	})
}

// Repair renumbers every sibling group to contiguous positions and
// returns the number of rows rewritten.
func (e *Engine) Repair(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snap.Load()
	plan := graph.PlanNormalize(snap)
	if err := e.commit(ctx, snap, plan); err != nil {
		return 0, err
	}
	return len(plan.Updates), nil
}

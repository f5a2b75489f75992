package engine

import (
	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
)

// Item returns the item with id.
func (e *Engine) Item(id string) (model.Item, error) {
	it, ok := e.snap.Load().Item(id)
	if !ok {
		return model.Item{}, graph.NotFoundError{Kind: "item", ID: id}
	}
	return it, nil
}

// Entries returns the items matching pred in tree order.
func (e *Engine) Entries(pred graph.Predicate) []model.Item {
	return e.snap.Load().Entries(pred)
}

// Entry returns the first item matching pred.
func (e *Engine) Entry(pred graph.Predicate) (model.Item, bool) {
	return e.snap.Load().Entry(pred)
}

// ChildrenOf returns the children of parentID in position order.
func (e *Engine) ChildrenOf(parentID *string) []model.Item {
	return e.snap.Load().ChildrenOf(parentID)
}

// IsBlocked reports whether id is blocked now. Unknown ids are not.
func (e *Engine) IsBlocked(id string) bool {
	return e.Resolver().IsBlocked(e.snap.Load(), id)
}

// Report explains the blocked status of id.
func (e *Engine) Report(id string) (graph.BlockReport, error) {
	snap := e.snap.Load()
	if !snap.Has(id) {
		return graph.BlockReport{}, graph.NotFoundError{Kind: "item", ID: id}
	}
	return e.Resolver().Report(snap, id), nil
}

// EffectiveType returns the displayed type of id.
func (e *Engine) EffectiveType(id string) (model.ItemType, error) {
	return graph.EffectiveTypeOf(e.snap.Load(), id)
}

// Actionable returns the incomplete, unblocked items in tree order.
func (e *Engine) Actionable() []model.Item {
	return e.Resolver().Actionable(e.snap.Load())
}

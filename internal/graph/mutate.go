package graph

import (
	"strings"
	"time"

	"github.com/nhle/taskgraph/internal/model"
)

// PlanCreate validates a draft and returns the item to insert, appended
// after its future siblings.
func PlanCreate(s *Snapshot, draft model.ItemDraft) (model.Item, error) {
	if draft.ParentID != nil && !s.Has(*draft.ParentID) {
		return model.Item{}, NotFoundError{Kind: "parent", ID: *draft.ParentID}
	}
	if draft.Type != nil && !draft.Type.IsValid() {
		return model.Item{}, ValidationError{Field: "type", Reason: "unknown type " + string(*draft.Type)}
	}
	if draft.ManualType && draft.Type == nil {
		return model.Item{}, ValidationError{Field: "type", Reason: "manual type requires a type"}
	}

	pos := 0
	for _, id := range s.childIDs(keyOf(draft.ParentID)) {
		if p := s.items[id].Position + 1; p > pos {
			pos = p
		}
	}

	item := model.Item{
		Position:    pos,
		Title:       draft.Title,
		Description: draft.Description,
		ManualType:  draft.ManualType,
	}
	if draft.ParentID != nil {
		item.ParentID = model.StringPtr(*draft.ParentID)
	}
	if draft.ManualType {
		item.Type = model.TypePtr(*draft.Type)
	}
	return item, nil
}

// PlanUpdate validates a content patch against the snapshot.
//
// Completing an item that r reports as blocked is rejected. CompletedAt is
// set to now when Completed turns true and cleared when it turns false.
// Setting Type pins it manually; clearing ManualType drops the stored type.
func PlanUpdate(s *Snapshot, r Resolver, id string, patch model.ItemPatch, now time.Time) (Plan, error) {
	it, ok := s.items[id]
	if !ok {
		return Plan{}, NotFoundError{Kind: "item", ID: id}
	}

	b := newPlanBuilder("update")
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return Plan{}, ValidationError{Field: "title", Reason: "must not be empty"}
		}
		if *patch.Title != it.Title {
			title := *patch.Title
			b.update(id, func(u *model.ItemUpdate) { u.Title = &title })
		}
	}
	if patch.Description != nil && *patch.Description != it.Description {
		desc := *patch.Description
		b.update(id, func(u *model.ItemUpdate) { u.Description = &desc })
	}

	if patch.Completed != nil && *patch.Completed != it.Completed {
		if *patch.Completed && r.IsBlocked(s, id) {
			return Plan{}, ValidationError{Field: "completed", Reason: "item is blocked"}
		}
		completed := *patch.Completed
		var at *time.Time
		if completed {
			t := now.UTC()
			at = &t
		}
		b.update(id, func(u *model.ItemUpdate) {
			u.Completed = &completed
			u.CompletedAt = &at
		})
	}

	manual := it.ManualType
	if patch.ManualType != nil {
		manual = *patch.ManualType
	} else if patch.Type != nil {
		manual = true
	}
	if patch.Type != nil && !patch.Type.IsValid() {
		return Plan{}, ValidationError{Field: "type", Reason: "unknown type " + string(*patch.Type)}
	}

	switch {
	case manual && patch.Type != nil:
		if !it.ManualType || it.Type == nil || *it.Type != *patch.Type {
			t := model.TypePtr(*patch.Type)
			b.update(id, func(u *model.ItemUpdate) {
				u.Type = &t
				u.ManualType = model.BoolPtr(true)
			})
		}
	case manual && !it.ManualType:
		if it.Type == nil {
			return Plan{}, ValidationError{Field: "type", Reason: "manual type requires a type"}
		}
		b.update(id, func(u *model.ItemUpdate) { u.ManualType = model.BoolPtr(true) })
	case !manual && it.ManualType:
		var none *model.ItemType
		b.update(id, func(u *model.ItemUpdate) {
			u.Type = &none
			u.ManualType = model.BoolPtr(false)
		})
	}

	return b.build(), nil
}

// PlanMove reparents and/or reorders an item.
//
// newPosition is clamped into the destination sibling group. Moving under
// the item itself or one of its descendants is rejected before anything
// is planned.
func PlanMove(s *Snapshot, id string, newParentID *string, newPosition int) (Plan, error) {
	it, ok := s.items[id]
	if !ok {
		return Plan{}, NotFoundError{Kind: "item", ID: id}
	}
	if newParentID != nil {
		if *newParentID == id {
			return Plan{}, StructureError{Op: "move", ID: id, Reason: "an item cannot be its own parent"}
		}
		if !s.Has(*newParentID) {
			return Plan{}, NotFoundError{Kind: "parent", ID: *newParentID}
		}
		if s.IsDescendant(id, *newParentID) {
			return Plan{}, StructureError{Op: "move", ID: id, Reason: "target parent is a descendant"}
		}
	}

	b := newPlanBuilder("move")
	oldGroup := without(s.childIDs(it.ParentKey()), id)

	if model.SameParent(it.ParentID, newParentID) {
		pos := clamp(newPosition, 0, len(oldGroup))
		order := insertAt(oldGroup, pos, id)
		b.renumber(s, order)
		return b.build(), nil
	}

	newGroup := s.childIDs(keyOf(newParentID))
	pos := clamp(newPosition, 0, len(newGroup))

	b.renumber(s, oldGroup)
	b.setParent(id, newParentID)
	b.setPosition(id, pos)
	b.renumber(s, insertAt(newGroup, pos, id))
	return b.build(), nil
}

// PlanDeleteCascade removes an item, all of its descendants and every
// dependency touching any of them. The former siblings are renumbered.
func PlanDeleteCascade(s *Snapshot, id string) (Plan, error) {
	it, ok := s.items[id]
	if !ok {
		return Plan{}, NotFoundError{Kind: "item", ID: id}
	}

	b := newPlanBuilder("delete-cascade")
	removed := map[string]bool{id: true}
	b.plan.DeleteItems = append(b.plan.DeleteItems, id)
	for _, d := range s.DescendantsOf(id) {
		removed[d.ID] = true
		b.plan.DeleteItems = append(b.plan.DeleteItems, d.ID)
	}

	b.dropDependencies(s, removed)
	b.renumber(s, without(s.childIDs(it.ParentKey()), id))
	return b.build(), nil
}

// PlanDeletePromote removes a single item. Its children move to the
// item's parent, appended after the remaining siblings in their existing
// order. Only dependencies touching the removed item are dropped.
func PlanDeletePromote(s *Snapshot, id string) (Plan, error) {
	it, ok := s.items[id]
	if !ok {
		return Plan{}, NotFoundError{Kind: "item", ID: id}
	}

	b := newPlanBuilder("delete-promote")
	b.plan.DeleteItems = []string{id}
	b.dropDependencies(s, map[string]bool{id: true})

	kids := s.childIDs(id)
	for _, kid := range kids {
		b.setParent(kid, it.ParentID)
	}
	order := append(without(s.childIDs(it.ParentKey()), id), kids...)
	for i, sib := range order {
		if s.items[sib].Position != i || s.items[sib].ParentKey() == id {
			b.setPosition(sib, i)
		}
	}
	return b.build(), nil
}

// PlanNormalize renumbers every sibling group to 0..n-1, keeping the
// current relative order. It repairs data written by other tools.
func PlanNormalize(s *Snapshot) Plan {
	b := newPlanBuilder("normalize")
	for _, ids := range s.children {
		b.renumber(s, ids)
	}
	return b.build()
}

func (b *planBuilder) dropDependencies(s *Snapshot, removed map[string]bool) {
	for _, d := range s.taskDeps {
		if d.Touches(removed) {
			b.plan.DeleteTaskDeps = append(b.plan.DeleteTaskDeps, d.ID)
		}
	}
	for _, d := range s.dateDeps {
		if removed[d.TaskID] {
			b.plan.DeleteDateDeps = append(b.plan.DeleteDateDeps, d.ID)
		}
	}
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

func insertAt(ids []string, pos int, id string) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:pos]...)
	out = append(out, id)
	out = append(out, ids[pos:]...)
	return out
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

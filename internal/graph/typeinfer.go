package graph

import "github.com/nhle/taskgraph/internal/model"

// EffectiveType derives an item's semantic type from the tree shape.
//
// A manual override wins when set. Otherwise roots are ambitions, leaves
// are tasks, items whose children are all leaves are missions, and
// anything deeper is an objective. Sibling order never matters.
func EffectiveType(s *Snapshot, item model.Item) model.ItemType {
	if item.ManualType && item.Type != nil {
		return *item.Type
	}
	if item.ParentID == nil {
		return model.TypeAmbition
	}

	kids := s.childIDs(item.ID)
	if len(kids) == 0 {
		return model.TypeTask
	}
	for _, id := range kids {
		if s.HasChildren(id) {
			return model.TypeObjective
		}
	}
	return model.TypeMission
}

// EffectiveTypeOf resolves id against the snapshot.
func EffectiveTypeOf(s *Snapshot, id string) (model.ItemType, error) {
	it, ok := s.Item(id)
	if !ok {
		return "", NotFoundError{Kind: "item", ID: id}
	}
	return EffectiveType(s, it), nil
}

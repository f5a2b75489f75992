package graph

// Outline editing shortcuts. Each resolves to a PlanMove target.

// IndentTarget makes id the last child of its previous sibling.
func IndentTarget(s *Snapshot, id string) (parentID *string, position int, err error) {
	it, ok := s.items[id]
	if !ok {
		return nil, 0, NotFoundError{Kind: "item", ID: id}
	}
	sibs := s.childIDs(it.ParentKey())
	idx := indexOf(sibs, id)
	if idx <= 0 {
		return nil, 0, StructureError{Op: "indent", ID: id, Reason: "no previous sibling"}
	}
	prev := sibs[idx-1]
	return &prev, len(s.childIDs(prev)), nil
}

// OutdentTarget places id right after its parent.
func OutdentTarget(s *Snapshot, id string) (parentID *string, position int, err error) {
	it, ok := s.items[id]
	if !ok {
		return nil, 0, NotFoundError{Kind: "item", ID: id}
	}
	if it.ParentID == nil {
		return nil, 0, StructureError{Op: "outdent", ID: id, Reason: "already a root item"}
	}
	parent, ok := s.items[*it.ParentID]
	if !ok {
		return nil, 0, NotFoundError{Kind: "parent", ID: *it.ParentID}
	}
	var grand *string
	if parent.ParentID != nil {
		g := *parent.ParentID
		grand = &g
	}
	return grand, parent.Position + 1, nil
}

// ShiftTarget moves id delta places among its siblings.
func ShiftTarget(s *Snapshot, id string, delta int) (parentID *string, position int, err error) {
	it, ok := s.items[id]
	if !ok {
		return nil, 0, NotFoundError{Kind: "item", ID: id}
	}
	sibs := s.childIDs(it.ParentKey())
	pos := clamp(indexOf(sibs, id)+delta, 0, len(sibs)-1)
	var parent *string
	if it.ParentID != nil {
		p := *it.ParentID
		parent = &p
	}
	return parent, pos, nil
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

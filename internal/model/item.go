package model

import "time"

// ItemType is the semantic category of an item in the task forest.
type ItemType string

// Item type constants, ordered from leaf to root.
const (
	TypeTask      ItemType = "task"
	TypeMission   ItemType = "mission"
	TypeObjective ItemType = "objective"
	TypeAmbition  ItemType = "ambition"
)

// ValidItemTypes returns all valid item type values.
func ValidItemTypes() []ItemType {
	return []ItemType{TypeTask, TypeMission, TypeObjective, TypeAmbition}
}

// IsValid returns true if the type is a known valid value.
func (t ItemType) IsValid() bool {
	for _, valid := range ValidItemTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// Label returns the display label for the type.
func (t ItemType) Label() string {
	switch t {
	case TypeTask:
		return "Task"
	case TypeMission:
		return "Mission"
	case TypeObjective:
		return "Objective"
	case TypeAmbition:
		return "Ambition"
	default:
		return "Unknown"
	}
}

// Item is a node in the task forest.
type Item struct {
	ID      string `json:"id" db:"id"`
	OwnerID string `json:"owner_id" db:"owner_id"`

	// ParentID is nil for root items.
	ParentID *string `json:"parent_id,omitempty" db:"parent_id"`

	// Position orders the item among siblings sharing ParentID.
	// Positions within a sibling group are always 0..n-1.
	Position int `json:"position" db:"position"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`

	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	// Type is only authoritative when ManualType is set.
	Type       *ItemType `json:"type,omitempty" db:"type"`
	ManualType bool      `json:"manual_type" db:"manual_type"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsRoot reports whether the item has no parent.
func (i Item) IsRoot() bool { return i.ParentID == nil }

// HasParent reports whether the item's parent is id.
// A nil id matches root items.
func (i Item) HasParent(id *string) bool {
	return SameParent(i.ParentID, id)
}

// SameParent compares two nullable parent references.
func SameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ParentKey returns the parent id, or "" for roots.
func (i Item) ParentKey() string {
	if i.ParentID == nil {
		return ""
	}
	return *i.ParentID
}

// Clone returns a copy of the item whose pointer fields do not alias the original.
func (i Item) Clone() Item {
	c := i
	if i.ParentID != nil {
		c.ParentID = StringPtr(*i.ParentID)
	}
	if i.CompletedAt != nil {
		t := *i.CompletedAt
		c.CompletedAt = &t
	}
	if i.Type != nil {
		t := *i.Type
		c.Type = &t
	}
	return c
}

// ItemDraft is the caller-supplied part of a new item.
// The store assigns ID and timestamps; the engine assigns Position.
type ItemDraft struct {
	ParentID    *string
	Title       string
	Description string
	Type        *ItemType
	ManualType  bool
}

// ItemPatch is a partial update. Nil fields are left unchanged.
type ItemPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	Type        *ItemType
	ManualType  *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.Type == nil && p.ManualType == nil
}

// ItemUpdate is a row-level partial write issued to storage.
// It carries the full invariant-preserving delta for one row.
type ItemUpdate struct {
	ParentID    **string
	Position    *int
	Title       *string
	Description *string
	Completed   *bool
	CompletedAt **time.Time
	Type        **ItemType
	ManualType  *bool
}

// Apply returns a copy of item with the update applied.
func (u ItemUpdate) Apply(item Item) Item {
	out := item.Clone()
	if u.ParentID != nil {
		out.ParentID = *u.ParentID
	}
	if u.Position != nil {
		out.Position = *u.Position
	}
	if u.Title != nil {
		out.Title = *u.Title
	}
	if u.Description != nil {
		out.Description = *u.Description
	}
	if u.Completed != nil {
		out.Completed = *u.Completed
	}
	if u.CompletedAt != nil {
		out.CompletedAt = *u.CompletedAt
	}
	if u.Type != nil {
		out.Type = *u.Type
	}
	if u.ManualType != nil {
		out.ManualType = *u.ManualType
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// TypePtr returns a pointer to t.
func TypePtr(t ItemType) *ItemType { return &t }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }

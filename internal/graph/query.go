package graph

import (
	"strings"

	"github.com/nhle/taskgraph/internal/model"
)

// Predicate selects items.
type Predicate func(model.Item) bool

// All matches every item.
func All(model.Item) bool { return true }

// ByID matches a single id.
func ByID(id string) Predicate {
	return func(it model.Item) bool { return it.ID == id }
}

// ByParent matches children of parentID; nil matches roots.
func ByParent(parentID *string) Predicate {
	return func(it model.Item) bool { return it.HasParent(parentID) }
}

// ByCompleted matches on completion state.
func ByCompleted(completed bool) Predicate {
	return func(it model.Item) bool { return it.Completed == completed }
}

// ByTitle matches an exact title.
func ByTitle(title string) Predicate {
	return func(it model.Item) bool { return it.Title == title }
}

// TitleContains matches a case-insensitive substring of the title.
func TitleContains(sub string) Predicate {
	sub = strings.ToLower(sub)
	return func(it model.Item) bool {
		return strings.Contains(strings.ToLower(it.Title), sub)
	}
}

// And matches when every predicate matches.
func And(preds ...Predicate) Predicate {
	return func(it model.Item) bool {
		for _, p := range preds {
			if !p(it) {
				return false
			}
		}
		return true
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(it model.Item) bool { return !p(it) }
}

// Query is a structured equality filter. Nil fields are ignored; the
// zero Query matches everything.
type Query struct {
	ID        *string
	ParentID  **string
	Completed *bool
	Title     *string
}

// Predicate converts the query to a predicate.
func (q Query) Predicate() Predicate {
	var preds []Predicate
	if q.ID != nil {
		preds = append(preds, ByID(*q.ID))
	}
	if q.ParentID != nil {
		preds = append(preds, ByParent(*q.ParentID))
	}
	if q.Completed != nil {
		preds = append(preds, ByCompleted(*q.Completed))
	}
	if q.Title != nil {
		preds = append(preds, ByTitle(*q.Title))
	}
	return And(preds...)
}

// Entries returns every item matching pred, in tree order.
func (s *Snapshot) Entries(pred Predicate) []model.Item {
	if pred == nil {
		pred = All
	}
	var out []model.Item
	for _, it := range s.Items() {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

// Entry returns the first item in tree order matching pred.
func (s *Snapshot) Entry(pred Predicate) (model.Item, bool) {
	if pred == nil {
		pred = All
	}
	for _, it := range s.Items() {
		if pred(it) {
			return it, true
		}
	}
	return model.Item{}, false
}

// Package itemref resolves user-typed item references.
package itemref

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
)

// MinPrefix is the shortest id prefix accepted as a reference.
const MinPrefix = 4

// Resolve finds the item ref names. A ref is an exact id, a unique id
// prefix of at least MinPrefix characters, or a unique exact title.
func Resolve(snap *graph.Snapshot, ref string) (model.Item, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Item{}, fmt.Errorf("empty item reference")
	}
	if it, ok := snap.Item(ref); ok {
		return it, nil
	}

	if len(ref) >= MinPrefix {
		matches := snap.Entries(func(it model.Item) bool {
			return strings.HasPrefix(it.ID, ref)
		})
		switch len(matches) {
		case 1:
			return matches[0], nil
		case 0:
		default:
			return model.Item{}, ambiguous(ref, matches)
		}
	}

	matches := snap.Entries(graph.ByTitle(ref))
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return model.Item{}, graph.NotFoundError{Kind: "item", ID: ref}
	default:
		return model.Item{}, ambiguous(ref, matches)
	}
}

func ambiguous(ref string, matches []model.Item) error {
	ids := make([]string, len(matches))
	for i, it := range matches {
		ids[i] = ShortID(it.ID)
	}
	sort.Strings(ids)
	return fmt.Errorf("%q is ambiguous: matches %s", ref, strings.Join(ids, ", "))
}

// ShortID abbreviates an id for display.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// TypePatch parses a type argument. "auto" clears a pinned type so it is
// derived from the tree again.
func TypePatch(arg string) (model.ItemPatch, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "auto" {
		return model.ItemPatch{ManualType: model.BoolPtr(false)}, nil
	}
	t := model.ItemType(arg)
	if !t.IsValid() {
		return model.ItemPatch{}, graph.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q (want task, mission, objective, ambition or auto)", arg)}
	}
	return model.ItemPatch{Type: model.TypePtr(t)}, nil
}

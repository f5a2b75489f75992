package tasklist

import (
	"strings"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
)

// Options controls which items BuildRows shows.
type Options struct {
	ShowCompleted  bool
	ActionableOnly bool

	// Query keeps items whose title contains it, case-insensitively.
	Query string

	// Collapsed hides the children of the listed item ids.
	Collapsed map[string]bool
}

// BuildRows flattens the forest into tree-ordered rows with tree-drawing
// prefixes (├─, └─, │). Items hidden by opts still appear when one of
// their descendants is shown, so every row keeps its ancestry.
func BuildRows(snap *graph.Snapshot, r graph.Resolver, opts Options) []Row {
	blocked := r.Evaluate(snap)
	query := strings.ToLower(strings.TrimSpace(opts.Query))

	matches := func(it model.Item) bool {
		if !opts.ShowCompleted && it.Completed {
			return false
		}
		if opts.ActionableOnly && (it.Completed || blocked[it.ID] || snap.HasChildren(it.ID)) {
			return false
		}
		if query != "" && !strings.Contains(strings.ToLower(it.Title), query) {
			return false
		}
		return true
	}

	// Post-order pass: an item is visible if it matches or any descendant does.
	visible := make(map[string]bool)
	var mark func(parentID *string) bool
	mark = func(parentID *string) bool {
		found := false
		for _, it := range snap.ChildrenOf(parentID) {
			id := it.ID
			kids := mark(&id)
			if kids || matches(it) {
				visible[id] = true
				found = true
			}
		}
		return found
	}
	mark(nil)

	var rows []Row
	var dfs func(parentID *string, ancestors []bool)
	dfs = func(parentID *string, ancestors []bool) {
		var kids []model.Item
		for _, it := range snap.ChildrenOf(parentID) {
			if visible[it.ID] {
				kids = append(kids, it)
			}
		}
		for idx, it := range kids {
			isLast := idx == len(kids)-1
			row := Row{
				Item:        it,
				Depth:       len(ancestors),
				Prefix:      treePrefix(ancestors, isLast, parentID != nil),
				Type:        graph.EffectiveType(snap, it),
				Blocked:     blocked[it.ID],
				HasChildren: snap.HasChildren(it.ID),
				Collapsed:   opts.Collapsed[it.ID],
				Dimmed:      !matches(it),
			}
			if gate, ok := snap.DateGateOf(it.ID); ok && !it.Completed {
				at := gate.UnblockAt
				row.UnlockAt = &at
			}
			rows = append(rows, row)

			if row.Collapsed {
				continue
			}
			next := make([]bool, len(ancestors), len(ancestors)+1)
			copy(next, ancestors)
			id := it.ID
			dfs(&id, append(next, !isLast))
		}
	}
	dfs(nil, nil)
	return rows
}

// treePrefix draws the connectors for a row. ancestors[i] reports whether
// the row's ancestor at depth i has a later sibling. Roots draw no
// connector, so depth 0 never contributes a guide.
func treePrefix(ancestors []bool, isLast, nested bool) string {
	if !nested {
		return ""
	}
	var b strings.Builder
	for _, hasSibling := range ancestors[1:] {
		if hasSibling {
			b.WriteString("│  ")
		} else {
			b.WriteString("   ")
		}
	}
	if isLast {
		b.WriteString("└─ ")
	} else {
		b.WriteString("├─ ")
	}
	return b.String()
}

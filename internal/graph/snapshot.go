// Package graph implements the task graph engine's pure core: an immutable
// snapshot of the task forest and its dependencies, type inference, the
// blocking resolver, structural mutation planners and the dependency
// reconciler.
//
// Nothing in this package performs I/O. Mutations are expressed as a Plan
// of row writes which the engine persists before adopting Plan.Apply's
// resulting snapshot.
package graph

import (
	"fmt"
	"sort"

	"github.com/nhle/taskgraph/internal/model"
)

// rootKey indexes the sibling group of root items.
const rootKey = ""

// Snapshot is an immutable view of one owner's task forest.
// Methods never modify the receiver; a mutation produces a new Snapshot.
type Snapshot struct {
	items    map[string]model.Item
	children map[string][]string
	taskDeps []model.TaskDependency
	dateDeps []model.DateDependency
}

// NewSnapshot builds a snapshot and its parent-to-children index.
// The inputs are copied.
func NewSnapshot(
	items []model.Item,
	taskDeps []model.TaskDependency,
	dateDeps []model.DateDependency,
) *Snapshot {
	s := &Snapshot{
		items:    make(map[string]model.Item, len(items)),
		children: make(map[string][]string),
		taskDeps: append([]model.TaskDependency(nil), taskDeps...),
		dateDeps: append([]model.DateDependency(nil), dateDeps...),
	}
	for _, it := range items {
		s.items[it.ID] = it.Clone()
	}
	for _, it := range s.items {
		k := it.ParentKey()
		s.children[k] = append(s.children[k], it.ID)
	}
	for k, ids := range s.children {
		sort.Slice(ids, func(i, j int) bool {
			return s.lessSibling(s.items[ids[i]], s.items[ids[j]])
		})
		s.children[k] = ids
	}
	return s
}

// Empty returns a snapshot with no items.
func Empty() *Snapshot {
	return NewSnapshot(nil, nil, nil)
}

func (s *Snapshot) lessSibling(a, b model.Item) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// Len returns the number of items.
func (s *Snapshot) Len() int { return len(s.items) }

// Item looks up an item by id.
func (s *Snapshot) Item(id string) (model.Item, bool) {
	it, ok := s.items[id]
	if !ok {
		return model.Item{}, false
	}
	return it.Clone(), true
}

// Has reports whether id exists.
func (s *Snapshot) Has(id string) bool {
	_, ok := s.items[id]
	return ok
}

// Items returns every item in depth-first tree order. Items unreachable
// from a root (orphans whose parent is missing) follow, sorted by id.
func (s *Snapshot) Items() []model.Item {
	out := make([]model.Item, 0, len(s.items))
	reached := make(map[string]bool, len(s.items))
	s.Walk(func(it model.Item, _ int) bool {
		out = append(out, it)
		reached[it.ID] = true
		return true
	})
	if len(out) == len(s.items) {
		return out
	}

	var orphans []string
	for id := range s.items {
		if !reached[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		out = append(out, s.items[id].Clone())
	}
	return out
}

// Walk visits items depth-first in sibling order, passing each item's
// depth (0 for roots). Returning false from fn skips the item's subtree.
func (s *Snapshot) Walk(fn func(item model.Item, depth int) bool) {
	var visit func(key string, depth int)
	visit = func(key string, depth int) {
		for _, id := range s.children[key] {
			if fn(s.items[id].Clone(), depth) {
				visit(id, depth+1)
			}
		}
	}
	visit(rootKey, 0)
}

func keyOf(parentID *string) string {
	if parentID == nil {
		return rootKey
	}
	return *parentID
}

// ChildrenOf returns the children of parentID sorted by position.
// A nil parentID returns the root items.
func (s *Snapshot) ChildrenOf(parentID *string) []model.Item {
	ids := s.children[keyOf(parentID)]
	out := make([]model.Item, len(ids))
	for i, id := range ids {
		out[i] = s.items[id].Clone()
	}
	return out
}

// childIDs returns the sibling-ordered child ids of key without copying items.
func (s *Snapshot) childIDs(key string) []string {
	return s.children[key]
}

// HasChildren reports whether id has at least one child.
func (s *Snapshot) HasChildren(id string) bool {
	return len(s.children[id]) > 0
}

// AncestorsOf returns the ancestors of id from the root down to its parent.
// The walk stops at the first missing link; that is not an error.
func (s *Snapshot) AncestorsOf(id string) []model.Item {
	var chain []model.Item
	seen := map[string]bool{id: true}

	cur, ok := s.items[id]
	for ok && cur.ParentID != nil {
		pid := *cur.ParentID
		if seen[pid] {
			break
		}
		seen[pid] = true
		cur, ok = s.items[pid]
		if !ok {
			break
		}
		chain = append(chain, cur.Clone())
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// DescendantsOf returns every transitive child of id in breadth-first order.
// id itself is not included.
func (s *Snapshot) DescendantsOf(id string) []model.Item {
	var out []model.Item
	queue := append([]string(nil), s.children[id]...)
	seen := map[string]bool{id: true}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, s.items[next].Clone())
		queue = append(queue, s.children[next]...)
	}
	return out
}

// IsDescendant reports whether candidate lies in the subtree rooted at id
// (excluding id itself).
func (s *Snapshot) IsDescendant(id, candidate string) bool {
	for _, anc := range s.AncestorsOf(candidate) {
		if anc.ID == id {
			return true
		}
	}
	return false
}

// Depth returns the number of ancestors of id.
func (s *Snapshot) Depth(id string) int {
	return len(s.AncestorsOf(id))
}

// TaskDependencies returns all blocking edges.
func (s *Snapshot) TaskDependencies() []model.TaskDependency {
	return append([]model.TaskDependency(nil), s.taskDeps...)
}

// DateDependencies returns all date gates.
func (s *Snapshot) DateDependencies() []model.DateDependency {
	return append([]model.DateDependency(nil), s.dateDeps...)
}

// BlockersOf returns the edges whose blocked end is id.
func (s *Snapshot) BlockersOf(id string) []model.TaskDependency {
	var out []model.TaskDependency
	for _, d := range s.taskDeps {
		if d.BlockedTaskID == id {
			out = append(out, d)
		}
	}
	return out
}

// BlockedBy returns the edges whose blocking end is id.
func (s *Snapshot) BlockedBy(id string) []model.TaskDependency {
	var out []model.TaskDependency
	for _, d := range s.taskDeps {
		if d.BlockingTaskID == id {
			out = append(out, d)
		}
	}
	return out
}

// DateGateOf returns the live date gate of id. If storage ever returned
// more than one, the most recently created wins.
func (s *Snapshot) DateGateOf(id string) (model.DateDependency, bool) {
	var (
		gate  model.DateDependency
		found bool
	)
	for _, d := range s.dateDeps {
		if d.TaskID != id {
			continue
		}
		if !found || d.CreatedAt.After(gate.CreatedAt) {
			gate = d
			found = true
		}
	}
	return gate, found
}

// DependenciesOf returns the dependencies that gate id: its incoming
// blocking edges and its date gate.
func (s *Snapshot) DependenciesOf(id string) []model.Dependency {
	var out []model.Dependency
	for _, d := range s.BlockersOf(id) {
		out = append(out, model.TaskDep(d))
	}
	if gate, ok := s.DateGateOf(id); ok {
		out = append(out, model.DateDep(gate))
	}
	return out
}

// Validate checks the structural invariants: contiguous sibling positions,
// existing parents, an acyclic parent graph, and dependency endpoints that
// exist. It returns the first violation found.
func (s *Snapshot) Validate() error {
	for key, ids := range s.children {
		if key != rootKey {
			if _, ok := s.items[key]; !ok {
				return fmt.Errorf("items %v reference missing parent %s", ids, key)
			}
		}
		for i, id := range ids {
			if s.items[id].Position != i {
				return fmt.Errorf("sibling group %q: %s at position %d, want %d",
					key, id, s.items[id].Position, i)
			}
		}
	}
	for id := range s.items {
		if s.hasParentCycle(id) {
			return fmt.Errorf("item %s is its own ancestor", id)
		}
	}
	for _, d := range s.taskDeps {
		if !s.Has(d.BlockingTaskID) || !s.Has(d.BlockedTaskID) {
			return fmt.Errorf("task dependency %s has a missing endpoint", d.ID)
		}
	}
	for _, d := range s.dateDeps {
		if !s.Has(d.TaskID) {
			return fmt.Errorf("date dependency %s has a missing task", d.ID)
		}
	}
	return nil
}

func (s *Snapshot) hasParentCycle(id string) bool {
	seen := map[string]bool{}
	cur, ok := s.items[id]
	for ok && cur.ParentID != nil {
		if seen[cur.ID] {
			return true
		}
		seen[cur.ID] = true
		cur, ok = s.items[*cur.ParentID]
	}
	return false
}

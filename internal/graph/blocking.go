package graph

import (
	"time"

	"github.com/nhle/taskgraph/internal/model"
)

// Resolver computes blocked status. The zero value uses time.Now.
type Resolver struct {
	Now func() time.Time
}

func (r Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// BlockReport explains why an item is or is not blocked.
type BlockReport struct {
	ID      string
	Blocked bool

	// DateGate is set when a future unlock date blocks the item.
	DateGate *model.DateDependency

	// Blockers lists the ids of existing, incomplete blocking items.
	Blockers []string

	// ChildrenBlocked is set when the item has children and all of them
	// are blocked.
	ChildrenBlocked bool
}

// IsBlocked reports whether the item is blocked. Unknown ids and completed
// items are never blocked.
func (r Resolver) IsBlocked(s *Snapshot, id string) bool {
	ev := r.evaluator(s)
	return ev.blocked(id)
}

// Report computes the full gate breakdown for id.
func (r Resolver) Report(s *Snapshot, id string) BlockReport {
	ev := r.evaluator(s)
	rep := BlockReport{ID: id}

	it, ok := s.items[id]
	if !ok || it.Completed {
		return rep
	}

	if gate, ok := s.DateGateOf(id); ok && gate.UnblockAt.After(ev.now) {
		g := gate
		rep.DateGate = &g
	}
	rep.Blockers = ev.incompleteBlockers(id)

	kids := s.childIDs(id)
	if len(kids) > 0 {
		rep.ChildrenBlocked = true
		for _, kid := range kids {
			if !ev.blocked(kid) {
				rep.ChildrenBlocked = false
				break
			}
		}
	}

	rep.Blocked = rep.DateGate != nil || len(rep.Blockers) > 0 || rep.ChildrenBlocked
	return rep
}

// Evaluate computes blocked status for every item in one pass.
func (r Resolver) Evaluate(s *Snapshot) map[string]bool {
	ev := r.evaluator(s)
	out := make(map[string]bool, len(s.items))
	for id := range s.items {
		out[id] = ev.blocked(id)
	}
	return out
}

// Actionable returns the incomplete, unblocked items in tree order.
func (r Resolver) Actionable(s *Snapshot) []model.Item {
	ev := r.evaluator(s)
	return s.Entries(func(it model.Item) bool {
		return !it.Completed && !ev.blocked(it.ID)
	})
}

type evaluator struct {
	snap *Snapshot
	now  time.Time
	memo map[string]bool

	// visiting guards the recursion against a corrupt, cyclic parent graph.
	visiting map[string]bool

	// edges indexes blocking edges by blocked id.
	edges map[string][]string
}

func (r Resolver) evaluator(s *Snapshot) *evaluator {
	edges := make(map[string][]string)
	for _, d := range s.taskDeps {
		edges[d.BlockedTaskID] = append(edges[d.BlockedTaskID], d.BlockingTaskID)
	}
	return &evaluator{
		snap:     s,
		now:      r.now(),
		memo:     make(map[string]bool),
		visiting: make(map[string]bool),
		edges:    edges,
	}
}

func (ev *evaluator) incompleteBlockers(id string) []string {
	var out []string
	for _, blocking := range ev.edges[id] {
		it, ok := ev.snap.items[blocking]
		if ok && !it.Completed {
			out = append(out, blocking)
		}
	}
	return out
}

func (ev *evaluator) blocked(id string) bool {
	if v, ok := ev.memo[id]; ok {
		return v
	}
	if ev.visiting[id] {
		return false
	}

	it, ok := ev.snap.items[id]
	if !ok || it.Completed {
		ev.memo[id] = false
		return false
	}

	ev.visiting[id] = true
	defer delete(ev.visiting, id)

	v := ev.gated(id)
	ev.memo[id] = v
	return v
}

func (ev *evaluator) gated(id string) bool {
	if gate, ok := ev.snap.DateGateOf(id); ok && gate.UnblockAt.After(ev.now) {
		return true
	}
	if len(ev.incompleteBlockers(id)) > 0 {
		return true
	}

	kids := ev.snap.childIDs(id)
	if len(kids) == 0 {
		return false
	}
	for _, kid := range kids {
		if !ev.blocked(kid) {
			return false
		}
	}
	return true
}

package graph

import (
	"github.com/nhle/taskgraph/internal/model"
)

// RowUpdate is one partial item write.
type RowUpdate struct {
	ID     string
	Update model.ItemUpdate
}

// Plan is the complete set of row writes realising one logical mutation.
// Storage must apply it as a unit: deletes of dependencies first, then
// item updates, then item deletes.
type Plan struct {
	Op string

	Updates        []RowUpdate
	DeleteItems    []string
	DeleteTaskDeps []string
	DeleteDateDeps []string
}

// IsEmpty reports whether the plan writes nothing.
func (p Plan) IsEmpty() bool {
	return len(p.Updates) == 0 && len(p.DeleteItems) == 0 &&
		len(p.DeleteTaskDeps) == 0 && len(p.DeleteDateDeps) == 0
}

// Writes returns the number of storage calls the plan needs.
// Item deletes are a single batched call.
func (p Plan) Writes() int {
	n := len(p.Updates) + len(p.DeleteTaskDeps) + len(p.DeleteDateDeps)
	if len(p.DeleteItems) > 0 {
		n++
	}
	return n
}

// Apply returns the snapshot that results from the plan. s is unchanged.
func (p Plan) Apply(s *Snapshot) *Snapshot {
	deleted := make(map[string]bool, len(p.DeleteItems))
	for _, id := range p.DeleteItems {
		deleted[id] = true
	}
	updates := make(map[string]model.ItemUpdate, len(p.Updates))
	for _, u := range p.Updates {
		updates[u.ID] = u.Update
	}

	items := make([]model.Item, 0, len(s.items))
	for id, it := range s.items {
		if deleted[id] {
			continue
		}
		if u, ok := updates[id]; ok {
			it = u.Apply(it)
		}
		items = append(items, it)
	}

	dropTask := toSet(p.DeleteTaskDeps)
	var taskDeps []model.TaskDependency
	for _, d := range s.taskDeps {
		if !dropTask[d.ID] && !d.Touches(deleted) {
			taskDeps = append(taskDeps, d)
		}
	}

	dropDate := toSet(p.DeleteDateDeps)
	var dateDeps []model.DateDependency
	for _, d := range s.dateDeps {
		if !dropDate[d.ID] && !deleted[d.TaskID] {
			dateDeps = append(dateDeps, d)
		}
	}

	return NewSnapshot(items, taskDeps, dateDeps)
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// ReplaceItems returns a snapshot with the given items inserted or
// overwritten by id.
func (s *Snapshot) ReplaceItems(items ...model.Item) *Snapshot {
	merged := make(map[string]model.Item, len(s.items)+len(items))
	for id, it := range s.items {
		merged[id] = it
	}
	for _, it := range items {
		merged[it.ID] = it
	}
	all := make([]model.Item, 0, len(merged))
	for _, it := range merged {
		all = append(all, it)
	}
	return NewSnapshot(all, s.taskDeps, s.dateDeps)
}

// WithDependencies returns a snapshot with the dependency collections
// replaced.
func (s *Snapshot) WithDependencies(
	taskDeps []model.TaskDependency,
	dateDeps []model.DateDependency,
) *Snapshot {
	items := make([]model.Item, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, it)
	}
	return NewSnapshot(items, taskDeps, dateDeps)
}

// planBuilder accumulates row updates, merging repeated writes to one row.
type planBuilder struct {
	plan  Plan
	index map[string]int
}

func newPlanBuilder(op string) *planBuilder {
	return &planBuilder{plan: Plan{Op: op}, index: make(map[string]int)}
}

func (b *planBuilder) update(id string, fn func(u *model.ItemUpdate)) {
	i, ok := b.index[id]
	if !ok {
		i = len(b.plan.Updates)
		b.index[id] = i
		b.plan.Updates = append(b.plan.Updates, RowUpdate{ID: id})
	}
	fn(&b.plan.Updates[i].Update)
}

func (b *planBuilder) setPosition(id string, pos int) {
	b.update(id, func(u *model.ItemUpdate) { u.Position = model.IntPtr(pos) })
}

func (b *planBuilder) setParent(id string, parentID *string) {
	var p *string
	if parentID != nil {
		p = model.StringPtr(*parentID)
	}
	b.update(id, func(u *model.ItemUpdate) { u.ParentID = &p })
}

// renumber assigns positions 0..n-1 following order, writing only the
// rows whose position changes.
func (b *planBuilder) renumber(s *Snapshot, order []string) {
	for i, id := range order {
		if s.items[id].Position != i {
			b.setPosition(id, i)
		}
	}
}

func (b *planBuilder) build() Plan { return b.plan }

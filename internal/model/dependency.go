package model

import "time"

// TaskDependency is a directed blocking edge: BlockingTaskID must be
// completed before BlockedTaskID is actionable.
type TaskDependency struct {
	ID             string    `json:"id" db:"id"`
	OwnerID        string    `json:"owner_id" db:"owner_id"`
	BlockingTaskID string    `json:"blocking_task_id" db:"blocking_task_id"`
	BlockedTaskID  string    `json:"blocked_task_id" db:"blocked_task_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Touches reports whether either endpoint of the edge is in ids.
func (d TaskDependency) Touches(ids map[string]bool) bool {
	return ids[d.BlockingTaskID] || ids[d.BlockedTaskID]
}

// DateDependency gates a task until UnblockAt.
// At most one live date dependency exists per task.
type DateDependency struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	UnblockAt time.Time `json:"unblock_at" db:"unblock_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DependencyKind discriminates the Dependency union.
type DependencyKind string

// Dependency kind constants.
const (
	DependencyTask DependencyKind = "task"
	DependencyDate DependencyKind = "date"
)

// Dependency is either a task or a date dependency.
// Exactly one of Task and Date is set, matching Kind.
type Dependency struct {
	Kind DependencyKind  `json:"kind"`
	Task *TaskDependency `json:"task,omitempty"`
	Date *DateDependency `json:"date,omitempty"`
}

// DependencyKey identifies a dependency within a reconciled set.
type DependencyKey struct {
	Kind DependencyKind
	ID   string
}

// TaskDep wraps a task dependency.
func TaskDep(d TaskDependency) Dependency {
	return Dependency{Kind: DependencyTask, Task: &d}
}

// DateDep wraps a date dependency.
func DateDep(d DateDependency) Dependency {
	return Dependency{Kind: DependencyDate, Date: &d}
}

// ID returns the storage id of the wrapped dependency.
func (d Dependency) ID() string {
	switch d.Kind {
	case DependencyTask:
		if d.Task != nil {
			return d.Task.ID
		}
	case DependencyDate:
		if d.Date != nil {
			return d.Date.ID
		}
	}
	return ""
}

// WithoutID returns a copy of d with the storage id cleared.
func (d Dependency) WithoutID() Dependency {
	switch {
	case d.Kind == DependencyTask && d.Task != nil:
		c := *d.Task
		c.ID = ""
		return TaskDep(c)
	case d.Kind == DependencyDate && d.Date != nil:
		c := *d.Date
		c.ID = ""
		return DateDep(c)
	}
	return d
}

// Key returns the (kind, id) pair.
func (d Dependency) Key() DependencyKey {
	return DependencyKey{Kind: d.Kind, ID: d.ID()}
}

// SameFields reports whether the mutable fields of d and other match.
// Ids, owners and creation times are not compared.
func (d Dependency) SameFields(other Dependency) bool {
	if d.Kind != other.Kind {
		return false
	}
	switch d.Kind {
	case DependencyTask:
		if d.Task == nil || other.Task == nil {
			return d.Task == other.Task
		}
		return d.Task.BlockingTaskID == other.Task.BlockingTaskID &&
			d.Task.BlockedTaskID == other.Task.BlockedTaskID
	case DependencyDate:
		if d.Date == nil || other.Date == nil {
			return d.Date == other.Date
		}
		return d.Date.TaskID == other.Date.TaskID &&
			d.Date.UnblockAt.Equal(other.Date.UnblockAt)
	}
	return false
}

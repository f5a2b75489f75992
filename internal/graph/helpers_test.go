package graph

import (
	"testing"
	"time"

	"github.com/nhle/taskgraph/internal/model"
)

const time24h = 24 * time.Hour

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedResolver() Resolver {
	return Resolver{Now: func() time.Time { return testNow }}
}

// node builds an item titled after its id. An empty parent makes a root.
func node(id, parent string, pos int) model.Item {
	it := model.Item{ID: id, Title: id, Position: pos}
	if parent != "" {
		it.ParentID = model.StringPtr(parent)
	}
	return it
}

func blocks(id, blocking, blocked string) model.TaskDependency {
	return model.TaskDependency{ID: id, BlockingTaskID: blocking, BlockedTaskID: blocked}
}

func gate(id, task string, at time.Time) model.DateDependency {
	return model.DateDependency{ID: id, TaskID: task, UnblockAt: at}
}

func mustValid(t *testing.T, s *Snapshot) {
	t.Helper()
	if err := s.Validate(); err != nil {
		t.Fatalf("snapshot invalid: %v", err)
	}
}

func childIDList(s *Snapshot, parent string) []string {
	var p *string
	if parent != "" {
		p = &parent
	}
	var ids []string
	for _, it := range s.ChildrenOf(p) {
		ids = append(ids, it.ID)
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

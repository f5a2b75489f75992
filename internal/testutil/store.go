package testutil

import (
	"context"
	"testing"

	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// MustInsertItem inserts item for ownerID and fails the test on error.
func MustInsertItem(t *testing.T, s store.Store, ownerID string, item model.Item) model.Item {
	t.Helper()

	out, err := s.InsertItem(context.Background(), ownerID, item)
	if err != nil {
		t.Fatalf("inserting item %q: %v", item.Title, err)
	}
	return out
}

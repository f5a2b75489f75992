package store

import (
	"context"
	"errors"

	"github.com/nhle/taskgraph/internal/model"
)

// ErrNotFound is returned when a row addressed by id does not exist
// for the owner.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract consumed by the task graph engine.
// Every call is scoped to a single owner; implementations must never read
// or write another owner's rows.
type Store interface {
	// === Items ===

	ListItems(ctx context.Context, ownerID string) ([]model.Item, error)
	// InsertItem persists a new item. The store assigns ID and timestamps.
	InsertItem(ctx context.Context, ownerID string, item model.Item) (model.Item, error)
	UpdateItem(ctx context.Context, ownerID, id string, update model.ItemUpdate) (model.Item, error)
	DeleteItems(ctx context.Context, ownerID string, ids []string) error

	// === Task dependencies ===

	ListTaskDependencies(ctx context.Context, ownerID string) ([]model.TaskDependency, error)
	InsertTaskDependency(ctx context.Context, ownerID string, dep model.TaskDependency) (model.TaskDependency, error)
	UpdateTaskDependency(ctx context.Context, ownerID string, dep model.TaskDependency) (model.TaskDependency, error)
	DeleteTaskDependency(ctx context.Context, ownerID, id string) error

	// === Date dependencies ===

	ListDateDependencies(ctx context.Context, ownerID string) ([]model.DateDependency, error)
	InsertDateDependency(ctx context.Context, ownerID string, dep model.DateDependency) (model.DateDependency, error)
	UpdateDateDependency(ctx context.Context, ownerID string, dep model.DateDependency) (model.DateDependency, error)
	DeleteDateDependency(ctx context.Context, ownerID, id string) error
}

// Transactor is implemented by stores that can run a batch of calls
// atomically. fn receives a Store bound to the transaction; if fn returns
// an error nothing it wrote is kept.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

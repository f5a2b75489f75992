package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/store"
)

// ErrInjected is returned by FaultStore once its write budget is spent.
var ErrInjected = errors.New("injected storage failure")

// FaultStore wraps a Store and fails every write after the first
// failAfter successful writes. Reads always pass through.
// It does not implement store.Transactor, so callers see the partially
// applied writes that precede the failure. See FaultTxStore for the
// transactional variant.
type FaultStore struct {
	store.Store
	budget *writeBudget
}

type writeBudget struct {
	mu        sync.Mutex
	failAfter int
	writes    int
}

// NewFaultStore wraps inner, failing writes after failAfter successes.
// A negative failAfter never fails.
func NewFaultStore(inner store.Store, failAfter int) *FaultStore {
	return &FaultStore{Store: inner, budget: &writeBudget{failAfter: failAfter}}
}

// Writes returns the number of writes attempted so far.
func (f *FaultStore) Writes() int {
	f.budget.mu.Lock()
	defer f.budget.mu.Unlock()
	return f.budget.writes
}

func (f *FaultStore) write() error {
	b := f.budget
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	if b.failAfter >= 0 && b.writes > b.failAfter {
		return ErrInjected
	}
	return nil
}

// FaultTxStore is a FaultStore whose batches run inside the inner store's
// transactions, so an injected failure rolls back the whole batch.
type FaultTxStore struct {
	*FaultStore
	tx store.Transactor
}

// NewFaultTxStore wraps inner like NewFaultStore but keeps its
// transactions.
func NewFaultTxStore(inner *store.SQLiteStore, failAfter int) *FaultTxStore {
	return &FaultTxStore{FaultStore: NewFaultStore(inner, failAfter), tx: inner}
}

// InTx runs fn in a transaction of the inner store. Writes made through
// the transaction share this store's write budget.
func (f *FaultTxStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	return f.tx.InTx(ctx, func(s store.Store) error {
		return fn(&FaultStore{Store: s, budget: f.budget})
	})
}

func (f *FaultStore) InsertItem(ctx context.Context, ownerID string, item model.Item) (model.Item, error) {
	if err := f.write(); err != nil {
		return model.Item{}, err
	}
	return f.Store.InsertItem(ctx, ownerID, item)
}

func (f *FaultStore) UpdateItem(ctx context.Context, ownerID, id string, update model.ItemUpdate) (model.Item, error) {
	if err := f.write(); err != nil {
		return model.Item{}, err
	}
	return f.Store.UpdateItem(ctx, ownerID, id, update)
}

func (f *FaultStore) DeleteItems(ctx context.Context, ownerID string, ids []string) error {
	if err := f.write(); err != nil {
		return err
	}
	return f.Store.DeleteItems(ctx, ownerID, ids)
}

func (f *FaultStore) InsertTaskDependency(ctx context.Context, ownerID string, dep model.TaskDependency) (model.TaskDependency, error) {
	if err := f.write(); err != nil {
		return model.TaskDependency{}, err
	}
	return f.Store.InsertTaskDependency(ctx, ownerID, dep)
}

func (f *FaultStore) UpdateTaskDependency(ctx context.Context, ownerID string, dep model.TaskDependency) (model.TaskDependency, error) {
	if err := f.write(); err != nil {
		return model.TaskDependency{}, err
	}
	return f.Store.UpdateTaskDependency(ctx, ownerID, dep)
}

func (f *FaultStore) DeleteTaskDependency(ctx context.Context, ownerID, id string) error {
	if err := f.write(); err != nil {
		return err
	}
	return f.Store.DeleteTaskDependency(ctx, ownerID, id)
}

func (f *FaultStore) InsertDateDependency(ctx context.Context, ownerID string, dep model.DateDependency) (model.DateDependency, error) {
	if err := f.write(); err != nil {
		return model.DateDependency{}, err
	}
	return f.Store.InsertDateDependency(ctx, ownerID, dep)
}

func (f *FaultStore) UpdateDateDependency(ctx context.Context, ownerID string, dep model.DateDependency) (model.DateDependency, error) {
	if err := f.write(); err != nil {
		return model.DateDependency{}, err
	}
	return f.Store.UpdateDateDependency(ctx, ownerID, dep)
}

func (f *FaultStore) DeleteDateDependency(ctx context.Context, ownerID, id string) error {
	if err := f.write(); err != nil {
		return err
	}
	return f.Store.DeleteDateDependency(ctx, ownerID, id)
}

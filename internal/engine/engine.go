// Package engine is the stateful boundary around the task graph core.
//
// An Engine owns the authoritative snapshot for one owner. Mutations are
// planned against the current snapshot, persisted through the store as a
// single batch and only then adopted. Reads never block and always see a
// consistent snapshot.
package engine

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/store"
)

// DefaultStorageTimeout bounds a single batch of storage calls.
const DefaultStorageTimeout = 10 * time.Second

// Engine maintains one owner's task forest.
type Engine struct {
	store   store.Store
	ownerID string

	// mu serialises writers. Readers load snap without locking.
	mu   sync.Mutex
	snap atomic.Pointer[graph.Snapshot]

	now     func() time.Time
	logger  *log.Logger
	timeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides time.Now for completion stamps and date gates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger used for storage failures.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStorageTimeout bounds each batch of storage calls. Zero disables the
// bound.
func WithStorageTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New creates an engine with an empty snapshot. Call Populate to load
// the owner's data.
func New(s store.Store, ownerID string, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		ownerID: ownerID,
		now:     time.Now,
		logger:  log.New(io.Discard, "", 0),
		timeout: DefaultStorageTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.snap.Store(graph.Empty())
	return e
}

// OwnerID returns the owner whose data the engine manages.
func (e *Engine) OwnerID() string { return e.ownerID }

// Resolver returns the blocking resolver bound to the engine's clock.
func (e *Engine) Resolver() graph.Resolver {
	return graph.Resolver{Now: e.now}
}

// Populate replaces the snapshot with the owner's stored data.
func (e *Engine) Populate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := e.storageContext(ctx)
	defer cancel()

	items, err := e.store.ListItems(ctx, e.ownerID)
	if err != nil {
		return e.storageErr("populate", err)
	}
	taskDeps, err := e.store.ListTaskDependencies(ctx, e.ownerID)
	if err != nil {
		return e.storageErr("populate", err)
	}
	dateDeps, err := e.store.ListDateDependencies(ctx, e.ownerID)
	if err != nil {
		return e.storageErr("populate", err)
	}

	snap := graph.NewSnapshot(items, taskDeps, dateDeps)
	if err := snap.Validate(); err != nil {
		e.logger.Printf("engine: loaded data needs repair: %v", err)
	}
	e.snap.Store(snap)
	return nil
}

// Snapshot returns the current snapshot. It is immutable and safe to
// retain.
func (e *Engine) Snapshot() *graph.Snapshot {
	return e.snap.Load()
}

func (e *Engine) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

func (e *Engine) storageErr(op string, err error) error {
	e.logger.Printf("engine: %s failed, snapshot unchanged: %v", op, err)
	return &graph.StorageError{Op: op, Err: err}
}

// run executes fn as one logical transaction. When the store supports
// transactions fn runs inside one; otherwise a failure may leave earlier
// writes in storage, but the snapshot is never advanced.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, s store.Store) error) error {
	ctx, cancel := e.storageContext(ctx)
	defer cancel()

	var err error
	if tx, ok := e.store.(store.Transactor); ok {
		err = tx.InTx(ctx, func(s store.Store) error { return fn(ctx, s) })
	} else {
		err = fn(ctx, e.store)
	}
	if err != nil {
		return e.storageErr(op, err)
	}
	return nil
}

// execute persists plan and returns the snapshot to adopt.
func (e *Engine) execute(ctx context.Context, snap *graph.Snapshot, plan graph.Plan) (*graph.Snapshot, error) {
	if plan.IsEmpty() {
		return snap, nil
	}

	var confirmed []model.Item
	err := e.run(ctx, plan.Op, func(ctx context.Context, s store.Store) error {
		confirmed = confirmed[:0]
		for _, id := range plan.DeleteTaskDeps {
			if err := s.DeleteTaskDependency(ctx, e.ownerID, id); err != nil {
				return err
			}
		}
		for _, id := range plan.DeleteDateDeps {
			if err := s.DeleteDateDependency(ctx, e.ownerID, id); err != nil {
				return err
			}
		}
		for _, u := range plan.Updates {
			it, err := s.UpdateItem(ctx, e.ownerID, u.ID, u.Update)
			if err != nil {
				return err
			}
			confirmed = append(confirmed, it)
		}
		if len(plan.DeleteItems) > 0 {
			return s.DeleteItems(ctx, e.ownerID, plan.DeleteItems)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Printf("engine: %s applied %d writes", plan.Op, plan.Writes())
	return plan.Apply(snap).ReplaceItems(confirmed...), nil
}

// commit runs plan against the current snapshot and adopts the result.
// Callers hold e.mu.
func (e *Engine) commit(ctx context.Context, snap *graph.Snapshot, plan graph.Plan) error {
	next, err := e.execute(ctx, snap, plan)
	if err != nil {
		return err
	}
	e.snap.Store(next)
	return nil
}

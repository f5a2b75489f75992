package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskgraph/internal/model"
)

// ListTaskDependencies returns every blocking edge owned by ownerID.
func (s *SQLiteStore) ListTaskDependencies(
	ctx context.Context,
	ownerID string,
) ([]model.TaskDependency, error) {
	var deps []model.TaskDependency
	err := sqlx.SelectContext(ctx, s.ext, &deps, `
		SELECT id, owner_id, blocking_task_id, blocked_task_id, created_at
		FROM task_dependencies
		WHERE owner_id = ?
		ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying task dependencies: %w", err)
	}
	return deps, nil
}

// InsertTaskDependency creates a blocking edge. Generates a UUID if ID is empty.
func (s *SQLiteStore) InsertTaskDependency(
	ctx context.Context,
	ownerID string,
	dep model.TaskDependency,
) (model.TaskDependency, error) {
	if dep.ID == "" {
		dep.ID = uuid.New().String()
	}
	dep.OwnerID = ownerID
	dep.CreatedAt = time.Now().UTC()

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO task_dependencies (id, owner_id, blocking_task_id, blocked_task_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		dep.ID, dep.OwnerID, dep.BlockingTaskID, dep.BlockedTaskID, dep.CreatedAt,
	)
	if err != nil {
		return model.TaskDependency{}, fmt.Errorf("creating task dependency: %w", err)
	}
	return dep, nil
}

// UpdateTaskDependency rewrites the endpoints of an existing edge.
func (s *SQLiteStore) UpdateTaskDependency(
	ctx context.Context,
	ownerID string,
	dep model.TaskDependency,
) (model.TaskDependency, error) {
	res, err := s.ext.ExecContext(ctx, `
		UPDATE task_dependencies SET blocking_task_id = ?, blocked_task_id = ?
		WHERE owner_id = ? AND id = ?`,
		dep.BlockingTaskID, dep.BlockedTaskID, ownerID, dep.ID,
	)
	if err != nil {
		return model.TaskDependency{}, fmt.Errorf("updating task dependency %s: %w", dep.ID, err)
	}
	if err := checkAffected(res, "task dependency", dep.ID); err != nil {
		return model.TaskDependency{}, err
	}

	var out model.TaskDependency
	err = sqlx.GetContext(ctx, s.ext, &out, `
		SELECT id, owner_id, blocking_task_id, blocked_task_id, created_at
		FROM task_dependencies WHERE owner_id = ? AND id = ?`, ownerID, dep.ID)
	if err != nil {
		return model.TaskDependency{}, fmt.Errorf("reading task dependency %s: %w", dep.ID, err)
	}
	return out, nil
}

// DeleteTaskDependency removes a blocking edge by ID.
func (s *SQLiteStore) DeleteTaskDependency(ctx context.Context, ownerID, id string) error {
	res, err := s.ext.ExecContext(ctx,
		"DELETE FROM task_dependencies WHERE owner_id = ? AND id = ?", ownerID, id)
	if err != nil {
		return fmt.Errorf("deleting task dependency %s: %w", id, err)
	}
	return checkAffected(res, "task dependency", id)
}

// ListDateDependencies returns every date gate owned by ownerID.
func (s *SQLiteStore) ListDateDependencies(
	ctx context.Context,
	ownerID string,
) ([]model.DateDependency, error) {
	var deps []model.DateDependency
	err := sqlx.SelectContext(ctx, s.ext, &deps, `
		SELECT id, owner_id, task_id, unblock_at, created_at
		FROM date_dependencies
		WHERE owner_id = ?
		ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying date dependencies: %w", err)
	}
	return deps, nil
}

// InsertDateDependency creates a date gate, superseding any existing gate
// on the same task.
func (s *SQLiteStore) InsertDateDependency(
	ctx context.Context,
	ownerID string,
	dep model.DateDependency,
) (model.DateDependency, error) {
	if dep.ID == "" {
		dep.ID = uuid.New().String()
	}
	dep.OwnerID = ownerID
	dep.CreatedAt = time.Now().UTC()
	dep.UnblockAt = dep.UnblockAt.UTC()

	if _, err := s.ext.ExecContext(ctx,
		"DELETE FROM date_dependencies WHERE owner_id = ? AND task_id = ?",
		ownerID, dep.TaskID,
	); err != nil {
		return model.DateDependency{}, fmt.Errorf("superseding date dependency for %s: %w", dep.TaskID, err)
	}

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO date_dependencies (id, owner_id, task_id, unblock_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		dep.ID, dep.OwnerID, dep.TaskID, dep.UnblockAt, dep.CreatedAt,
	)
	if err != nil {
		return model.DateDependency{}, fmt.Errorf("creating date dependency: %w", err)
	}
	return dep, nil
}

// UpdateDateDependency moves an existing gate to a new task or time.
func (s *SQLiteStore) UpdateDateDependency(
	ctx context.Context,
	ownerID string,
	dep model.DateDependency,
) (model.DateDependency, error) {
	res, err := s.ext.ExecContext(ctx, `
		UPDATE date_dependencies SET task_id = ?, unblock_at = ?
		WHERE owner_id = ? AND id = ?`,
		dep.TaskID, dep.UnblockAt.UTC(), ownerID, dep.ID,
	)
	if err != nil {
		return model.DateDependency{}, fmt.Errorf("updating date dependency %s: %w", dep.ID, err)
	}
	if err := checkAffected(res, "date dependency", dep.ID); err != nil {
		return model.DateDependency{}, err
	}

	var out model.DateDependency
	err = sqlx.GetContext(ctx, s.ext, &out, `
		SELECT id, owner_id, task_id, unblock_at, created_at
		FROM date_dependencies WHERE owner_id = ? AND id = ?`, ownerID, dep.ID)
	if err != nil {
		return model.DateDependency{}, fmt.Errorf("reading date dependency %s: %w", dep.ID, err)
	}
	return out, nil
}

// DeleteDateDependency removes a date gate by ID.
func (s *SQLiteStore) DeleteDateDependency(ctx context.Context, ownerID, id string) error {
	res, err := s.ext.ExecContext(ctx,
		"DELETE FROM date_dependencies WHERE owner_id = ? AND id = ?", ownerID, id)
	if err != nil {
		return fmt.Errorf("deleting date dependency %s: %w", id, err)
	}
	return checkAffected(res, "date dependency", id)
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/taskgraph/internal/model"
)

const itemColumns = `id, owner_id, parent_id, position, title, description,
	completed, completed_at, type, manual_type, created_at, updated_at`

// itemRow mirrors the items table.
type itemRow struct {
	ID          string         `db:"id"`
	OwnerID     string         `db:"owner_id"`
	ParentID    sql.NullString `db:"parent_id"`
	Position    int            `db:"position"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Completed   int            `db:"completed"`
	CompletedAt *time.Time     `db:"completed_at"`
	Type        sql.NullString `db:"type"`
	ManualType  int            `db:"manual_type"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r itemRow) toModel() model.Item {
	item := model.Item{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Position:    r.Position,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed != 0,
		CompletedAt: r.CompletedAt,
		ManualType:  r.ManualType != 0,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.ParentID.Valid {
		item.ParentID = model.StringPtr(r.ParentID.String)
	}
	if r.Type.Valid {
		item.Type = model.TypePtr(model.ItemType(r.Type.String))
	}
	return item
}

func nullableType(t *model.ItemType) any {
	if t == nil {
		return nil
	}
	return string(*t)
}

// ListItems returns every item owned by ownerID, ordered by parent and position.
func (s *SQLiteStore) ListItems(ctx context.Context, ownerID string) ([]model.Item, error) {
	var rows []itemRow
	err := sqlx.SelectContext(ctx, s.ext, &rows,
		"SELECT "+itemColumns+" FROM items WHERE owner_id = ? ORDER BY parent_id, position",
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}

	items := make([]model.Item, len(rows))
	for i, r := range rows {
		items[i] = r.toModel()
	}
	return items, nil
}

// getItem reads a single item scoped to ownerID.
func (s *SQLiteStore) getItem(ctx context.Context, ownerID, id string) (model.Item, error) {
	var row itemRow
	err := sqlx.GetContext(ctx, s.ext, &row,
		"SELECT "+itemColumns+" FROM items WHERE owner_id = ? AND id = ?",
		ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("getting item %s: %w", id, err)
	}
	return row.toModel(), nil
}

// InsertItem inserts a new item. Generates a UUID if ID is empty.
func (s *SQLiteStore) InsertItem(
	ctx context.Context,
	ownerID string,
	item model.Item,
) (model.Item, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	item.OwnerID = ownerID
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Completed && item.CompletedAt == nil {
		item.CompletedAt = &now
	}

	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO items (
			id, owner_id, parent_id, position, title, description,
			completed, completed_at, type, manual_type, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.ParentID, item.Position, item.Title, item.Description,
		boolToInt(item.Completed), item.CompletedAt, nullableType(item.Type),
		boolToInt(item.ManualType), item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return model.Item{}, fmt.Errorf("inserting item: %w", err)
	}
	return item, nil
}

// UpdateItem applies a partial update to one item and returns the stored row.
func (s *SQLiteStore) UpdateItem(
	ctx context.Context,
	ownerID, id string,
	update model.ItemUpdate,
) (model.Item, error) {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if update.ParentID != nil {
		set("parent_id", *update.ParentID)
	}
	if update.Position != nil {
		set("position", *update.Position)
	}
	if update.Title != nil {
		set("title", *update.Title)
	}
	if update.Description != nil {
		set("description", *update.Description)
	}
	if update.Completed != nil {
		set("completed", boolToInt(*update.Completed))
	}
	if update.CompletedAt != nil {
		set("completed_at", *update.CompletedAt)
	}
	if update.Type != nil {
		set("type", nullableType(*update.Type))
	}
	if update.ManualType != nil {
		set("manual_type", boolToInt(*update.ManualType))
	}
	set("updated_at", time.Now().UTC())

	args = append(args, ownerID, id)
	res, err := s.ext.ExecContext(ctx,
		"UPDATE items SET "+strings.Join(sets, ", ")+" WHERE owner_id = ? AND id = ?",
		args...)
	if err != nil {
		return model.Item{}, fmt.Errorf("updating item %s: %w", id, err)
	}
	if err := checkAffected(res, "item", id); err != nil {
		return model.Item{}, err
	}

	return s.getItem(ctx, ownerID, id)
}

// DeleteItems removes the given items. Missing ids are an error so that a
// stale caller snapshot is detected rather than silently ignored.
func (s *SQLiteStore) DeleteItems(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	// Count first: rows removed by the parent_id cascade are not reported
	// by RowsAffected.
	countQuery, args, err := sqlx.In("SELECT COUNT(*) FROM items WHERE owner_id = ? AND id IN (?)", ownerID, ids)
	if err != nil {
		return fmt.Errorf("building count query: %w", err)
	}
	var existing int
	if err := sqlx.GetContext(ctx, s.ext, &existing, s.ext.Rebind(countQuery), args...); err != nil {
		return fmt.Errorf("counting items: %w", err)
	}
	if existing != len(ids) {
		return fmt.Errorf("found %d of %d items to delete: %w", existing, len(ids), ErrNotFound)
	}

	query, args, err := sqlx.In("DELETE FROM items WHERE owner_id = ? AND id IN (?)", ownerID, ids)
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}
	if _, err := s.ext.ExecContext(ctx, s.ext.Rebind(query), args...); err != nil {
		return fmt.Errorf("deleting items: %w", err)
	}
	return nil
}

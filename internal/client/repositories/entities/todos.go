package entities

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/common"
	"github.com/dmitrijs2005/daykeeper/internal/dbx"

	"database/sql"
)

// SQLiteTodoRepository implements TodoRepository using a DBTX (either
// *sql.DB or *sql.Tx).
type SQLiteTodoRepository struct {
	db dbx.DBTX
}

// NewSQLiteTodoRepository returns a new SQLiteTodoRepository bound to the
// given DBTX.
func NewSQLiteTodoRepository(db dbx.DBTX) *SQLiteTodoRepository {
	return &SQLiteTodoRepository{db: db}
}

// Upsert inserts or replaces a todo by id.
func (r *SQLiteTodoRepository) Upsert(ctx context.Context, t *models.Todo) error {
	query := `INSERT INTO todos (id, user_id, title, notes, due_date, done, deleted, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			notes = excluded.notes,
			due_date = excluded.due_date,
			done = excluded.done,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, t.Title, t.Notes, toNullMillis(t.DueDate), t.Done,
		t.IsDeleted, toMillis(t.UpdatedAt), toNullMillis(t.SyncedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert todo: %w", err)
	}
	return nil
}

// GetByID returns a todo by id, including tombstones.
func (r *SQLiteTodoRepository) GetByID(ctx context.Context, id string) (*models.Todo, error) {
	query := `SELECT id, user_id, title, notes, due_date, done, deleted, updated_at, synced_at
		FROM todos WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)

	t, err := scanTodo(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select todo: %w", err)
	}
	return t, nil
}

// ListByUser lists all non-deleted todos of the user.
func (r *SQLiteTodoRepository) ListByUser(ctx context.Context, userID string) ([]models.Todo, error) {
	query := `SELECT id, user_id, title, notes, due_date, done, deleted, updated_at, synced_at
		FROM todos WHERE user_id = ? AND deleted = 0 ORDER BY updated_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select todos: %w", err)
	}
	defer rows.Close()

	var result []models.Todo
	for rows.Next() {
		t, err := scanTodo(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SoftDelete marks a todo as a tombstone and bumps updated_at.
func (r *SQLiteTodoRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE todos SET deleted = 1, updated_at = ?, synced_at = NULL WHERE id = ?`,
		toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// MarkSynced stamps synced_at after a remote acknowledgment.
func (r *SQLiteTodoRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE todos SET synced_at = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark todo synced: %w", err)
	}
	return nil
}

// Purge physically removes a row. Only valid once the remote side has
// acknowledged the deletion.
func (r *SQLiteTodoRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to purge todo: %w", err)
	}
	return nil
}

func scanTodo(scan func(dest ...any) error) (*models.Todo, error) {
	var t models.Todo
	var due, synced sql.NullInt64
	var updated int64
	if err := scan(&t.ID, &t.UserID, &t.Title, &t.Notes, &due, &t.Done, &t.IsDeleted, &updated, &synced); err != nil {
		return nil, err
	}
	t.DueDate = fromNullMillis(due)
	t.UpdatedAt = fromMillis(updated)
	t.SyncedAt = fromNullMillis(synced)
	return &t, nil
}

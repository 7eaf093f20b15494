package entities

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/common"
	"github.com/dmitrijs2005/daykeeper/internal/dbx"
)

// SQLiteExpenseRepository implements ExpenseRepository using a DBTX.
type SQLiteExpenseRepository struct {
	db dbx.DBTX
}

// NewSQLiteExpenseRepository returns a new SQLiteExpenseRepository bound to
// the given DBTX.
func NewSQLiteExpenseRepository(db dbx.DBTX) *SQLiteExpenseRepository {
	return &SQLiteExpenseRepository{db: db}
}

// Upsert inserts or replaces an expense by id.
func (r *SQLiteExpenseRepository) Upsert(ctx context.Context, e *models.Expense) error {
	query := `INSERT INTO expenses (id, user_id, amount_cents, category, date, note, deleted, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			category = excluded.category,
			date = excluded.date,
			note = excluded.note,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.AmountCents, e.Category, toMillis(e.Date), e.Note,
		e.IsDeleted, toMillis(e.UpdatedAt), toNullMillis(e.SyncedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert expense: %w", err)
	}
	return nil
}

// GetByID returns an expense by id, including tombstones.
func (r *SQLiteExpenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	query := `SELECT id, user_id, amount_cents, category, date, note, deleted, updated_at, synced_at
		FROM expenses WHERE id = ?`

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select expense: %w", err)
	}
	return e, nil
}

// ListByUser lists all non-deleted expenses of the user, newest first.
func (r *SQLiteExpenseRepository) ListByUser(ctx context.Context, userID string) ([]models.Expense, error) {
	query := `SELECT id, user_id, amount_cents, category, date, note, deleted, updated_at, synced_at
		FROM expenses WHERE user_id = ? AND deleted = 0 ORDER BY date DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select expenses: %w", err)
	}
	defer rows.Close()

	var result []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SoftDelete marks an expense as a tombstone and bumps updated_at.
func (r *SQLiteExpenseRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET deleted = 1, updated_at = ?, synced_at = NULL WHERE id = ?`,
		toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// MarkSynced stamps synced_at after a remote acknowledgment.
func (r *SQLiteExpenseRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE expenses SET synced_at = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark expense synced: %w", err)
	}
	return nil
}

// Purge physically removes a row. Only valid once the remote side has
// acknowledged the deletion.
func (r *SQLiteExpenseRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to purge expense: %w", err)
	}
	return nil
}

func scanExpense(scan func(dest ...any) error) (*models.Expense, error) {
	var e models.Expense
	var date, updated int64
	var synced sql.NullInt64
	if err := scan(&e.ID, &e.UserID, &e.AmountCents, &e.Category, &date, &e.Note, &e.IsDeleted, &updated, &synced); err != nil {
		return nil, err
	}
	e.Date = fromMillis(date)
	e.UpdatedAt = fromMillis(updated)
	e.SyncedAt = fromNullMillis(synced)
	return &e, nil
}

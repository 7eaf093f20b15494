package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/common"
	"github.com/dmitrijs2005/daykeeper/internal/dbx"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or
// *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// MergeOps resolves the operation of a consolidated queue entry.
//
//	create + update -> create (with the latest payload)
//	anything + delete -> delete
//	update + update -> update (latest payload wins)
func MergeOps(queued, incoming models.Operation) models.Operation {
	if incoming == models.OpDelete {
		return models.OpDelete
	}
	if queued == models.OpCreate {
		return models.OpCreate
	}
	return incoming
}

// Enqueue inserts or consolidates the pending change for the entity.
func (r *SQLiteRepository) Enqueue(ctx context.Context, entityType models.EntityType, entityID string, op models.Operation, payload json.RawMessage, now time.Time) error {
	existing, err := r.GetPending(ctx, entityType, entityID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}

	if existing != nil {
		merged := MergeOps(existing.Op, op)
		// enqueued_at is left untouched: a replaced entry keeps its original
		// queue position.
		_, err := r.db.ExecContext(ctx,
			`UPDATE outbox SET op = ?, payload = ? WHERE id = ?`,
			string(merged), []byte(payload), existing.ID)
		if err != nil {
			return fmt.Errorf("failed to consolidate queued change: %w", err)
		}
		return nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO outbox (id, entity_type, entity_id, op, payload, enqueued_at, retry_count, next_attempt_at, state)
		 VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?)`,
		uuid.NewString(), string(entityType), entityID, string(op), []byte(payload),
		now.UTC().UnixMilli(), string(models.ChangePending))
	if err != nil {
		return fmt.Errorf("failed to enqueue change: %w", err)
	}
	return nil
}

const changeColumns = `id, entity_type, entity_id, op, payload, enqueued_at, retry_count, state, last_error`

// Drain returns due pending changes in original enqueue order.
func (r *SQLiteRepository) Drain(ctx context.Context, now time.Time) ([]models.Change, error) {
	query := `SELECT ` + changeColumns + ` FROM outbox
		WHERE state = ? AND next_attempt_at <= ?
		ORDER BY enqueued_at, rowid`

	rows, err := r.db.QueryContext(ctx, query, string(models.ChangePending), now.UTC().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to drain outbox: %w", err)
	}
	defer rows.Close()

	return collectChanges(rows)
}

// MarkSucceeded removes the acknowledged entry.
func (r *SQLiteRepository) MarkSucceeded(ctx context.Context, changeID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, changeID)
	if err != nil {
		return fmt.Errorf("failed to remove acknowledged change: %w", err)
	}
	return nil
}

// MarkFailed increments the retry counter and schedules the next attempt.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, changeID string, nextAttempt time.Time, cause string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET retry_count = retry_count + 1, next_attempt_at = ?, last_error = ? WHERE id = ?`,
		nextAttempt.UTC().UnixMilli(), cause, changeID)
	if err != nil {
		return fmt.Errorf("failed to mark change failed: %w", err)
	}
	return nil
}

// MarkDead moves an entry to the dead-letter state.
func (r *SQLiteRepository) MarkDead(ctx context.Context, changeID string, cause string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox SET state = ?, last_error = ? WHERE id = ?`,
		string(models.ChangeDead), cause, changeID)
	if err != nil {
		return fmt.Errorf("failed to dead-letter change: %w", err)
	}
	return nil
}

// GetPending returns the pending entry for the entity.
func (r *SQLiteRepository) GetPending(ctx context.Context, entityType models.EntityType, entityID string) (*models.Change, error) {
	query := `SELECT ` + changeColumns + ` FROM outbox
		WHERE entity_type = ? AND entity_id = ? AND state = ?`

	row := r.db.QueryRowContext(ctx, query, string(entityType), entityID, string(models.ChangePending))
	c, err := scanChange(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select queued change: %w", err)
	}
	return c, nil
}

// DeadLetters lists dead entries, oldest first.
func (r *SQLiteRepository) DeadLetters(ctx context.Context) ([]models.Change, error) {
	query := `SELECT ` + changeColumns + ` FROM outbox
		WHERE state = ? ORDER BY enqueued_at, rowid`

	rows, err := r.db.QueryContext(ctx, query, string(models.ChangeDead))
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer rows.Close()

	return collectChanges(rows)
}

// CountPending returns the number of pending entries.
func (r *SQLiteRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox WHERE state = ?`, string(models.ChangePending)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending changes: %w", err)
	}
	return n, nil
}

func collectChanges(rows *sql.Rows) ([]models.Change, error) {
	var result []models.Change
	for rows.Next() {
		c, err := scanChange(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanChange(scan func(dest ...any) error) (*models.Change, error) {
	var c models.Change
	var entityType, op, state string
	var payload []byte
	var enqueued int64
	if err := scan(&c.ID, &entityType, &c.EntityID, &op, &payload, &enqueued, &c.RetryCount, &state, &c.LastError); err != nil {
		return nil, err
	}
	c.EntityType = models.EntityType(entityType)
	c.Op = models.Operation(op)
	c.Payload = json.RawMessage(payload)
	c.EnqueuedAt = time.UnixMilli(enqueued).UTC()
	c.State = models.ChangeState(state)
	return &c, nil
}

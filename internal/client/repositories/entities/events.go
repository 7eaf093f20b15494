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

// SQLiteEventRepository implements EventRepository using a DBTX.
type SQLiteEventRepository struct {
	db dbx.DBTX
}

// NewSQLiteEventRepository returns a new SQLiteEventRepository bound to the
// given DBTX.
func NewSQLiteEventRepository(db dbx.DBTX) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

const eventColumns = `id, user_id, title, description, start_time, end_time, all_day,
	color, source, external_calendar_id, external_event_id, deleted, updated_at, synced_at`

// Upsert inserts or replaces an event by id. The end >= start invariant is
// validated here so no write path can bypass it.
func (r *SQLiteEventRepository) Upsert(ctx context.Context, e *models.CalendarEvent) error {
	if e.EndTime.Before(e.StartTime) {
		return common.ErrInvalidTimeRange
	}

	query := `INSERT INTO events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			all_day = excluded.all_day,
			color = excluded.color,
			source = excluded.source,
			external_calendar_id = excluded.external_calendar_id,
			external_event_id = excluded.external_event_id,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Title, e.Description, toMillis(e.StartTime), toMillis(e.EndTime),
		e.AllDay, e.Color, string(e.Source), e.ExternalCalendarID, e.ExternalEventID,
		e.IsDeleted, toMillis(e.UpdatedAt), toNullMillis(e.SyncedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}
	return nil
}

// GetByID returns an event by id, including tombstones.
func (r *SQLiteEventRepository) GetByID(ctx context.Context, id string) (*models.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

	e, err := scanEvent(r.db.QueryRowContext(ctx, query, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select event: %w", err)
	}
	return e, nil
}

// ListByUser lists all non-deleted events of the user ordered by start time.
func (r *SQLiteEventRepository) ListByUser(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE user_id = ? AND deleted = 0 ORDER BY start_time`

	return r.queryEvents(ctx, query, userID)
}

// FindByDateRange returns non-deleted events intersecting [start, end] using
// the symmetric interval test: eventStart <= end AND eventEnd >= start.
func (r *SQLiteEventRepository) FindByDateRange(ctx context.Context, userID string, start, end time.Time) ([]models.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE user_id = ? AND deleted = 0 AND start_time <= ? AND end_time >= ?
		ORDER BY start_time`

	return r.queryEvents(ctx, query, userID, toMillis(end), toMillis(start))
}

// SoftDelete marks an event as a tombstone and bumps updated_at.
func (r *SQLiteEventRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET deleted = 1, updated_at = ?, synced_at = NULL WHERE id = ?`,
		toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// MarkSynced stamps synced_at after a remote acknowledgment.
func (r *SQLiteEventRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE events SET synced_at = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to mark event synced: %w", err)
	}
	return nil
}

// Purge hard-deletes an event row. Used for acknowledged delete tombstones
// and derived todo mirrors, which need no tombstone of their own.
func (r *SQLiteEventRepository) Purge(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to purge event: %w", err)
	}
	return nil
}

// DeleteBySource hard-deletes every event of the user with the given source.
func (r *SQLiteEventRepository) DeleteBySource(ctx context.Context, userID string, source models.EventSource) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM events WHERE user_id = ? AND source = ?`, userID, string(source))
	if err != nil {
		return fmt.Errorf("failed to wipe %s events: %w", source, err)
	}
	return nil
}

func (r *SQLiteEventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]models.CalendarEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select events: %w", err)
	}
	defer rows.Close()

	var result []models.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
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

func scanEvent(scan func(dest ...any) error) (*models.CalendarEvent, error) {
	var e models.CalendarEvent
	var start, end, updated int64
	var synced sql.NullInt64
	var source string
	if err := scan(&e.ID, &e.UserID, &e.Title, &e.Description, &start, &end, &e.AllDay,
		&e.Color, &source, &e.ExternalCalendarID, &e.ExternalEventID, &e.IsDeleted, &updated, &synced); err != nil {
		return nil, err
	}
	e.StartTime = fromMillis(start)
	e.EndTime = fromMillis(end)
	e.Source = models.EventSource(source)
	e.UpdatedAt = fromMillis(updated)
	e.SyncedAt = fromNullMillis(synced)
	return &e, nil
}

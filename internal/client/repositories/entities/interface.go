// Package entities provides the local durable store for syncable records.
// Soft-deleted rows are excluded from all reads but kept as tombstones until
// the remote side acknowledges the deletion.
package entities

import (
	"context"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
)

// TodoRepository stores todos.
type TodoRepository interface {
	Upsert(ctx context.Context, t *models.Todo) error
	GetByID(ctx context.Context, id string) (*models.Todo, error)
	ListByUser(ctx context.Context, userID string) ([]models.Todo, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
	Purge(ctx context.Context, id string) error
}

// ExpenseRepository stores expenses.
type ExpenseRepository interface {
	Upsert(ctx context.Context, e *models.Expense) error
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	ListByUser(ctx context.Context, userID string) ([]models.Expense, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
	Purge(ctx context.Context, id string) error
}

// EventRepository stores calendar events.
type EventRepository interface {
	Upsert(ctx context.Context, e *models.CalendarEvent) error
	GetByID(ctx context.Context, id string) (*models.CalendarEvent, error)
	ListByUser(ctx context.Context, userID string) ([]models.CalendarEvent, error)
	// FindByDateRange returns non-deleted events intersecting [start, end]
	// using the closed interval test eventStart <= end AND eventEnd >= start.
	FindByDateRange(ctx context.Context, userID string, start, end time.Time) ([]models.CalendarEvent, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
	Purge(ctx context.Context, id string) error
	// DeleteBySource hard-deletes every event of the user with the given
	// source. Used by the wipe phase of external-calendar mirroring; mirrored
	// rows never enter the outbox, so no tombstone is needed.
	DeleteBySource(ctx context.Context, userID string, source models.EventSource) error
}

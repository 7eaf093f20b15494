// Package outbox implements the durable change queue: the per-entity list of
// pending mutations awaiting transmission. The queue holds at most one
// pending entry per (entityType, entityID); repeated offline edits are
// consolidated into that entry so each entity costs one network round-trip
// per sync cycle no matter how many times it was touched.
package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
)

// Repository is the change queue contract.
type Repository interface {
	// Enqueue inserts or consolidates a queued change for the entity. The
	// consolidated entry keeps its original enqueue position. Must run inside
	// the same transaction as the entity write to be atomic with it.
	Enqueue(ctx context.Context, entityType models.EntityType, entityID string, op models.Operation, payload json.RawMessage, now time.Time) error

	// Drain returns pending changes whose next attempt is due, in original
	// enqueue (FIFO) order.
	Drain(ctx context.Context, now time.Time) ([]models.Change, error)

	// MarkSucceeded removes an acknowledged entry from the queue.
	MarkSucceeded(ctx context.Context, changeID string) error

	// MarkFailed records a transient failure: increments the retry counter
	// and schedules the next attempt.
	MarkFailed(ctx context.Context, changeID string, nextAttempt time.Time, cause string) error

	// MarkDead moves an entry to the dead-letter state. Dead entries are kept
	// for inspection and never drained again.
	MarkDead(ctx context.Context, changeID string, cause string) error

	// GetPending returns the pending entry for the entity, or
	// common.ErrNotFound.
	GetPending(ctx context.Context, entityType models.EntityType, entityID string) (*models.Change, error)

	// DeadLetters lists dead entries, oldest first.
	DeadLetters(ctx context.Context) ([]models.Change, error)

	// CountPending returns the number of pending entries.
	CountPending(ctx context.Context) (int, error)
}

package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
)

// RemoteRecord is one record returned by an incremental pull.
type RemoteRecord struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Client is the transport contract with the sync backend.
type Client interface {
	Close() error
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Ping(ctx context.Context) error

	// PushChange transmits a single queued change. On success the returned
	// time is the server acknowledgment timestamp to stamp as the entity's
	// syncedAt.
	PushChange(ctx context.Context, change models.Change) (time.Time, error)

	// Pull fetches all remote records of the given type with
	// updatedAt > since, plus the server timestamp of the pull. The server
	// upserts by (entityType, id), so re-pulling with the same cursor is
	// harmless.
	Pull(ctx context.Context, entityType models.EntityType, since time.Time) ([]RemoteRecord, time.Time, error)
}

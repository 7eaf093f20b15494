// Package storage defines the server's persistence contract with a postgres
// implementation for production and an in-memory one for development and
// tests.
package storage

import (
	"context"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/server/models"
)

// Storage is the server's persistence contract.
type Storage interface {
	// CreateUser registers an account. Returns common.ErrAlreadyExists when
	// the username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)

	// GetUserByUsername returns the account or common.ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	SaveRefreshToken(ctx context.Context, token models.RefreshToken) error

	// GetRefreshToken returns the stored token or common.ErrNotFound.
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)

	DeleteRefreshToken(ctx context.Context, token string) error

	// UpsertRecord stores a pushed record, keeping whichever version has the
	// greater UpdatedAt (last writer wins).
	UpsertRecord(ctx context.Context, rec models.Record) error

	// ListRecordsSince returns the user's records of the given type with
	// UpdatedAt strictly after since.
	ListRecordsSince(ctx context.Context, userID, entityType string, since time.Time) ([]models.Record, error)

	Close() error
}

// Package models defines the server-side records: accounts, refresh tokens
// and the per-user sync records the clients push and pull.
package models

import (
	"encoding/json"
	"time"
)

// User is a registered account.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// RefreshToken is a stored single-use refresh credential.
type RefreshToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Record is one synced entity version. The server does not interpret the
// payload beyond last-writer-wins arbitration on UpdatedAt; deletions travel
// as records with IsDeleted set so late-joining clients learn about them.
type Record struct {
	UserID     string
	EntityType string
	EntityID   string
	Payload    json.RawMessage
	IsDeleted  bool
	UpdatedAt  time.Time
}

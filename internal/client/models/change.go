package models

import (
	"encoding/json"
	"time"
)

// ChangeState is the lifecycle of an outbox entry.
type ChangeState string

const (
	// ChangePending is awaiting transmission (possibly after failed attempts).
	ChangePending ChangeState = "pending"
	// ChangeDead was abandoned after exhausting retries or a permanent remote
	// rejection. Dead entries are kept for inspection, never re-drained.
	ChangeDead ChangeState = "dead"
)

// Change is one queued mutation in the outbox. The queue holds at most one
// pending change per (EntityType, EntityID); later local edits are
// consolidated into the existing row, keeping its original EnqueuedAt so
// FIFO order survives consolidation.
type Change struct {
	ID         string
	EntityType EntityType
	EntityID   string
	Op         Operation
	Payload    json.RawMessage
	EnqueuedAt time.Time
	RetryCount int
	State      ChangeState
	LastError  string
}

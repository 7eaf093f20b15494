// Package models defines the client-side domain records subject to sync:
// todos, expenses and calendar events, plus the outbox change and the
// persisted sync cursor.
package models

import "time"

// EntityType is the closed set of record kinds the sync engine moves.
type EntityType string

const (
	EntityTodo     EntityType = "todo"
	EntityExpense  EntityType = "expense"
	EntityCalendar EntityType = "calendar_event"
)

// EntityTypes lists every syncable kind in a stable order. The pull phase
// iterates this slice, so each kind keeps an independent FIFO.
var EntityTypes = []EntityType{EntityTodo, EntityExpense, EntityCalendar}

// Valid reports whether t is one of the known entity kinds.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTodo, EntityExpense, EntityCalendar:
		return true
	}
	return false
}

// Operation is a queued mutation kind.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// SyncMeta carries the lifecycle fields shared by every syncable record.
//
// UpdatedAt is bumped on every local mutation and is the comparison key for
// both incremental pull and last-writer-wins arbitration. SyncedAt is the
// time of the last remote acknowledgment; nil means "never synced" or
// "dirty since last sync".
type SyncMeta struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	IsDeleted bool       `json:"isDeleted"`
	UpdatedAt time.Time  `json:"updatedAt"`
	SyncedAt  *time.Time `json:"syncedAt,omitempty"`
}

// Dirty reports whether the record has local changes the remote side has not
// acknowledged yet.
func (m SyncMeta) Dirty() bool {
	return m.SyncedAt == nil || m.UpdatedAt.After(*m.SyncedAt)
}

// Touch bumps UpdatedAt and clears SyncedAt, marking the record dirty.
func (m *SyncMeta) Touch(now time.Time) {
	m.UpdatedAt = now.UTC()
	m.SyncedAt = nil
}

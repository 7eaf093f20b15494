package models

import "time"

// Todo is a task item. A todo with a due date maintains a mirrored calendar
// event (source "todo") so it shows up in the agenda; the mirror id is
// derived from the todo id with TodoEventID.
type Todo struct {
	SyncMeta
	Title   string     `json:"title"`
	Notes   string     `json:"notes,omitempty"`
	DueDate *time.Time `json:"dueDate,omitempty"`
	Done    bool       `json:"done"`
}

// TodoEventID derives the id of the calendar event mirroring the given todo.
// Deriving instead of storing a back-reference keeps the mirror stable across
// repeated due-date edits.
func TodoEventID(todoID string) string {
	return "todo-" + todoID
}

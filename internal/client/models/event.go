package models

import (
	"strings"
	"time"
)

// EventSource tags the provenance of a calendar event. Modeled as a closed
// enumeration with an explicit priority so an unrecognized tag can never
// silently outrank a known one.
type EventSource string

const (
	// SourceLocal is an event entered directly on this device.
	SourceLocal EventSource = "local"
	// SourceManual is an event entered by the user through another surface.
	SourceManual EventSource = "manual"
	// SourceDevice is an event mirrored from a device calendar.
	SourceDevice EventSource = "device"
	// SourceTodo is the derived mirror of a todo's due date.
	SourceTodo EventSource = "todo"
	// SourceGoogle is an event mirrored from a Google calendar.
	SourceGoogle EventSource = "google"
)

// Priority ranks sources for cross-source deduplication. Higher wins.
// Unknown tags rank below everything known.
func (s EventSource) Priority() int {
	switch s {
	case SourceLocal:
		return 3
	case SourceManual, SourceTodo:
		return 2
	case SourceDevice, SourceGoogle:
		return 1
	}
	return 0
}

// Mirrored reports whether the source is an external calendar mirror that
// must carry ExternalCalendarID/ExternalEventID back-references.
func (s EventSource) Mirrored() bool {
	return s == SourceDevice || s == SourceGoogle
}

// CalendarEvent is a calendar record. Invariant: EndTime >= StartTime.
type CalendarEvent struct {
	SyncMeta
	Title              string      `json:"title"`
	Description        string      `json:"description,omitempty"`
	StartTime          time.Time   `json:"startTime"`
	EndTime            time.Time   `json:"endTime"`
	AllDay             bool        `json:"allDay"`
	Color              string      `json:"color,omitempty"`
	Source             EventSource `json:"source"`
	ExternalCalendarID string      `json:"externalCalendarId,omitempty"`
	ExternalEventID    string      `json:"externalEventId,omitempty"`
}

// Fingerprint derives the key used to recognize "the same" appointment
// across sources. Time of day and source are intentionally ignored so the
// same meeting mirrored from two providers collapses to one key. Dates are
// taken in UTC: providers report the same instant in different zones.
func (e CalendarEvent) Fingerprint() string {
	title := strings.ToLower(strings.TrimSpace(e.Title))
	return title + "_" + e.StartTime.UTC().Format("2006-01-02") + "_" + e.EndTime.UTC().Format("2006-01-02")
}

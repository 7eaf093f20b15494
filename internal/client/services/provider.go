package services

import (
	"context"
	"time"
)

// ProviderCalendar describes one calendar exposed by an external provider.
type ProviderCalendar struct {
	ID    string
	Name  string
	Color string
}

// ProviderEvent is a raw event as reported by an external provider, before
// validation. Mirroring drops entries that fail basic sanity checks instead
// of aborting the run.
type ProviderEvent struct {
	ID     string
	Title  string
	Notes  string
	Start  time.Time
	End    time.Time
	AllDay bool
}

// CalendarProvider abstracts a device or OS calendar store. Implementations
// return common.ErrPermissionDenied when the user has not granted calendar
// access; mirroring treats that as "nothing to mirror".
type CalendarProvider interface {
	ListCalendars(ctx context.Context) ([]ProviderCalendar, error)
	ListEvents(ctx context.Context, calendarID string, start, end time.Time) ([]ProviderEvent, error)
}

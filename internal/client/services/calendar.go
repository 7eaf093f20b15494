package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/client"
	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/common"
	"github.com/dmitrijs2005/daykeeper/internal/dbx"
	"github.com/dmitrijs2005/daykeeper/internal/logging"
)

// Mirror window around "now": how far back and ahead external calendars are
// replicated.
const (
	mirrorLookBackMonths  = 2
	mirrorLookAheadMonths = 4
)

// CalendarService is the read model of the calendar: it merges locally
// stored, synced, todo-derived and device-mirrored events into one agenda,
// collapsing duplicates across sources, and replicates external calendars
// into the local store with a wipe-and-replace pass.
type CalendarService struct {
	repos    *client.Repositories
	provider CalendarProvider
	clock    Clock
	logger   logging.Logger
	cooldown time.Duration

	mu      sync.Mutex
	running map[string]bool
}

// NewCalendarService wires the reconciliation layer. provider may be nil
// when no external calendar is available; Mirror then does nothing.
func NewCalendarService(repos *client.Repositories, provider CalendarProvider, clock Clock, logger logging.Logger, cooldown time.Duration) *CalendarService {
	return &CalendarService{
		repos:    repos,
		provider: provider,
		clock:    clock,
		logger:   logger,
		cooldown: cooldown,
		running:  make(map[string]bool),
	}
}

// dayBounds returns the closed [00:00, 23:59:59.999…] span of the civil day
// containing t, in t's location.
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

// OverlapsDay reports whether the event touches the civil day containing
// day. The interval test is closed on both ends, so an event ending exactly
// at midnight still belongs to the day it ends on.
func OverlapsDay(e models.CalendarEvent, day time.Time) bool {
	start, end := dayBounds(day)
	return !e.StartTime.After(end) && !e.EndTime.Before(start)
}

// Deduplicate collapses events that describe the same appointment seen
// through different sources: same normalized title and same start/end dates.
// The surviving event is the one from the highest-priority source; ties keep
// the first seen. Survivors keep their input order.
func Deduplicate(events []models.CalendarEvent) []models.CalendarEvent {
	out := make([]models.CalendarEvent, 0, len(events))
	index := make(map[string]int, len(events))

	for _, e := range events {
		fp := e.Fingerprint()
		at, seen := index[fp]
		if !seen {
			index[fp] = len(out)
			out = append(out, e)
			continue
		}
		if e.Source.Priority() > out[at].Source.Priority() {
			out[at] = e
		}
	}
	return out
}

// EventsForDay returns the deduplicated agenda for the civil day containing
// day, ordered by start time.
func (s *CalendarService) EventsForDay(ctx context.Context, userID string, day time.Time) ([]models.CalendarEvent, error) {
	start, end := dayBounds(day)
	return s.EventsForRange(ctx, userID, start, end)
}

// EventsForRange returns deduplicated events intersecting [start, end].
func (s *CalendarService) EventsForRange(ctx context.Context, userID string, start, end time.Time) ([]models.CalendarEvent, error) {
	events, err := s.repos.Events.FindByDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	return Deduplicate(events), nil
}

// CheckConflict returns the events overlapping the half-open interval
// [start, end), excluding excludeID. Back-to-back events do not conflict.
// The check is advisory; callers may still save the event.
func (s *CalendarService) CheckConflict(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]models.CalendarEvent, error) {
	if end.Before(start) {
		return nil, common.ErrInvalidTimeRange
	}

	candidates, err := s.repos.Events.FindByDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	var conflicts []models.CalendarEvent
	for _, e := range candidates {
		if e.ID == excludeID {
			continue
		}
		if e.StartTime.Before(end) && e.EndTime.After(start) {
			conflicts = append(conflicts, e)
		}
	}
	return conflicts, nil
}

// Mirror replicates the user's external calendars into the local store for
// a window around now: it wipes every device-sourced row and inserts the
// fresh snapshot in one transaction, so repeated runs are idempotent and
// deleted provider events disappear. Mirrored rows never enter the outbox.
//
// Returns common.ErrMirrorRunning when a run for the user is in flight and
// common.ErrMirrorCooldown when the last run is too recent. Missing provider
// permission is not an error: the mirror is skipped.
func (s *CalendarService) Mirror(ctx context.Context, userID string) error {
	if s.provider == nil {
		return nil
	}

	s.mu.Lock()
	if s.running[userID] {
		s.mu.Unlock()
		return common.ErrMirrorRunning
	}
	s.running[userID] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, userID)
		s.mu.Unlock()
	}()

	now := s.clock.Now()

	st, err := s.repos.State.Load(ctx)
	if err != nil {
		return err
	}
	if last := st.MirrorRanAt(userID); !last.IsZero() && now.Sub(last) < s.cooldown {
		return common.ErrMirrorCooldown
	}

	calendars, err := s.provider.ListCalendars(ctx)
	if err != nil {
		if errors.Is(err, common.ErrPermissionDenied) {
			s.logger.Info(ctx, "calendar access not granted, mirror skipped", "userId", userID)
			return nil
		}
		return err
	}

	windowStart := now.AddDate(0, -mirrorLookBackMonths, 0)
	windowEnd := now.AddDate(0, mirrorLookAheadMonths, 0)

	var fresh []models.CalendarEvent
	skipped := 0
	for _, cal := range calendars {
		raw, err := s.provider.ListEvents(ctx, cal.ID, windowStart, windowEnd)
		if err != nil {
			if errors.Is(err, common.ErrPermissionDenied) {
				s.logger.Info(ctx, "calendar not readable, skipped", "calendarId", cal.ID)
				continue
			}
			// Abort before the wipe so the previous snapshot survives.
			return err
		}
		for _, pe := range raw {
			m, ok := mirroredEvent(cal, pe, userID, now)
			if !ok {
				skipped++
				continue
			}
			fresh = append(fresh, m)
		}
	}

	err = dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := s.repos.InTx(tx)
		if err := r.Events.DeleteBySource(ctx, userID, models.SourceDevice); err != nil {
			return err
		}
		for i := range fresh {
			if err := r.Events.Upsert(ctx, &fresh[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := s.repos.State.Update(ctx, func(st *models.SyncState) {
		st.SetMirrorRan(userID, now)
	}); err != nil {
		return err
	}

	s.logger.Info(ctx, "calendar mirror finished",
		"userId", userID, "calendars", len(calendars), "events", len(fresh), "skipped", skipped)
	return nil
}

// mirroredEvent converts a provider event to a local device-sourced row.
// Entries without an id or title, or with an inverted time range, are
// dropped rather than failing the whole run.
func mirroredEvent(cal ProviderCalendar, pe ProviderEvent, userID string, now time.Time) (models.CalendarEvent, bool) {
	title := strings.TrimSpace(pe.Title)
	if pe.ID == "" || title == "" || pe.Start.IsZero() || pe.End.Before(pe.Start) {
		return models.CalendarEvent{}, false
	}

	return models.CalendarEvent{
		SyncMeta: models.SyncMeta{
			// Deterministic id so re-running the mirror rewrites rather
			// than duplicates.
			ID:        "device-" + cal.ID + "-" + pe.ID,
			UserID:    userID,
			UpdatedAt: now.UTC(),
			SyncedAt:  &now,
		},
		Title:              title,
		Description:        pe.Notes,
		StartTime:          pe.Start,
		EndTime:            pe.End,
		AllDay:             pe.AllDay,
		Color:              cal.Color,
		Source:             models.SourceDevice,
		ExternalCalendarID: cal.ID,
		ExternalEventID:    pe.ID,
	}, true
}

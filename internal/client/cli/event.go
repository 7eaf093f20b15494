package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/common"
)

// AddEvent prompts for an event and stores it. Overlapping events are shown
// first as an advisory warning; the user decides whether to save anyway.
func (a *App) AddEvent(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	title, err := getSimpleText(a.reader, "Title", os.Stdout)
	if err != nil {
		return err
	}
	if title == "" {
		return fmt.Errorf("title must not be empty")
	}

	startRaw, err := getSimpleText(a.reader, "Start YYYY-MM-DD HH:MM", os.Stdout)
	if err != nil {
		return err
	}
	start, err := ParseDateTime(startRaw)
	if err != nil {
		return err
	}

	endRaw, err := getSimpleText(a.reader, "End YYYY-MM-DD HH:MM", os.Stdout)
	if err != nil {
		return err
	}
	end, err := ParseDateTime(endRaw)
	if err != nil {
		return err
	}
	if end.Before(start) {
		return common.ErrInvalidTimeRange
	}

	conflicts, err := a.calendar.CheckConflict(ctx, a.userID, start, end, "")
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		fmt.Println("Warning: overlaps with:")
		for _, c := range conflicts {
			fmt.Printf("  %s - %s  %s\n", c.StartTime.Format(dateTimeLayout), c.EndTime.Format("15:04"), c.Title)
		}
		answer, err := getSimpleText(a.reader, "Save anyway? (y/n)", os.Stdout)
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "y") {
			fmt.Println("Not saved.")
			return nil
		}
	}

	e := &models.CalendarEvent{
		SyncMeta:  models.SyncMeta{UserID: a.userID},
		Title:     title,
		StartTime: start,
		EndTime:   end,
	}
	if err := a.entities.CreateEvent(ctx, e); err != nil {
		return err
	}
	fmt.Printf("Added event %s\n", e.ID)
	return nil
}

// Agenda prints the merged, deduplicated agenda for a day.
func (a *App) Agenda(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	dayRaw, err := getSimpleText(a.reader, "Day YYYY-MM-DD (empty for today)", os.Stdout)
	if err != nil {
		return err
	}
	day := a.entities.Now()
	if dayRaw != "" {
		if day, err = ParseDate(dayRaw); err != nil {
			return err
		}
	}

	events, err := a.calendar.EventsForDay(ctx, a.userID, day)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("Nothing scheduled.")
		return nil
	}

	for _, e := range events {
		when := e.StartTime.Format("15:04") + "-" + e.EndTime.Format("15:04")
		if e.AllDay {
			when = "all day    "
		}
		fmt.Printf("%s  %-30s [%s]\n", when, e.Title, e.Source)
	}
	return nil
}

// Mirror replicates the device calendars into the local store.
func (a *App) Mirror(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	err := a.calendar.Mirror(ctx, a.userID)
	switch {
	case errors.Is(err, common.ErrMirrorRunning):
		fmt.Println("A mirror run is already in progress.")
		return nil
	case errors.Is(err, common.ErrMirrorCooldown):
		fmt.Println("Mirrored recently; try again later.")
		return nil
	case err != nil:
		return err
	}
	fmt.Println("Calendar mirrored.")
	return nil
}

package entities

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEvent(id, user, title string, start, end time.Time, source models.EventSource) *models.CalendarEvent {
	return &models.CalendarEvent{
		SyncMeta: models.SyncMeta{ID: id, UserID: user, UpdatedAt: start},
		Title:    title, StartTime: start, EndTime: end, Source: source,
	}
}

func TestEventUpsert_InsertAndUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteEventRepository(db)
	ctx := context.Background()

	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	e := makeEvent("e1", "u1", "standup", start, start.Add(30*time.Minute), models.SourceLocal)
	require.NoError(t, r.Upsert(ctx, e))

	e.Title = "standup (moved)"
	e.StartTime = start.Add(time.Hour)
	e.EndTime = start.Add(90 * time.Minute)
	require.NoError(t, r.Upsert(ctx, e))

	got, err := r.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "standup (moved)", got.Title)
	assert.Equal(t, start.Add(time.Hour), got.StartTime)
	assert.Equal(t, models.SourceLocal, got.Source)
}

func TestEventUpsert_RejectsInvertedRange(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteEventRepository(db)

	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	e := makeEvent("bad", "u1", "x", start, start.Add(-time.Minute), models.SourceLocal)

	err := r.Upsert(context.Background(), e)
	assert.ErrorIs(t, err, common.ErrInvalidTimeRange)
}

func TestEventFindByDateRange_IntervalIntersection(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteEventRepository(db)
	ctx := context.Background()

	// Spans midnight: 2025-06-10 23:00 .. 2025-06-11 01:00.
	start := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)
	require.NoError(t, r.Upsert(ctx, makeEvent("night", "u1", "red-eye", start, start.Add(2*time.Hour), models.SourceLocal)))

	day := func(y int, m time.Month, d int) (time.Time, time.Time) {
		s := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return s, s.Add(24*time.Hour - time.Nanosecond)
	}

	for _, tc := range []struct {
		d    int
		want int
	}{
		{9, 0}, {10, 1}, {11, 1}, {12, 0},
	} {
		s, e := day(2025, 6, tc.d)
		got, err := r.FindByDateRange(ctx, "u1", s, e)
		require.NoError(t, err)
		assert.Len(t, got, tc.want, "day 2025-06-%02d", tc.d)
	}
}

func TestEventSoftDelete_ExcludedFromReads(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteEventRepository(db)
	ctx := context.Background()

	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, r.Upsert(ctx, makeEvent("e1", "u1", "a", start, start.Add(time.Hour), models.SourceLocal)))

	require.NoError(t, r.SoftDelete(ctx, "e1", start.Add(time.Hour)))

	list, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	// tombstone is still there for sync
	got, err := r.GetByID(ctx, "e1")
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.Nil(t, got.SyncedAt, "delete marks the record dirty")

	assert.ErrorIs(t, r.SoftDelete(ctx, "missing", start), common.ErrNotFound)
}

func TestEventDeleteBySource_OnlyThatSourceAndUser(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteEventRepository(db)
	ctx := context.Background()

	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, r.Upsert(ctx, makeEvent("d1", "u1", "mirrored", start, start.Add(time.Hour), models.SourceDevice)))
	require.NoError(t, r.Upsert(ctx, makeEvent("l1", "u1", "mine", start, start.Add(time.Hour), models.SourceLocal)))
	require.NoError(t, r.Upsert(ctx, makeEvent("d2", "u2", "other user", start, start.Add(time.Hour), models.SourceDevice)))

	require.NoError(t, r.DeleteBySource(ctx, "u1", models.SourceDevice))

	list, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "l1", list[0].ID)

	other, err := r.ListByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestEventMarkSynced(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteEventRepository(db)
	ctx := context.Background()

	start := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, r.Upsert(ctx, makeEvent("e1", "u1", "a", start, start.Add(time.Hour), models.SourceLocal)))

	ack := start.Add(time.Minute)
	require.NoError(t, r.MarkSynced(ctx, "e1", ack))

	got, err := r.GetByID(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, got.SyncedAt)
	assert.Equal(t, ack, *got.SyncedAt)
	assert.False(t, got.Dirty())
}

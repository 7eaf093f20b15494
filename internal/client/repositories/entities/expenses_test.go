package entities

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseUpsert_AndListNewestFirst(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteExpenseRepository(db)
	ctx := context.Background()

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, r.Upsert(ctx, &models.Expense{
			SyncMeta:    models.SyncMeta{ID: id, UserID: "u1", UpdatedAt: day},
			AmountCents: int64(100 * (i + 1)),
			Category:    "food",
			Date:        day.AddDate(0, 0, i),
		}))
	}

	list, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[2].ID)
	assert.Equal(t, int64(300), list[0].AmountCents)
}

func TestExpenseSoftDelete_KeepsTombstone(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteExpenseRepository(db)
	ctx := context.Background()

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Upsert(ctx, &models.Expense{
		SyncMeta:    models.SyncMeta{ID: "x", UserID: "u1", UpdatedAt: day},
		AmountCents: 250,
		Date:        day,
	}))
	require.NoError(t, r.SoftDelete(ctx, "x", day.Add(time.Hour)))

	list, err := r.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := r.GetByID(ctx, "x")
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
}

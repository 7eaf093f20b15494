package state

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);`)
	require.NoError(t, err)

	return NewStore(metadata.NewSQLiteRepository(db))
}

func TestLoad_MissingRowYieldsZeroState(t *testing.T) {
	s := setupStore(t)

	st, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, st.LastSyncTime.IsZero())
	assert.Empty(t, st.LastMirrorRun)
}

func TestUpdate_PersistsAcrossLoads(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	cursor := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	_, err := s.Update(ctx, func(st *models.SyncState) {
		st.LastSyncTime = cursor
		st.SetMirrorRan("u1", cursor.Add(time.Minute))
	})
	require.NoError(t, err)

	st, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cursor, st.LastSyncTime)
	assert.Equal(t, cursor.Add(time.Minute), st.MirrorRanAt("u1"))
	assert.True(t, st.MirrorRanAt("unknown").IsZero())
}

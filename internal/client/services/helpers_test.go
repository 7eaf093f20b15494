package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/client"
	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/state"
	"github.com/dmitrijs2005/daykeeper/internal/logging"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupRepos(t *testing.T) *client.Repositories {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE todos (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  due_date INTEGER,
  done INTEGER NOT NULL DEFAULT 0,
  deleted INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  synced_at INTEGER
);
CREATE TABLE expenses (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  date INTEGER NOT NULL,
  note TEXT NOT NULL DEFAULT '',
  deleted INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  synced_at INTEGER
);
CREATE TABLE events (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  start_time INTEGER NOT NULL,
  end_time INTEGER NOT NULL,
  all_day INTEGER NOT NULL DEFAULT 0,
  color TEXT NOT NULL DEFAULT '',
  source TEXT NOT NULL DEFAULT 'local',
  external_calendar_id TEXT NOT NULL DEFAULT '',
  external_event_id TEXT NOT NULL DEFAULT '',
  deleted INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  synced_at INTEGER
);
CREATE TABLE outbox (
  id TEXT PRIMARY KEY,
  entity_type TEXT NOT NULL,
  entity_id TEXT NOT NULL,
  op TEXT NOT NULL,
  payload BLOB NOT NULL,
  enqueued_at INTEGER NOT NULL,
  retry_count INTEGER NOT NULL DEFAULT 0,
  next_attempt_at INTEGER NOT NULL DEFAULT 0,
  state TEXT NOT NULL DEFAULT 'pending',
  last_error TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX idx_outbox_entity_pending
  ON outbox (entity_type, entity_id) WHERE state = 'pending';
CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);
`)
	require.NoError(t, err)

	meta := metadata.NewSQLiteRepository(db)
	return &client.Repositories{
		DB:       db,
		Todos:    entities.NewSQLiteTodoRepository(db),
		Expenses: entities.NewSQLiteExpenseRepository(db),
		Events:   entities.NewSQLiteEventRepository(db),
		Outbox:   outbox.NewSQLiteRepository(db),
		Metadata: meta,
		State:    state.NewStore(meta),
	}
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeClock is a manual clock; Advance moves it forward.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock { return &fakeClock{now: at} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeRemote is a scriptable transport. Unset hooks succeed: pushes are
// acknowledged with serverTime, pulls return nothing.
type fakeRemote struct {
	client.Client

	mu         sync.Mutex
	pushed     []models.Change
	serverTime time.Time

	pushErr error
	pushFn  func(change models.Change) (time.Time, error)
	pullFn  func(entityType models.EntityType, since time.Time) ([]client.RemoteRecord, time.Time, error)
	pingErr error
}

func (f *fakeRemote) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeRemote) setPingErr(err error) {
	f.mu.Lock()
	f.pingErr = err
	f.mu.Unlock()
}

func (f *fakeRemote) PushChange(ctx context.Context, change models.Change) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushFn != nil {
		return f.pushFn(change)
	}
	if f.pushErr != nil {
		return time.Time{}, f.pushErr
	}
	f.pushed = append(f.pushed, change)
	return f.serverTime, nil
}

func (f *fakeRemote) Pull(ctx context.Context, entityType models.EntityType, since time.Time) ([]client.RemoteRecord, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pullFn != nil {
		return f.pullFn(entityType, since)
	}
	return nil, f.serverTime, nil
}

func (f *fakeRemote) pushedChanges() []models.Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Change(nil), f.pushed...)
}

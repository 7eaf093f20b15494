package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/daykeeper/internal/client/migrations"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/state"
	"github.com/dmitrijs2005/daykeeper/internal/dbx"
	"github.com/pressly/goose/v3"
)

// Repositories bundles the local stores built over one SQLite database. DB is
// exposed so services can run multi-repository transactions via dbx.WithTx.
type Repositories struct {
	DB       *sql.DB
	Todos    entities.TodoRepository
	Expenses entities.ExpenseRepository
	Events   entities.EventRepository
	Outbox   outbox.Repository
	Metadata metadata.Repository
	State    *state.Store
}

// InTx rebinds the entity and outbox repositories to the given transaction so
// an entity write and its outbox entry commit atomically. Metadata and State
// keep their own connection; cursor updates are single statements.
func (r *Repositories) InTx(tx dbx.DBTX) *Repositories {
	return &Repositories{
		DB:       r.DB,
		Todos:    entities.NewSQLiteTodoRepository(tx),
		Expenses: entities.NewSQLiteExpenseRepository(tx),
		Events:   entities.NewSQLiteEventRepository(tx),
		Outbox:   outbox.NewSQLiteRepository(tx),
		Metadata: r.Metadata,
		State:    r.State,
	}
}

// RunMigrations applies the embedded goose migrations. Safe to call on every
// start; goose tracks the applied version.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the local SQLite database, applies
// migrations and wires the repositories.
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY between the sync worker and caller-initiated writes.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		return nil, err
	}

	meta := metadata.NewSQLiteRepository(db)

	return &Repositories{
		DB:       db,
		Todos:    entities.NewSQLiteTodoRepository(db),
		Expenses: entities.NewSQLiteExpenseRepository(db),
		Events:   entities.NewSQLiteEventRepository(db),
		Outbox:   outbox.NewSQLiteRepository(db),
		Metadata: meta,
		State:    state.NewStore(meta),
	}, nil
}

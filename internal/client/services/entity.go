package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/client"
	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/entities"
	"github.com/dmitrijs2005/daykeeper/internal/common"
	"github.com/dmitrijs2005/daykeeper/internal/dbx"
	"github.com/dmitrijs2005/daykeeper/internal/logging"
	"github.com/google/uuid"
)

// EntityService is the write path for todos, expenses and calendar events.
//
// Every mutation commits the entity write and its outbox entry in one local
// transaction, then attempts an immediate push when the server is reachable.
// A failed push leaves the entry queued for the background Syncer, so the
// opportunistic and the scheduled path converge on the same queue.
type EntityService struct {
	repos  *client.Repositories
	remote client.Client
	online func() bool
	clock  Clock
	logger logging.Logger
}

// NewEntityService wires the write path. online reports current server
// reachability; a nil online means "always try".
func NewEntityService(repos *client.Repositories, remote client.Client, online func() bool, clock Clock, logger logging.Logger) *EntityService {
	if online == nil {
		online = func() bool { return true }
	}
	return &EntityService{repos: repos, remote: remote, online: online, clock: clock, logger: logger}
}

// Now exposes the service clock so callers default timestamps consistently.
func (s *EntityService) Now() time.Time {
	return s.clock.Now()
}

// CreateTodo stores a new todo and queues it for sync. A due date also
// creates the derived calendar mirror so the todo shows up in the agenda.
func (s *EntityService) CreateTodo(ctx context.Context, userID, title, notes string, due *time.Time) (*models.Todo, error) {
	now := s.clock.Now()
	t := &models.Todo{
		SyncMeta: models.SyncMeta{ID: uuid.NewString(), UserID: userID},
		Title:    title,
		Notes:    notes,
		DueDate:  due,
	}
	t.Touch(now)

	err := s.save(ctx, models.EntityTodo, models.OpCreate, t.ID, t, func(ctx context.Context, r *client.Repositories) error {
		if err := r.Todos.Upsert(ctx, t); err != nil {
			return err
		}
		return updateTodoMirror(ctx, r.Events, t, now)
	})
	// A push rejection happens after the local write committed: the todo
	// exists, so the caller gets it together with the error.
	if err != nil && !errors.Is(err, common.ErrRejected) {
		return nil, err
	}
	return t, err
}

// UpdateTodo persists a modified todo and queues the update. The caller is
// expected to mutate a copy obtained from GetTodo.
func (s *EntityService) UpdateTodo(ctx context.Context, t *models.Todo) error {
	now := s.clock.Now()
	t.Touch(now)

	return s.save(ctx, models.EntityTodo, models.OpUpdate, t.ID, t, func(ctx context.Context, r *client.Repositories) error {
		if err := r.Todos.Upsert(ctx, t); err != nil {
			return err
		}
		return updateTodoMirror(ctx, r.Events, t, now)
	})
}

// DeleteTodo tombstones a todo, removes its calendar mirror and queues the
// deletion.
func (s *EntityService) DeleteTodo(ctx context.Context, id string) error {
	now := s.clock.Now()

	return s.save(ctx, models.EntityTodo, models.OpDelete, id, deletePayload(id, now), func(ctx context.Context, r *client.Repositories) error {
		if err := r.Todos.SoftDelete(ctx, id, now); err != nil {
			return err
		}
		return r.Events.Purge(ctx, models.TodoEventID(id))
	})
}

// GetTodo returns a todo by id.
func (s *EntityService) GetTodo(ctx context.Context, id string) (*models.Todo, error) {
	return s.repos.Todos.GetByID(ctx, id)
}

// ListTodos lists the user's todos.
func (s *EntityService) ListTodos(ctx context.Context, userID string) ([]models.Todo, error) {
	return s.repos.Todos.ListByUser(ctx, userID)
}

// CreateExpense stores a new expense and queues it for sync.
func (s *EntityService) CreateExpense(ctx context.Context, userID string, amountCents int64, category string, date time.Time, note string) (*models.Expense, error) {
	now := s.clock.Now()
	e := &models.Expense{
		SyncMeta:    models.SyncMeta{ID: uuid.NewString(), UserID: userID},
		AmountCents: amountCents,
		Category:    category,
		Date:        date,
		Note:        note,
	}
	e.Touch(now)

	err := s.save(ctx, models.EntityExpense, models.OpCreate, e.ID, e, func(ctx context.Context, r *client.Repositories) error {
		return r.Expenses.Upsert(ctx, e)
	})
	if err != nil && !errors.Is(err, common.ErrRejected) {
		return nil, err
	}
	return e, err
}

// UpdateExpense persists a modified expense and queues the update.
func (s *EntityService) UpdateExpense(ctx context.Context, e *models.Expense) error {
	e.Touch(s.clock.Now())

	return s.save(ctx, models.EntityExpense, models.OpUpdate, e.ID, e, func(ctx context.Context, r *client.Repositories) error {
		return r.Expenses.Upsert(ctx, e)
	})
}

// DeleteExpense tombstones an expense and queues the deletion.
func (s *EntityService) DeleteExpense(ctx context.Context, id string) error {
	now := s.clock.Now()

	return s.save(ctx, models.EntityExpense, models.OpDelete, id, deletePayload(id, now), func(ctx context.Context, r *client.Repositories) error {
		return r.Expenses.SoftDelete(ctx, id, now)
	})
}

// ListExpenses lists the user's expenses.
func (s *EntityService) ListExpenses(ctx context.Context, userID string) ([]models.Expense, error) {
	return s.repos.Expenses.ListByUser(ctx, userID)
}

// CreateEvent stores a new user-entered calendar event and queues it for
// sync. The source is forced to "local": mirrored and derived events are
// produced by CalendarService and the todo mirror, never through here.
func (s *EntityService) CreateEvent(ctx context.Context, e *models.CalendarEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Source = models.SourceLocal
	e.Touch(s.clock.Now())

	return s.save(ctx, models.EntityCalendar, models.OpCreate, e.ID, e, func(ctx context.Context, r *client.Repositories) error {
		return r.Events.Upsert(ctx, e)
	})
}

// UpdateEvent persists a modified calendar event and queues the update.
// Mirrored events are read-only; edits belong in the source calendar.
func (s *EntityService) UpdateEvent(ctx context.Context, e *models.CalendarEvent) error {
	if e.Source.Mirrored() || e.Source == models.SourceTodo {
		return fmt.Errorf("%w: %s events are read-only", common.ErrRejected, e.Source)
	}
	e.Touch(s.clock.Now())

	return s.save(ctx, models.EntityCalendar, models.OpUpdate, e.ID, e, func(ctx context.Context, r *client.Repositories) error {
		return r.Events.Upsert(ctx, e)
	})
}

// DeleteEvent tombstones a calendar event and queues the deletion.
func (s *EntityService) DeleteEvent(ctx context.Context, id string) error {
	now := s.clock.Now()

	return s.save(ctx, models.EntityCalendar, models.OpDelete, id, deletePayload(id, now), func(ctx context.Context, r *client.Repositories) error {
		return r.Events.SoftDelete(ctx, id, now)
	})
}

// save commits the entity write and its queued change atomically, then tries
// an immediate push. An immediate permanent rejection dead-letters the entry
// and is reported to the caller; transient failures are silent, the entry
// stays queued for the Syncer.
func (s *EntityService) save(ctx context.Context, entityType models.EntityType, op models.Operation, id string, payload any, write func(ctx context.Context, r *client.Repositories) error) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", entityType, err)
	}

	now := s.clock.Now()
	err = dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := s.repos.InTx(tx)
		if err := write(ctx, r); err != nil {
			return err
		}
		return r.Outbox.Enqueue(ctx, entityType, id, op, body, now)
	})
	if err != nil {
		return err
	}

	return s.pushNow(ctx, entityType, id)
}

func (s *EntityService) pushNow(ctx context.Context, entityType models.EntityType, id string) error {
	if !s.online() {
		return nil
	}

	change, err := s.repos.Outbox.GetPending(ctx, entityType, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}

	serverTime, err := s.remote.PushChange(ctx, *change)
	if err != nil {
		if errors.Is(err, common.ErrRejected) {
			if mdErr := s.repos.Outbox.MarkDead(ctx, change.ID, err.Error()); mdErr != nil {
				return mdErr
			}
			s.logger.Warn(ctx, "change rejected by server", "entityType", entityType, "id", id, "error", err)
			return fmt.Errorf("server rejected change: %w", err)
		}
		// Leave the entry queued; the sync loop retries with backoff.
		s.logger.Debug(ctx, "immediate push failed, change stays queued",
			"entityType", entityType, "id", id, "error", err)
		return nil
	}

	return ackChange(ctx, s.repos, *change, serverTime)
}

// ackChange removes an acknowledged change from the queue and settles the
// entity row: stamp syncedAt, or purge the tombstone after a delete ack.
func ackChange(ctx context.Context, repos *client.Repositories, change models.Change, serverTime time.Time) error {
	return dbx.WithTx(ctx, repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		r := repos.InTx(tx)
		if err := r.Outbox.MarkSucceeded(ctx, change.ID); err != nil {
			return err
		}
		if change.Op == models.OpDelete {
			return purgeEntity(ctx, r, change.EntityType, change.EntityID)
		}
		return markEntitySynced(ctx, r, change.EntityType, change.EntityID, serverTime)
	})
}

func markEntitySynced(ctx context.Context, r *client.Repositories, entityType models.EntityType, id string, at time.Time) error {
	switch entityType {
	case models.EntityTodo:
		return r.Todos.MarkSynced(ctx, id, at)
	case models.EntityExpense:
		return r.Expenses.MarkSynced(ctx, id, at)
	case models.EntityCalendar:
		return r.Events.MarkSynced(ctx, id, at)
	}
	return fmt.Errorf("%w: %s", common.ErrUnknownEntity, entityType)
}

func purgeEntity(ctx context.Context, r *client.Repositories, entityType models.EntityType, id string) error {
	switch entityType {
	case models.EntityTodo:
		return r.Todos.Purge(ctx, id)
	case models.EntityExpense:
		return r.Expenses.Purge(ctx, id)
	case models.EntityCalendar:
		return r.Events.Purge(ctx, id)
	}
	return fmt.Errorf("%w: %s", common.ErrUnknownEntity, entityType)
}

// updateTodoMirror keeps the derived calendar event of a todo in step with
// its due date. The mirror is a local projection: it never enters the outbox
// and is regenerated on every todo write, local or pulled.
func updateTodoMirror(ctx context.Context, events entities.EventRepository, t *models.Todo, now time.Time) error {
	id := models.TodoEventID(t.ID)

	if t.IsDeleted || t.Done || t.DueDate == nil {
		return events.Purge(ctx, id)
	}

	due := *t.DueDate
	start := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, due.Location())
	end := start.Add(24*time.Hour - time.Second)

	mirror := &models.CalendarEvent{
		SyncMeta: models.SyncMeta{
			ID:        id,
			UserID:    t.UserID,
			UpdatedAt: now.UTC(),
			SyncedAt:  &now,
		},
		Title:     t.Title,
		StartTime: start,
		EndTime:   end,
		AllDay:    true,
		Source:    models.SourceTodo,
	}
	return events.Upsert(ctx, mirror)
}

// deletePayload is the minimal body pushed for a delete: the remote side only
// needs the id and the deletion time for last-writer-wins arbitration.
func deletePayload(id string, at time.Time) any {
	return models.SyncMeta{ID: id, IsDeleted: true, UpdatedAt: at.UTC()}
}

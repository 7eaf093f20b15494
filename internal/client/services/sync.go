package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/client/client"
	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/common"
	"github.com/dmitrijs2005/daykeeper/internal/dbx"
	"github.com/dmitrijs2005/daykeeper/internal/logging"
	"github.com/sethvargo/go-retry"
)

// SyncPhase is the externally visible state of the sync loop.
type SyncPhase string

const (
	PhaseIdle       SyncPhase = "idle"
	PhasePushing    SyncPhase = "pushing"
	PhasePulling    SyncPhase = "pulling"
	PhaseBackingOff SyncPhase = "backing_off"
)

// backoffCapExponent caps the doubling so delays stop growing after the
// sixth attempt.
const backoffCapExponent = 5

// pullAttemptDelay seeds the in-call retry of a transient pull failure.
const pullAttemptDelay = 200 * time.Millisecond

// SyncReport summarizes one sync cycle.
type SyncReport struct {
	Pushed    int
	Failed    int
	Dead      int
	Applied   int
	Skipped   int
	Conflicts int
}

// SyncStatus is a point-in-time snapshot for status surfaces.
type SyncStatus struct {
	Phase        SyncPhase
	Pending      int
	Dead         int
	Conflicts    int64
	LastSyncTime time.Time
}

// Syncer runs the periodic push/pull cycle.
//
// Push drains due outbox entries in enqueue order; each transient failure
// reschedules that one entry with exponential backoff, so a stuck change
// never blocks the rest of the queue. Pull fetches records changed since the
// persisted cursor and applies them with last-writer-wins arbitration where
// the server side prevails.
type Syncer struct {
	repos  *client.Repositories
	remote client.Client
	clock  Clock
	logger logging.Logger

	baseDelay  time.Duration
	maxRetries int
	interval   time.Duration

	mu      sync.Mutex
	phase   SyncPhase
	running bool

	conflicts atomic.Int64
	trigger   chan struct{}
}

// NewSyncer builds the sync loop. baseDelay seeds the per-change backoff;
// maxRetries bounds attempts before a change is dead-lettered; interval is
// the cycle cadence for Run.
func NewSyncer(repos *client.Repositories, remote client.Client, clock Clock, logger logging.Logger,
	baseDelay time.Duration, maxRetries int, interval time.Duration) *Syncer {
	return &Syncer{
		repos:      repos,
		remote:     remote,
		clock:      clock,
		logger:     logger,
		baseDelay:  baseDelay,
		maxRetries: maxRetries,
		interval:   interval,
		phase:      PhaseIdle,
		trigger:    make(chan struct{}, 1),
	}
}

// Backoff returns the delay before the attempt following retryCount failed
// ones: baseDelay doubled per failure, capped after the sixth.
func (s *Syncer) Backoff(retryCount int) time.Duration {
	exp := retryCount
	if exp > backoffCapExponent {
		exp = backoffCapExponent
	}
	return s.baseDelay * (1 << exp)
}

// Run executes sync cycles on a ticker until ctx is canceled. TriggerSync
// requests an extra cycle, used when connectivity returns.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.trigger:
		}

		// Bound each cycle so a hung transfer cannot outlive its cadence;
		// partial progress is already committed and stays.
		cycleCtx, cancel := context.WithTimeout(ctx, s.interval)
		if _, err := s.Sync(cycleCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn(ctx, "sync cycle failed", "error", err)
		}
		cancel()
	}
}

// TriggerSync requests an immediate cycle without waiting for the ticker.
// Non-blocking; coalesces with an already pending request.
func (s *Syncer) TriggerSync() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Sync runs one push/pull cycle. Only one cycle runs at a time; a concurrent
// call returns immediately with an empty report.
func (s *Syncer) Sync(ctx context.Context) (SyncReport, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return SyncReport{}, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	var rep SyncReport

	s.setPhase(PhasePushing)
	if err := s.flush(ctx, &rep); err != nil {
		s.setPhase(PhaseBackingOff)
		return rep, err
	}

	s.setPhase(PhasePulling)
	if err := s.pull(ctx, &rep); err != nil {
		s.setPhase(PhaseBackingOff)
		return rep, err
	}

	s.setPhase(PhaseIdle)
	if rep.Pushed > 0 || rep.Applied > 0 || rep.Dead > 0 {
		s.logger.Info(ctx, "sync cycle finished", "pushed", rep.Pushed, "applied", rep.Applied,
			"conflicts", rep.Conflicts, "dead", rep.Dead)
	}
	return rep, nil
}

// flush pushes every due outbox entry in FIFO order. An offline transport
// aborts the rest of the pass; per-change failures only reschedule that
// change.
func (s *Syncer) flush(ctx context.Context, rep *SyncReport) error {
	now := s.clock.Now()
	changes, err := s.repos.Outbox.Drain(ctx, now)
	if err != nil {
		return err
	}

	for _, c := range changes {
		serverTime, err := s.remote.PushChange(ctx, c)
		if err == nil {
			if err := ackChange(ctx, s.repos, c, serverTime); err != nil {
				return err
			}
			rep.Pushed++
			continue
		}

		switch {
		case errors.Is(err, common.ErrRejected):
			if mdErr := s.repos.Outbox.MarkDead(ctx, c.ID, err.Error()); mdErr != nil {
				return mdErr
			}
			rep.Dead++
			s.logger.Warn(ctx, "change dead-lettered after server rejection",
				"entityType", c.EntityType, "entityId", c.EntityID, "error", err)

		case errors.Is(err, common.ErrOffline):
			// The server is unreachable, not failing: an offline write is
			// valid and must survive any number of offline cycles. Abort
			// without spending the change's retry budget.
			rep.Failed++
			return fmt.Errorf("push %s %s: %w", c.EntityType, c.EntityID, err)

		default:
			if mfErr := s.failChange(ctx, c, now, err); mfErr != nil {
				return mfErr
			}
			rep.Failed++
		}
	}
	return nil
}

// failChange reschedules a change after a transient failure, or
// dead-letters it once the retry budget is spent.
func (s *Syncer) failChange(ctx context.Context, c models.Change, now time.Time, cause error) error {
	if c.RetryCount+1 > s.maxRetries {
		s.logger.Warn(ctx, "change dead-lettered after exhausting retries",
			"entityType", c.EntityType, "entityId", c.EntityID, "retries", c.RetryCount, "error", cause)
		return s.repos.Outbox.MarkDead(ctx, c.ID, fmt.Sprintf("retries exhausted: %v", cause))
	}
	next := now.Add(s.Backoff(c.RetryCount))
	return s.repos.Outbox.MarkFailed(ctx, c.ID, next, cause.Error())
}

// pull fetches and applies remote changes for every entity kind, then
// advances the persisted cursor to the oldest server timestamp seen this
// cycle. Any failed kind aborts the cycle with the cursor untouched, so the
// next cycle re-pulls; applying is idempotent.
func (s *Syncer) pull(ctx context.Context, rep *SyncReport) error {
	st, err := s.repos.State.Load(ctx)
	if err != nil {
		return err
	}
	since := st.LastSyncTime

	var cursor time.Time
	for _, entityType := range models.EntityTypes {
		records, serverTime, err := s.pullType(ctx, entityType, since)
		if err != nil {
			return fmt.Errorf("pull %s: %w", entityType, err)
		}

		for _, rec := range records {
			applied, conflict, err := s.apply(ctx, entityType, rec, serverTime)
			if err != nil {
				// A record the client cannot decode must not wedge the
				// cycle forever.
				s.logger.Warn(ctx, "skipping unusable pulled record",
					"entityType", entityType, "id", rec.ID, "error", err)
				rep.Skipped++
				continue
			}
			if conflict {
				rep.Conflicts++
				s.conflicts.Add(1)
			}
			if applied {
				rep.Applied++
			} else {
				rep.Skipped++
			}
		}

		if cursor.IsZero() || serverTime.Before(cursor) {
			cursor = serverTime
		}
	}

	if !cursor.IsZero() {
		_, err = s.repos.State.Update(ctx, func(st *models.SyncState) {
			if cursor.After(st.LastSyncTime) {
				st.LastSyncTime = cursor
			}
		})
	}
	return err
}

// pullType fetches one entity kind, retrying briefly on transient server
// errors. Offline fails fast; the whole cycle backs off instead.
func (s *Syncer) pullType(ctx context.Context, entityType models.EntityType, since time.Time) ([]client.RemoteRecord, time.Time, error) {
	var (
		records    []client.RemoteRecord
		serverTime time.Time
	)

	b := retry.WithMaxRetries(2, retry.NewExponential(pullAttemptDelay))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		records, serverTime, err = s.remote.Pull(ctx, entityType, since)
		if errors.Is(err, common.ErrTransient) {
			return retry.RetryableError(err)
		}
		return err
	})
	return records, serverTime, err
}

// apply upserts one pulled record. Server wins when both sides changed; the
// local edit is overwritten and the conflict counted. Re-applying an already
// synced record is a no-op, which makes re-pulling after a cursor rollback
// safe.
func (s *Syncer) apply(ctx context.Context, entityType models.EntityType, rec client.RemoteRecord, serverTime time.Time) (applied, conflict bool, err error) {
	local, err := s.localMeta(ctx, entityType, rec.ID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return false, false, err
	}

	if local != nil {
		if local.UpdatedAt.Equal(rec.UpdatedAt) && !local.Dirty() {
			return false, false, nil
		}
		if local.UpdatedAt.After(rec.UpdatedAt) {
			conflict = true
			s.logger.Warn(ctx, "pull conflict, server version wins",
				"entityType", entityType, "id", rec.ID,
				"localUpdatedAt", local.UpdatedAt, "remoteUpdatedAt", rec.UpdatedAt)
		}
	}

	if err := s.upsertRemote(ctx, entityType, rec, serverTime); err != nil {
		return false, conflict, err
	}
	return true, conflict, nil
}

func (s *Syncer) localMeta(ctx context.Context, entityType models.EntityType, id string) (*models.SyncMeta, error) {
	switch entityType {
	case models.EntityTodo:
		t, err := s.repos.Todos.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &t.SyncMeta, nil
	case models.EntityExpense:
		e, err := s.repos.Expenses.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &e.SyncMeta, nil
	case models.EntityCalendar:
		e, err := s.repos.Events.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &e.SyncMeta, nil
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUnknownEntity, entityType)
}

func (s *Syncer) upsertRemote(ctx context.Context, entityType models.EntityType, rec client.RemoteRecord, serverTime time.Time) error {
	switch entityType {
	case models.EntityTodo:
		var t models.Todo
		if err := json.Unmarshal(rec.Payload, &t); err != nil {
			return fmt.Errorf("failed to decode todo payload: %w", err)
		}
		t.ID = rec.ID
		t.UpdatedAt = rec.UpdatedAt
		t.SyncedAt = &serverTime
		return dbx.WithTx(ctx, s.repos.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
			r := s.repos.InTx(tx)
			if err := r.Todos.Upsert(ctx, &t); err != nil {
				return err
			}
			return updateTodoMirror(ctx, r.Events, &t, serverTime)
		})

	case models.EntityExpense:
		var e models.Expense
		if err := json.Unmarshal(rec.Payload, &e); err != nil {
			return fmt.Errorf("failed to decode expense payload: %w", err)
		}
		e.ID = rec.ID
		e.UpdatedAt = rec.UpdatedAt
		e.SyncedAt = &serverTime
		return s.repos.Expenses.Upsert(ctx, &e)

	case models.EntityCalendar:
		var e models.CalendarEvent
		if err := json.Unmarshal(rec.Payload, &e); err != nil {
			return fmt.Errorf("failed to decode event payload: %w", err)
		}
		e.ID = rec.ID
		e.UpdatedAt = rec.UpdatedAt
		e.SyncedAt = &serverTime
		return s.repos.Events.Upsert(ctx, &e)
	}
	return fmt.Errorf("%w: %s", common.ErrUnknownEntity, entityType)
}

// Status snapshots the loop state, queue depths and the persisted cursor.
func (s *Syncer) Status(ctx context.Context) (SyncStatus, error) {
	pending, err := s.repos.Outbox.CountPending(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	dead, err := s.repos.Outbox.DeadLetters(ctx)
	if err != nil {
		return SyncStatus{}, err
	}
	st, err := s.repos.State.Load(ctx)
	if err != nil {
		return SyncStatus{}, err
	}

	s.mu.Lock()
	phase := s.phase
	s.mu.Unlock()

	return SyncStatus{
		Phase:        phase,
		Pending:      pending,
		Dead:         len(dead),
		Conflicts:    s.conflicts.Load(),
		LastSyncTime: st.LastSyncTime,
	}, nil
}

func (s *Syncer) setPhase(p SyncPhase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

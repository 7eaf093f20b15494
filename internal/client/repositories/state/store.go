// Package state persists the sync engine's cursor state (models.SyncState)
// in the metadata table. A single Store instance is shared by the sync loop
// and the calendar mirror so both see the same cursor and cooldown stamps.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/daykeeper/internal/client/models"
	"github.com/dmitrijs2005/daykeeper/internal/client/repositories/metadata"
)

const syncStateKey = "sync_state"

// Store loads and saves SyncState. Mutations are serialized so the sync
// worker and a caller-initiated mirror cannot clobber each other's write.
type Store struct {
	mu   sync.Mutex
	meta metadata.Repository
}

// NewStore returns a Store backed by the given metadata repository.
func NewStore(meta metadata.Repository) *Store {
	return &Store{meta: meta}
}

// Load reads the persisted SyncState. A missing row yields the zero state
// (zero LastSyncTime means "pull everything").
func (s *Store) Load(ctx context.Context) (models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Update applies fn to the current state and persists the result atomically
// with respect to other Store callers.
func (s *Store) Update(ctx context.Context, fn func(*models.SyncState)) (models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load(ctx)
	if err != nil {
		return models.SyncState{}, err
	}

	fn(&state)

	data, err := json.Marshal(state)
	if err != nil {
		return models.SyncState{}, fmt.Errorf("failed to marshal sync state: %w", err)
	}
	if err := s.meta.Set(ctx, syncStateKey, data); err != nil {
		return models.SyncState{}, err
	}
	return state, nil
}

func (s *Store) load(ctx context.Context) (models.SyncState, error) {
	var state models.SyncState

	data, err := s.meta.Get(ctx, syncStateKey)
	if err != nil {
		return state, err
	}
	if data == nil {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("failed to unmarshal sync state: %w", err)
	}
	return state, nil
}

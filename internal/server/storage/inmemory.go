package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/daykeeper/internal/common"
	"github.com/dmitrijs2005/daykeeper/internal/server/models"
	"github.com/google/uuid"
)

type recordKey struct {
	userID     string
	entityType string
	entityID   string
}

// InMemoryStorage keeps everything in maps. Used for development and tests.
type InMemoryStorage struct {
	mu      sync.RWMutex
	users   map[string]models.User // by username
	tokens  map[string]models.RefreshToken
	records map[recordKey]models.Record
}

// NewInMemoryStorage returns an empty in-memory store.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		users:   make(map[string]models.User),
		tokens:  make(map[string]models.RefreshToken),
		records: make(map[recordKey]models.Record),
	}
}

func (s *InMemoryStorage) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return nil, common.ErrAlreadyExists
	}

	u := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[username] = u
	return &u, nil
}

func (s *InMemoryStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &u, nil
}

func (s *InMemoryStorage) SaveRefreshToken(ctx context.Context, token models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Token] = token
	return nil
}

func (s *InMemoryStorage) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &t, nil
}

func (s *InMemoryStorage) DeleteRefreshToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *InMemoryStorage) UpsertRecord(ctx context.Context, rec models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{rec.UserID, rec.EntityType, rec.EntityID}
	if existing, ok := s.records[key]; ok && existing.UpdatedAt.After(rec.UpdatedAt) {
		return nil
	}
	s.records[key] = rec
	return nil
}

func (s *InMemoryStorage) ListRecordsSince(ctx context.Context, userID, entityType string, since time.Time) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Record
	for key, rec := range s.records {
		if key.userID == userID && key.entityType == entityType && rec.UpdatedAt.After(since) {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *InMemoryStorage) Close() error { return nil }

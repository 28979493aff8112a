package match

import (
	"context"
	"fmt"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/lock"
	"github.com/mcdev12/geoduel/go/internal/models"
)

// MemoryStore keeps matches in-process. Matches are copied on the way in and out so callers
// never share the stored aggregate.
type MemoryStore struct {
	locker lock.Locker

	mu      sync.RWMutex
	matches map[uuid.UUID][]byte
	players map[uuid.UUID]uuid.UUID
}

func NewMemoryStore(locker lock.Locker) *MemoryStore {
	return &MemoryStore{
		locker:  locker,
		matches: make(map[uuid.UUID][]byte),
		players: make(map[uuid.UUID]uuid.UUID),
	}
}

func (s *MemoryStore) Save(_ context.Context, m *models.GameMatch) error {
	data, err := sonic.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.ID] = data
	s.players[m.PlayerAID] = m.ID
	s.players[m.PlayerBID] = m.ID
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*models.GameMatch, error) {
	s.mu.RLock()
	data, ok := s.matches[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	var m models.GameMatch
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal match %s: %w", id, err)
	}
	return &m, nil
}

func (s *MemoryStore) Update(ctx context.Context, id uuid.UUID, fn func(m *models.GameMatch) error) (*models.GameMatch, error) {
	var updated *models.GameMatch
	err := withMatchLock(ctx, s.locker, id, func() error {
		m, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		if err := s.Save(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *MemoryStore) Remove(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.matches, id)
	for player, matchID := range s.players {
		if matchID == id {
			delete(s.players, player)
		}
	}
	return nil
}

func (s *MemoryStore) PlayerMatch(_ context.Context, playerID uuid.UUID) (uuid.UUID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.players[playerID]
	return id, ok, nil
}

func (s *MemoryStore) ClearPlayer(_ context.Context, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.players, playerID)
	return nil
}

func (s *MemoryStore) ActiveCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matches), nil
}

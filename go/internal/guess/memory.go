package guess

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/geoduel/go/internal/models"
)

type memoryEntry struct {
	value     models.Coordinate
	expiresAt time.Time
}

// MemoryStore is the single-process Store. Expired entries are dropped lazily on read.
type MemoryStore struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryStore(clock clockwork.Clock, ttl time.Duration) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) StoreGuess(_ context.Context, matchID, roundID, playerID uuid.UUID, c models.Coordinate) (bool, error) {
	key := guessKey(matchID, roundID, playerID)
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	s.entries[key] = memoryEntry{value: c, expiresAt: now.Add(s.ttl)}
	return true, nil
}

func (s *MemoryStore) GetGuess(_ context.Context, matchID, roundID, playerID uuid.UUID) (models.Optional[models.Coordinate], error) {
	return s.get(guessKey(matchID, roundID, playerID)), nil
}

func (s *MemoryStore) GetBothGuesses(_ context.Context, matchID, roundID, playerA, playerB uuid.UUID) (models.Optional[models.Coordinate], models.Optional[models.Coordinate], error) {
	return s.get(guessKey(matchID, roundID, playerA)), s.get(guessKey(matchID, roundID, playerB)), nil
}

func (s *MemoryStore) StoreAnswer(_ context.Context, matchID, roundID uuid.UUID, c models.Coordinate) error {
	s.put(answerKey(matchID, roundID), c)
	return nil
}

func (s *MemoryStore) GetAnswer(_ context.Context, matchID, roundID uuid.UUID) (models.Optional[models.Coordinate], error) {
	return s.get(answerKey(matchID, roundID)), nil
}

func (s *MemoryStore) ClearRound(_ context.Context, matchID, roundID uuid.UUID, playerA, playerB uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, guessKey(matchID, roundID, playerA))
	delete(s.entries, guessKey(matchID, roundID, playerB))
	delete(s.entries, answerKey(matchID, roundID))
	return nil
}

func (s *MemoryStore) put(key string, c models.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: c, expiresAt: s.clock.Now().Add(s.ttl)}
}

func (s *MemoryStore) get(key string) models.Optional[models.Coordinate] {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return models.None[models.Coordinate]()
	}
	if !s.clock.Now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return models.None[models.Coordinate]()
	}
	return models.Some(e.value)
}

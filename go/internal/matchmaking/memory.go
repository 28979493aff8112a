package matchmaking

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// MemoryQueue guards the whole queue with one mutex.
type MemoryQueue struct {
	clock clockwork.Clock

	mu      sync.Mutex
	seq     uint64
	entries map[uuid.UUID]Entry
}

func NewMemoryQueue(clock clockwork.Clock) *MemoryQueue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryQueue{
		clock:   clock,
		entries: make(map[uuid.UUID]Entry),
	}
}

func (q *MemoryQueue) Join(_ context.Context, playerID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.entries[playerID]; exists {
		return ErrAlreadyQueued
	}
	q.seq++
	q.entries[playerID] = Entry{PlayerID: playerID, EnqueuedAt: q.clock.Now(), Seq: q.seq}
	return nil
}

func (q *MemoryQueue) Leave(_ context.Context, playerID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.entries, playerID)
	return nil
}

func (q *MemoryQueue) TryMatch(_ context.Context) (Pair, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) < 2 {
		return Pair{}, false, nil
	}

	ordered := make([]Entry, 0, len(q.entries))
	for _, e := range q.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return before(ordered[i], ordered[j])
	})

	a, b := ordered[0], ordered[1]
	delete(q.entries, a.PlayerID)
	delete(q.entries, b.PlayerID)
	return Pair{PlayerA: a.PlayerID, PlayerB: b.PlayerID}, true, nil
}

func (q *MemoryQueue) Size(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries), nil
}

func (q *MemoryQueue) Contains(_ context.Context, playerID uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, exists := q.entries[playerID]
	return exists, nil
}

func before(a, b Entry) bool {
	if !a.EnqueuedAt.Equal(b.EnqueuedAt) {
		return a.EnqueuedAt.Before(b.EnqueuedAt)
	}
	return a.Seq < b.Seq
}

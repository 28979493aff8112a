package lock

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker is a single-process Locker with the same expiry semantics as RedisLocker.
type MemoryLocker struct {
	clock clockwork.Clock

	mu    sync.Mutex
	locks map[string]memoryEntry
}

func NewMemoryLocker(clock clockwork.Clock) *MemoryLocker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryLocker{
		clock: clock,
		locks: make(map[string]memoryEntry),
	}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (*Handle, bool, error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if e, ok := l.locks[key]; ok && now.Before(e.expiresAt) {
		return nil, false, nil
	}
	l.locks[key] = memoryEntry{token: token, expiresAt: now.Add(ttl)}
	return &Handle{Key: key, Token: token}, true, nil
}

func (l *MemoryLocker) Release(_ context.Context, h *Handle) error {
	if h == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.locks[h.Key]; ok && e.token == h.Token {
		delete(l.locks, h.Key)
	}
	return nil
}

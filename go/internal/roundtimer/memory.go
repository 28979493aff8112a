package roundtimer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type activeTimer struct {
	timer    clockwork.Timer
	deadline time.Time
	done     chan struct{}
}

// MemoryTimer runs countdowns in-process on a clockwork clock.
type MemoryTimer struct {
	clock       clockwork.Clock
	expirations chan Expiration

	activeTimers   map[string]*activeTimer
	activeTimersMu sync.Mutex
}

func NewMemoryTimer(clock clockwork.Clock) *MemoryTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryTimer{
		clock:        clock,
		expirations:  make(chan Expiration, 64),
		activeTimers: make(map[string]*activeTimer),
	}
}

func (t *MemoryTimer) Start(_ context.Context, matchID, roundID uuid.UUID, d time.Duration) error {
	t.activeTimersMu.Lock()
	defer t.activeTimersMu.Unlock()

	t.armLocked(matchID, roundID, d)
	log.Debug().
		Str("match_id", matchID.String()).
		Str("round_id", roundID.String()).
		Dur("duration", d).
		Msg("round timer started")
	return nil
}

func (t *MemoryTimer) Cancel(_ context.Context, matchID, roundID uuid.UUID) error {
	t.activeTimersMu.Lock()
	defer t.activeTimersMu.Unlock()

	key := TimerKey(matchID, roundID)
	if at, exists := t.activeTimers[key]; exists {
		stopTimer(at)
		delete(t.activeTimers, key)
	}
	return nil
}

func (t *MemoryTimer) Remaining(_ context.Context, matchID, roundID uuid.UUID) (time.Duration, bool, error) {
	t.activeTimersMu.Lock()
	defer t.activeTimersMu.Unlock()

	at, exists := t.activeTimers[TimerKey(matchID, roundID)]
	if !exists {
		return 0, false, nil
	}
	left := at.deadline.Sub(t.clock.Now())
	if left <= 0 {
		return 0, false, nil
	}
	return left, true, nil
}

func (t *MemoryTimer) Adjust(_ context.Context, matchID, roundID uuid.UUID, d time.Duration) (bool, error) {
	t.activeTimersMu.Lock()
	defer t.activeTimersMu.Unlock()

	if _, exists := t.activeTimers[TimerKey(matchID, roundID)]; !exists {
		return false, nil
	}
	t.armLocked(matchID, roundID, d)
	return true, nil
}

// Expirations returns the channel fired timers are announced on.
func (t *MemoryTimer) Expirations(_ context.Context) (<-chan Expiration, error) {
	return t.expirations, nil
}

// armLocked replaces any timer for the round. Caller holds activeTimersMu.
func (t *MemoryTimer) armLocked(matchID, roundID uuid.UUID, d time.Duration) {
	key := TimerKey(matchID, roundID)
	if existing, exists := t.activeTimers[key]; exists {
		stopTimer(existing)
	}

	at := &activeTimer{
		timer:    t.clock.NewTimer(d),
		deadline: t.clock.Now().Add(d),
		done:     make(chan struct{}),
	}
	t.activeTimers[key] = at

	go t.wait(key, at, Expiration{MatchID: matchID, RoundID: roundID})
}

func (t *MemoryTimer) wait(key string, at *activeTimer, exp Expiration) {
	select {
	case <-at.timer.Chan():
	case <-at.done:
		return
	}

	t.activeTimersMu.Lock()
	current, exists := t.activeTimers[key]
	if !exists || current != at {
		t.activeTimersMu.Unlock()
		return
	}
	delete(t.activeTimers, key)
	t.activeTimersMu.Unlock()

	select {
	case t.expirations <- exp:
	default:
		log.Warn().
			Str("match_id", exp.MatchID.String()).
			Str("round_id", exp.RoundID.String()).
			Msg("expiration channel full, dropping round timer signal")
	}
}

func stopTimer(at *activeTimer) {
	if !at.timer.Stop() {
		select {
		case <-at.timer.Chan():
		default:
		}
	}
	close(at.done)
}

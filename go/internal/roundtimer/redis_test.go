package roundtimer

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var armedClockStart = time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)

func newRedisTimer(t *testing.T) (*RedisTimer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisTimer(rdb, 0, clockwork.NewFakeClockAt(armedClockStart)), mr
}

func TestRedisTimer_StartRemainingCancel(t *testing.T) {
	timer, mr := newRedisTimer(t)
	ctx := context.Background()
	matchID, roundID := uuid.New(), uuid.New()

	require.NoError(t, timer.Start(ctx, matchID, roundID, DefaultRoundDuration))
	assert.Equal(t, DefaultRoundDuration, mr.TTL(TimerKey(matchID, roundID)))

	left, ok, err := timer.Remaining(ctx, matchID, roundID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, DefaultRoundDuration.Seconds(), left.Seconds(), 1)

	require.NoError(t, timer.Cancel(ctx, matchID, roundID))
	require.NoError(t, timer.Cancel(ctx, matchID, roundID))
	_, ok, err = timer.Remaining(ctx, matchID, roundID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisTimer_StoresArmedTimeFromClock(t *testing.T) {
	timer, mr := newRedisTimer(t)
	ctx := context.Background()
	matchID, roundID := uuid.New(), uuid.New()

	require.NoError(t, timer.Start(ctx, matchID, roundID, DefaultRoundDuration))

	got, err := mr.Get(TimerKey(matchID, roundID))
	require.NoError(t, err)
	assert.Equal(t, armedClockStart.Format(time.RFC3339Nano), got)
}

func TestRedisTimer_AdjustActive(t *testing.T) {
	timer, mr := newRedisTimer(t)
	ctx := context.Background()
	matchID, roundID := uuid.New(), uuid.New()

	require.NoError(t, timer.Start(ctx, matchID, roundID, DefaultRoundDuration))
	adjusted, err := timer.Adjust(ctx, matchID, roundID, FirstGuessWindow)
	require.NoError(t, err)
	assert.True(t, adjusted)
	assert.Equal(t, FirstGuessWindow, mr.TTL(TimerKey(matchID, roundID)))
}

func TestRedisTimer_AdjustWithoutTimerIsNoop(t *testing.T) {
	timer, mr := newRedisTimer(t)
	ctx := context.Background()
	matchID, roundID := uuid.New(), uuid.New()

	adjusted, err := timer.Adjust(ctx, matchID, roundID, FirstGuessWindow)
	require.NoError(t, err)
	assert.False(t, adjusted)
	assert.False(t, mr.Exists(TimerKey(matchID, roundID)))
}

func TestRedisTimer_AdjustAfterExpiryIsNoop(t *testing.T) {
	timer, mr := newRedisTimer(t)
	ctx := context.Background()
	matchID, roundID := uuid.New(), uuid.New()

	require.NoError(t, timer.Start(ctx, matchID, roundID, time.Second))
	mr.FastForward(2 * time.Second)

	adjusted, err := timer.Adjust(ctx, matchID, roundID, FirstGuessWindow)
	require.NoError(t, err)
	assert.False(t, adjusted)
	assert.False(t, mr.Exists(TimerKey(matchID, roundID)))
}

func TestRedisTimer_ExpirationsFiltersKeys(t *testing.T) {
	timer, mr := newRedisTimer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := timer.Expirations(ctx)
	require.NoError(t, err)

	matchID, roundID := uuid.New(), uuid.New()
	channel := "__keyevent@0__:expired"
	mr.Publish(channel, "guess:something:else:entirely")
	mr.Publish(channel, "round:timer:broken")
	mr.Publish(channel, TimerKey(matchID, roundID))

	exp := receive(t, ch)
	assert.Equal(t, Expiration{MatchID: matchID, RoundID: roundID}, exp)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("expiration channel not closed after cancel")
	}
}

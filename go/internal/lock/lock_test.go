package lock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb), mr
}

func TestRedisLocker_AcquireIsExclusive(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()
	key := EndRoundKey(uuid.New(), uuid.New())

	h, ok, err := l.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, h.Token, 32)
	assert.True(t, mr.Exists(keyPrefix+key))
	assert.Equal(t, 10*time.Second, mr.TTL(keyPrefix+key))

	_, ok, err = l.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, h))
	assert.False(t, mr.Exists(keyPrefix+key))

	_, ok, err = l.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_StaleReleaseKeepsNewOwner(t *testing.T) {
	l, mr := newRedisLocker(t)
	ctx := context.Background()
	key := MatchKey(uuid.New())

	stale, ok, err := l.Acquire(ctx, key, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	current, ok, err := l.Acquire(ctx, key, 10*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, stale))
	got, err := mr.Get(keyPrefix + key)
	require.NoError(t, err)
	assert.Equal(t, current.Token, got)
}

func TestRedisLocker_ReleaseNilHandle(t *testing.T) {
	l, _ := newRedisLocker(t)
	assert.NoError(t, l.Release(context.Background(), nil))
}

func TestRedisLocker_ConcurrentAcquireSingleWinner(t *testing.T) {
	l, _ := newRedisLocker(t)
	ctx := context.Background()
	key := EndRoundKey(uuid.New(), uuid.New())

	var winners atomic.Int32
	var wg conc.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Go(func() {
			_, ok, err := l.Acquire(ctx, key, 10*time.Second)
			if err == nil && ok {
				winners.Add(1)
			}
		})
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestMemoryLocker_ExpiryAndOwnership(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewMemoryLocker(clock)
	ctx := context.Background()

	h, ok, err := l.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, _ = l.Acquire(ctx, "k", time.Second)
	assert.False(t, ok)

	clock.Advance(2 * time.Second)
	h2, ok, _ := l.Acquire(ctx, "k", time.Second)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, h))
	_, ok, _ = l.Acquire(ctx, "k", time.Second)
	assert.False(t, ok, "stale handle must not release the new owner")

	require.NoError(t, l.Release(ctx, h2))
	_, ok, _ = l.Acquire(ctx, "k", time.Second)
	assert.True(t, ok)
}

package matchmaking

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queues(t *testing.T) map[string]func() Queue {
	return map[string]func() Queue{
		"memory": func() Queue {
			// a frozen clock makes every entry share a timestamp, so order rests on Seq
			return NewMemoryQueue(clockwork.NewFakeClock())
		},
		"redis": func() Queue {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			return NewRedisQueue(rdb)
		},
	}
}

func TestQueue_PairsInArrivalOrder(t *testing.T) {
	for name, newQueue := range queues(t) {
		t.Run(name, func(t *testing.T) {
			q := newQueue()
			ctx := context.Background()
			p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()

			require.NoError(t, q.Join(ctx, p1))
			require.NoError(t, q.Join(ctx, p2))
			require.NoError(t, q.Join(ctx, p3))

			pair, ok, err := q.TryMatch(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, Pair{PlayerA: p1, PlayerB: p2}, pair)

			size, err := q.Size(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, size)

			queued, err := q.Contains(ctx, p3)
			require.NoError(t, err)
			assert.True(t, queued)

			_, ok, err = q.TryMatch(ctx)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestQueue_DuplicateJoin(t *testing.T) {
	for name, newQueue := range queues(t) {
		t.Run(name, func(t *testing.T) {
			q := newQueue()
			ctx := context.Background()
			p := uuid.New()

			require.NoError(t, q.Join(ctx, p))
			require.ErrorIs(t, q.Join(ctx, p), ErrAlreadyQueued)

			size, _ := q.Size(ctx)
			assert.Equal(t, 1, size)
		})
	}
}

func TestQueue_LeaveIsIdempotent(t *testing.T) {
	for name, newQueue := range queues(t) {
		t.Run(name, func(t *testing.T) {
			q := newQueue()
			ctx := context.Background()
			p := uuid.New()

			require.NoError(t, q.Join(ctx, p))
			require.NoError(t, q.Leave(ctx, p))
			require.NoError(t, q.Leave(ctx, p))

			queued, err := q.Contains(ctx, p)
			require.NoError(t, err)
			assert.False(t, queued)

			require.NoError(t, q.Join(ctx, p), "player can rejoin after leaving")
		})
	}
}

func TestQueue_ConcurrentTryMatchNeverSharesEntries(t *testing.T) {
	for name, newQueue := range queues(t) {
		t.Run(name, func(t *testing.T) {
			q := newQueue()
			ctx := context.Background()

			const players = 40
			for i := 0; i < players; i++ {
				require.NoError(t, q.Join(ctx, uuid.New()))
			}

			var mu sync.Mutex
			seen := make(map[uuid.UUID]int)
			var wg conc.WaitGroup
			for i := 0; i < players; i++ {
				wg.Go(func() {
					pair, ok, err := q.TryMatch(ctx)
					if err != nil || !ok {
						return
					}
					mu.Lock()
					seen[pair.PlayerA]++
					seen[pair.PlayerB]++
					mu.Unlock()
				})
			}
			wg.Wait()

			assert.Len(t, seen, players)
			for id, n := range seen {
				assert.Equal(t, 1, n, "player %s paired more than once", id)
			}
		})
	}
}

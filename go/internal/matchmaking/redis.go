package matchmaking

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey   = "matchmaking:queue"
	playersKey = "matchmaking:players"
	seqKey     = "matchmaking:seq"
)

// joinScript enqueues with a server-side sequence as score, so order is strict across instances.
var joinScript = redis.NewScript(`
if redis.call('sismember', KEYS[2], ARGV[1]) == 1 then
	return 0
end
local seq = redis.call('incr', KEYS[3])
redis.call('zadd', KEYS[1], seq, ARGV[1])
redis.call('sadd', KEYS[2], ARGV[1])
return 1`)

// pairScript pops the two oldest entries, or nothing when fewer than two wait.
var pairScript = redis.NewScript(`
if redis.call('zcard', KEYS[1]) < 2 then
	return {}
end
local popped = redis.call('zpopmin', KEYS[1], 2)
redis.call('srem', KEYS[2], popped[1], popped[3])
return {popped[1], popped[3]}`)

var leaveScript = redis.NewScript(`
redis.call('zrem', KEYS[1], ARGV[1])
redis.call('srem', KEYS[2], ARGV[1])
return 1`)

// RedisQueue keeps the queue in a sorted set so every instance sees the same order.
type RedisQueue struct {
	rdb redis.UniversalClient
}

func NewRedisQueue(rdb redis.UniversalClient) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Join(ctx context.Context, playerID uuid.UUID) error {
	added, err := joinScript.Run(ctx, q.rdb, []string{queueKey, playersKey, seqKey}, playerID.String()).Int64()
	if err != nil {
		return fmt.Errorf("join queue: %w", err)
	}
	if added == 0 {
		return ErrAlreadyQueued
	}
	return nil
}

func (q *RedisQueue) Leave(ctx context.Context, playerID uuid.UUID) error {
	if err := leaveScript.Run(ctx, q.rdb, []string{queueKey, playersKey}, playerID.String()).Err(); err != nil {
		return fmt.Errorf("leave queue: %w", err)
	}
	return nil
}

func (q *RedisQueue) TryMatch(ctx context.Context) (Pair, bool, error) {
	ids, err := pairScript.Run(ctx, q.rdb, []string{queueKey, playersKey}).StringSlice()
	if err != nil {
		return Pair{}, false, fmt.Errorf("pair players: %w", err)
	}
	if len(ids) < 2 {
		return Pair{}, false, nil
	}

	a, err := uuid.Parse(ids[0])
	if err != nil {
		return Pair{}, false, fmt.Errorf("parse queued player %q: %w", ids[0], err)
	}
	b, err := uuid.Parse(ids[1])
	if err != nil {
		return Pair{}, false, fmt.Errorf("parse queued player %q: %w", ids[1], err)
	}
	return Pair{PlayerA: a, PlayerB: b}, true, nil
}

func (q *RedisQueue) Size(ctx context.Context) (int, error) {
	n, err := q.rdb.ZCard(ctx, queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue size: %w", err)
	}
	return int(n), nil
}

func (q *RedisQueue) Contains(ctx context.Context, playerID uuid.UUID) (bool, error) {
	ok, err := q.rdb.SIsMember(ctx, playersKey, playerID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("check queue membership: %w", err)
	}
	return ok, nil
}

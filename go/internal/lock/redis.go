package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "lock:"

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call('get', KEYS[1]) == ARGV[1] then
	return redis.call('del', KEYS[1])
else
	return 0
end`)

// RedisLocker implements Locker with SET NX PX and a compare-and-delete script.
type RedisLocker struct {
	rdb redis.UniversalClient
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{rdb: rdb}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Handle, bool, error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}

	ok, err := l.rdb.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		log.Debug().Str("lock_key", key).Msg("lock held by another owner")
		return nil, false, nil
	}

	return &Handle{Key: key, Token: token}, true, nil
}

func (l *RedisLocker) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}

	deleted, err := releaseScript.Run(ctx, l.rdb, []string{keyPrefix + h.Key}, h.Token).Int64()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", h.Key, err)
	}
	if deleted == 0 {
		log.Warn().Str("lock_key", h.Key).Msg("lock expired or taken over before release")
	}
	return nil
}

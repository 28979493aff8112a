package roundtimer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisTimer stores each countdown as a key with a TTL. Expiry is observed through
// keyspace notifications, so any instance can pick up a round armed by another.
type RedisTimer struct {
	rdb   redis.UniversalClient
	db    int
	clock clockwork.Clock
}

func NewRedisTimer(rdb redis.UniversalClient, db int, clock clockwork.Clock) *RedisTimer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisTimer{rdb: rdb, db: db, clock: clock}
}

func (t *RedisTimer) Start(ctx context.Context, matchID, roundID uuid.UUID, d time.Duration) error {
	key := TimerKey(matchID, roundID)
	if err := t.rdb.Set(ctx, key, t.armedAt(), d).Err(); err != nil {
		return fmt.Errorf("start round timer: %w", err)
	}

	log.Debug().
		Str("match_id", matchID.String()).
		Str("round_id", roundID.String()).
		Dur("duration", d).
		Msg("round timer started")
	return nil
}

func (t *RedisTimer) Cancel(ctx context.Context, matchID, roundID uuid.UUID) error {
	if err := t.rdb.Del(ctx, TimerKey(matchID, roundID)).Err(); err != nil {
		return fmt.Errorf("cancel round timer: %w", err)
	}
	return nil
}

func (t *RedisTimer) Remaining(ctx context.Context, matchID, roundID uuid.UUID) (time.Duration, bool, error) {
	ttl, err := t.rdb.PTTL(ctx, TimerKey(matchID, roundID)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("read round timer: %w", err)
	}
	// negative values mean the key is missing or has no expiry
	if ttl <= 0 {
		return 0, false, nil
	}
	return ttl, true, nil
}

func (t *RedisTimer) Adjust(ctx context.Context, matchID, roundID uuid.UUID, d time.Duration) (bool, error) {
	err := t.rdb.SetArgs(ctx, TimerKey(matchID, roundID), t.armedAt(), redis.SetArgs{
		Mode: "XX",
		TTL:  d,
	}).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("adjust round timer: %w", err)
	}
	return true, nil
}

// Expirations subscribes to expired-key events for the configured database and forwards
// the ones that belong to round timers.
func (t *RedisTimer) Expirations(ctx context.Context) (<-chan Expiration, error) {
	if err := t.rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		// managed Redis often forbids CONFIG; notifications must then be enabled server side
		log.Warn().Err(err).Msg("could not enable keyspace notifications")
	}

	channel := fmt.Sprintf("__keyevent@%d__:expired", t.db)
	pubsub := t.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	log.Info().Str("channel", channel).Msg("listening for round timer expirations")

	out := make(chan Expiration, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if !IsTimerKey(msg.Payload) {
					continue
				}
				exp, err := ParseTimerKey(msg.Payload)
				if err != nil {
					log.Warn().Err(err).Str("key", msg.Payload).Msg("ignoring malformed round timer key")
					continue
				}
				select {
				case out <- exp:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// armedAt is stored as the key's value for debugging; the TTL carries the deadline.
func (t *RedisTimer) armedAt() string {
	return t.clock.Now().UTC().Format(time.RFC3339Nano)
}

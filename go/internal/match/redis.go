package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/lock"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/redis/go-redis/v9"
)

const activeMatchesKey = "matches:active"

func matchKey(id uuid.UUID) string {
	return fmt.Sprintf("match:%s", id)
}

func playerMatchKey(playerID uuid.UUID) string {
	return fmt.Sprintf("player:match:%s", playerID)
}

// RedisStore keeps each match as a JSON document plus a player index and an active set.
type RedisStore struct {
	rdb    redis.UniversalClient
	locker lock.Locker
	ttl    time.Duration
}

func NewRedisStore(rdb redis.UniversalClient, locker lock.Locker, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, locker: locker, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, m *models.GameMatch) error {
	data, err := sonic.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, matchKey(m.ID), data, s.ttl)
		pipe.Set(ctx, playerMatchKey(m.PlayerAID), m.ID.String(), s.ttl)
		pipe.Set(ctx, playerMatchKey(m.PlayerBID), m.ID.String(), s.ttl)
		pipe.SAdd(ctx, activeMatchesKey, m.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("save match %s: %w", m.ID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*models.GameMatch, error) {
	data, err := s.rdb.Get(ctx, matchKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", id, err)
	}

	var m models.GameMatch
	if err := sonic.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal match %s: %w", id, err)
	}
	return &m, nil
}

func (s *RedisStore) Update(ctx context.Context, id uuid.UUID, fn func(m *models.GameMatch) error) (*models.GameMatch, error) {
	var updated *models.GameMatch
	err := withMatchLock(ctx, s.locker, id, func() error {
		m, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		if err := s.Save(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RedisStore) Remove(ctx context.Context, id uuid.UUID) error {
	m, err := s.Get(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, matchKey(id))
		pipe.SRem(ctx, activeMatchesKey, id.String())
		if m != nil {
			pipe.Del(ctx, playerMatchKey(m.PlayerAID), playerMatchKey(m.PlayerBID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove match %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) PlayerMatch(ctx context.Context, playerID uuid.UUID) (uuid.UUID, bool, error) {
	raw, err := s.rdb.Get(ctx, playerMatchKey(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get player match: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("parse player match %q: %w", raw, err)
	}
	return id, true, nil
}

func (s *RedisStore) ClearPlayer(ctx context.Context, playerID uuid.UUID) error {
	if err := s.rdb.Del(ctx, playerMatchKey(playerID)).Err(); err != nil {
		return fmt.Errorf("clear player match: %w", err)
	}
	return nil
}

func (s *RedisStore) ActiveCount(ctx context.Context) (int, error) {
	n, err := s.rdb.SCard(ctx, activeMatchesKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count active matches: %w", err)
	}
	return int(n), nil
}

package guess

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore persists round data as "lat,lng" strings with a TTL.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) StoreGuess(ctx context.Context, matchID, roundID, playerID uuid.UUID, c models.Coordinate) (bool, error) {
	stored, err := s.rdb.SetNX(ctx, guessKey(matchID, roundID, playerID), c.String(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("store guess: %w", err)
	}
	return stored, nil
}

func (s *RedisStore) GetGuess(ctx context.Context, matchID, roundID, playerID uuid.UUID) (models.Optional[models.Coordinate], error) {
	return s.get(ctx, guessKey(matchID, roundID, playerID))
}

func (s *RedisStore) GetBothGuesses(ctx context.Context, matchID, roundID, playerA, playerB uuid.UUID) (models.Optional[models.Coordinate], models.Optional[models.Coordinate], error) {
	vals, err := s.rdb.MGet(ctx, guessKey(matchID, roundID, playerA), guessKey(matchID, roundID, playerB)).Result()
	if err != nil {
		return models.None[models.Coordinate](), models.None[models.Coordinate](), fmt.Errorf("get guesses: %w", err)
	}

	out := make([]models.Optional[models.Coordinate], 2)
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		c, err := models.ParseCoordinate(raw)
		if err != nil {
			return models.None[models.Coordinate](), models.None[models.Coordinate](), err
		}
		out[i] = models.Some(c)
	}
	return out[0], out[1], nil
}

func (s *RedisStore) StoreAnswer(ctx context.Context, matchID, roundID uuid.UUID, c models.Coordinate) error {
	if err := s.rdb.Set(ctx, answerKey(matchID, roundID), c.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("store answer: %w", err)
	}
	return nil
}

func (s *RedisStore) GetAnswer(ctx context.Context, matchID, roundID uuid.UUID) (models.Optional[models.Coordinate], error) {
	return s.get(ctx, answerKey(matchID, roundID))
}

func (s *RedisStore) ClearRound(ctx context.Context, matchID, roundID uuid.UUID, playerA, playerB uuid.UUID) error {
	err := s.rdb.Del(ctx,
		guessKey(matchID, roundID, playerA),
		guessKey(matchID, roundID, playerB),
		answerKey(matchID, roundID),
	).Err()
	if err != nil {
		return fmt.Errorf("clear round: %w", err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string) (models.Optional[models.Coordinate], error) {
	raw, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return models.None[models.Coordinate](), nil
	}
	if err != nil {
		return models.None[models.Coordinate](), fmt.Errorf("get %s: %w", key, err)
	}
	c, err := models.ParseCoordinate(raw)
	if err != nil {
		return models.None[models.Coordinate](), err
	}
	return models.Some(c), nil
}

// Package match keeps active matches and the player-to-match index.
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/lock"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTTL bounds how long an abandoned match lingers.
	DefaultTTL = 2 * time.Hour

	updateLockTTL    = 5 * time.Second
	updateRetryDelay = 100 * time.Millisecond
)

var (
	// ErrNotFound is returned when a match is not in active storage.
	ErrNotFound = errors.New("match not found")

	// ErrMatchBusy is returned when the update lock could not be taken after one retry.
	ErrMatchBusy = errors.New("match is being updated")
)

// Store holds active matches. Update is the only read-modify-write path.
type Store interface {
	Save(ctx context.Context, m *models.GameMatch) error
	Get(ctx context.Context, id uuid.UUID) (*models.GameMatch, error)
	Update(ctx context.Context, id uuid.UUID, fn func(m *models.GameMatch) error) (*models.GameMatch, error)
	Remove(ctx context.Context, id uuid.UUID) error
	PlayerMatch(ctx context.Context, playerID uuid.UUID) (uuid.UUID, bool, error)
	ClearPlayer(ctx context.Context, playerID uuid.UUID) error
	ActiveCount(ctx context.Context) (int, error)
}

// withMatchLock runs fn while holding the match's update lock, retrying the acquire once.
func withMatchLock(ctx context.Context, locker lock.Locker, id uuid.UUID, fn func() error) error {
	key := lock.MatchKey(id)

	h, ok, err := locker.Acquire(ctx, key, updateLockTTL)
	if err != nil {
		return err
	}
	if !ok {
		select {
		case <-time.After(updateRetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		h, ok, err = locker.Acquire(ctx, key, updateLockTTL)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrMatchBusy, id)
		}
	}

	defer func() {
		if err := locker.Release(context.WithoutCancel(ctx), h); err != nil {
			log.Error().Err(err).Str("match_id", id.String()).Msg("failed to release match lock")
		}
	}()

	return fn()
}

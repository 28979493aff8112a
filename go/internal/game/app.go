// Package game runs matchmaking and the round lifecycle on top of the shared stores.
package game

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/geoduel/go/internal/guess"
	"github.com/mcdev12/geoduel/go/internal/lock"
	"github.com/mcdev12/geoduel/go/internal/match"
	"github.com/mcdev12/geoduel/go/internal/matchmaking"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/mcdev12/geoduel/go/internal/roundtimer"
	"github.com/rs/zerolog/log"
)

const defaultEndRoundLockTTL = 10 * time.Second

const (
	// DefaultPublishTimeout bounds one outcome publish, retries included.
	DefaultPublishTimeout = 10 * time.Second
	// DefaultFinalizeTimeout bounds the storage writes that follow a committed round.
	DefaultFinalizeTimeout = 5 * time.Second
)

// Dependencies are the stores and collaborators an App is built from.
type Dependencies struct {
	Matches   match.Store
	Queue     matchmaking.Queue
	Guesses   guess.Store
	Timers    roundtimer.Timer
	Locker    lock.Locker
	Locations LocationProvider
	Events    EventPublisher
	Notifier  Notifier
	Clock     clockwork.Clock
}

// App handles the match commands. It holds no per-match state; every command reads and
// writes the shared stores so any instance can serve any player.
type App struct {
	matches   match.Store
	queue     matchmaking.Queue
	guesses   guess.Store
	timers    roundtimer.Timer
	locker    lock.Locker
	locations LocationProvider
	events    EventPublisher
	notifier  Notifier
	clock     clockwork.Clock
	settings  Settings
}

func NewApp(deps Dependencies, settings Settings) *App {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if settings.RoundDuration <= 0 {
		settings.RoundDuration = roundtimer.DefaultRoundDuration
	}
	if settings.FirstGuessWindow <= 0 {
		settings.FirstGuessWindow = roundtimer.FirstGuessWindow
	}
	if settings.EndRoundLockTTL <= 0 {
		settings.EndRoundLockTTL = defaultEndRoundLockTTL
	}
	if settings.PublishTimeout <= 0 {
		settings.PublishTimeout = DefaultPublishTimeout
	}
	if settings.FinalizeTimeout <= 0 {
		settings.FinalizeTimeout = DefaultFinalizeTimeout
	}
	return &App{
		matches:   deps.Matches,
		queue:     deps.Queue,
		guesses:   deps.Guesses,
		timers:    deps.Timers,
		locker:    deps.Locker,
		locations: deps.Locations,
		events:    deps.Events,
		notifier:  deps.Notifier,
		clock:     deps.Clock,
		settings:  settings,
	}
}

// JoinMatchmaking queues the player and pairs the two oldest waiting players if possible.
func (a *App) JoinMatchmaking(ctx context.Context, playerID uuid.UUID) (*JoinResult, error) {
	if err := a.recoverStaleMatch(ctx, playerID); err != nil {
		return nil, err
	}

	if err := a.queue.Join(ctx, playerID); err != nil {
		if errors.Is(err, matchmaking.ErrAlreadyQueued) {
			return nil, conflict(CodeAlreadyQueued, "player is already in the matchmaking queue")
		}
		return nil, failure(CodeMatchmakingFailed, "failed to join matchmaking", err)
	}
	log.Info().Str("player_id", playerID.String()).Msg("player joined matchmaking")

	pair, ok, err := a.queue.TryMatch(ctx)
	if err != nil {
		return nil, failure(CodeMatchmakingFailed, "failed to pair players", err)
	}
	if !ok {
		return &JoinResult{Queued: true}, nil
	}

	m := models.NewMatch(pair.PlayerA, pair.PlayerB, a.clock.Now().UTC())
	if err := a.matches.Save(ctx, m); err != nil {
		a.requeue(ctx, pair)
		return nil, failure(CodeMatchmakingFailed, "failed to create match", err)
	}

	log.Info().
		Str("match_id", m.ID.String()).
		Str("player_a_id", m.PlayerAID.String()).
		Str("player_b_id", m.PlayerBID.String()).
		Msg("match created")

	a.notifier.MatchFound(ctx, m)
	return &JoinResult{Match: m}, nil
}

// LeaveMatchmaking removes the player from the queue. Leaving twice is not an error.
func (a *App) LeaveMatchmaking(ctx context.Context, playerID uuid.UUID) error {
	if err := a.queue.Leave(ctx, playerID); err != nil {
		return failure(CodeLeaveMatchmakingFail, "failed to leave matchmaking", err)
	}
	log.Info().Str("player_id", playerID.String()).Msg("player left matchmaking")
	return nil
}

// GetMatchStatus returns the stored match and, during a round, the time left on its timer.
func (a *App) GetMatchStatus(ctx context.Context, matchID uuid.UUID) (*MatchStatus, error) {
	m, err := a.getMatch(ctx, matchID, CodeMatchStatusFailed)
	if err != nil {
		return nil, err
	}

	status := &MatchStatus{Match: m}
	if r := m.CurrentRound; r != nil && !r.Ended {
		remaining, ok, err := a.timers.Remaining(ctx, m.ID, r.ID)
		if err != nil {
			log.Warn().Err(err).Str("match_id", m.ID.String()).Msg("failed to read round timer")
		} else if ok {
			status.TimeRemaining = models.Some(remaining)
		}
	}
	return status, nil
}

// PlayerMatch returns the player's active match, if any.
func (a *App) PlayerMatch(ctx context.Context, playerID uuid.UUID) (uuid.UUID, bool, error) {
	return a.matches.PlayerMatch(ctx, playerID)
}

// ActiveMatches counts matches still in active storage.
func (a *App) ActiveMatches(ctx context.Context) (int, error) {
	return a.matches.ActiveCount(ctx)
}

// recoverStaleMatch drops a player's index entry when it points at a match that is gone or
// finished. A live match is a conflict.
func (a *App) recoverStaleMatch(ctx context.Context, playerID uuid.UUID) error {
	matchID, ok, err := a.matches.PlayerMatch(ctx, playerID)
	if err != nil {
		return failure(CodeMatchmakingFailed, "failed to look up player match", err)
	}
	if !ok {
		return nil
	}

	m, err := a.matches.Get(ctx, matchID)
	switch {
	case errors.Is(err, match.ErrNotFound):
		log.Warn().
			Str("player_id", playerID.String()).
			Str("match_id", matchID.String()).
			Msg("clearing index entry for missing match")
		if err := a.matches.ClearPlayer(ctx, playerID); err != nil {
			return failure(CodeMatchmakingFailed, "failed to clear stale match", err)
		}
		return nil
	case err != nil:
		return failure(CodeMatchmakingFailed, "failed to load player match", err)
	case m.IsEnded():
		log.Warn().
			Str("player_id", playerID.String()).
			Str("match_id", matchID.String()).
			Msg("removing ended match left in active storage")
		if err := a.matches.Remove(ctx, matchID); err != nil {
			return failure(CodeMatchmakingFailed, "failed to remove stale match", err)
		}
		return nil
	default:
		return conflict(CodeAlreadyInMatch, "player is already in a match")
	}
}

func (a *App) requeue(ctx context.Context, pair matchmaking.Pair) {
	for _, playerID := range []uuid.UUID{pair.PlayerA, pair.PlayerB} {
		if err := a.queue.Join(ctx, playerID); err != nil && !errors.Is(err, matchmaking.ErrAlreadyQueued) {
			log.Error().Err(err).Str("player_id", playerID.String()).Msg("failed to requeue player")
		}
	}
}

func (a *App) getMatch(ctx context.Context, matchID uuid.UUID, failureCode string) (*models.GameMatch, error) {
	m, err := a.matches.Get(ctx, matchID)
	if errors.Is(err, match.ErrNotFound) {
		return nil, notFound(CodeMatchNotFound, "match not found")
	}
	if err != nil {
		return nil, failure(failureCode, "failed to load match", err)
	}
	return m, nil
}

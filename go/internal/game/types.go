package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/events"
	"github.com/mcdev12/geoduel/go/internal/models"
)

// Notifier pushes match progress to connected players. Implementations decide who
// receives what; OpponentSubmitted goes only to the given player.
type Notifier interface {
	MatchFound(ctx context.Context, m *models.GameMatch)
	RoundStarted(ctx context.Context, m *models.GameMatch, r *models.GameRound, duration time.Duration)
	TimerAdjusted(ctx context.Context, m *models.GameMatch, roundID uuid.UUID, remaining time.Duration)
	OpponentSubmitted(ctx context.Context, opponentID, matchID, roundID uuid.UUID)
	RoundEnded(ctx context.Context, payload events.RoundEndedPayload)
	MatchEnded(ctx context.Context, payload events.MatchEndedPayload)
}

// LocationProvider defines what the app needs to pick a round target
type LocationProvider interface {
	RandomLocation(ctx context.Context) models.Location
}

// EventPublisher defines what the app needs from the bus publisher
type EventPublisher interface {
	PublishRoundEnded(ctx context.Context, payload events.RoundEndedPayload) error
	PublishMatchEnded(ctx context.Context, payload events.MatchEndedPayload) error
}

// Settings are the tunable game timings.
type Settings struct {
	RoundDuration    time.Duration
	FirstGuessWindow time.Duration
	EndRoundLockTTL  time.Duration
	// PublishTimeout and FinalizeTimeout run detached from the caller's context, so a
	// cancelled command or a slow bus cannot leave a scored round half applied.
	PublishTimeout  time.Duration
	FinalizeTimeout time.Duration
}

// JoinResult is returned by JoinMatchmaking. Match is set when the join completed a pair.
type JoinResult struct {
	Queued bool
	Match  *models.GameMatch
}

// RoundStartResult describes a freshly opened round.
type RoundStartResult struct {
	Match    *models.GameMatch
	Round    *models.GameRound
	Duration time.Duration
}

// GuessResult is returned by SubmitGuess. EndRound is set when the guess completed the round.
type GuessResult struct {
	MatchID  uuid.UUID
	RoundID  uuid.UUID
	PlayerID uuid.UUID
	EndRound *EndRoundResult
}

// EndRoundRequest carries the guesses known at the time the round is closed.
type EndRoundRequest struct {
	MatchID uuid.UUID
	RoundID uuid.UUID
	GuessA  models.Optional[models.Coordinate]
	GuessB  models.Optional[models.Coordinate]
}

// EndRoundResult reports what EndRound did. AlreadyHandled means another caller holds the
// round; Stale means the round was already closed.
type EndRoundResult struct {
	AlreadyHandled bool
	Stale          bool
	RoundResult    *events.RoundEndedPayload
	MatchResult    *events.MatchEndedPayload
}

// MatchStatus is a point-in-time view of a match.
type MatchStatus struct {
	Match         *models.GameMatch
	TimeRemaining models.Optional[time.Duration]
}

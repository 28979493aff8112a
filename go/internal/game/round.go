package game

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/match"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// StartRound opens the next round of a match, stores its answer and arms the round timer.
func (a *App) StartRound(ctx context.Context, matchID uuid.UUID) (*RoundStartResult, error) {
	m, err := a.getMatch(ctx, matchID, CodeStartRoundFailed)
	if err != nil {
		return nil, err
	}
	if !m.CanStartNewRound() {
		return nil, validation(CodeRoundCannotStart, "no round can be started for this match")
	}

	if n := len(m.Rounds); n > 0 {
		prev := m.Rounds[n-1]
		if err := a.timers.Cancel(ctx, m.ID, prev.ID); err != nil {
			log.Warn().Err(err).Str("match_id", m.ID.String()).Str("round_id", prev.ID.String()).Msg("failed to cancel previous round timer")
		}
	}

	location := a.locations.RandomLocation(ctx)

	// Answer and timer exist before the round is committed, so a committed round always
	// has both. A timer left behind by a failed commit finds no open round and is ignored.
	roundID := uuid.New()
	if err := a.guesses.StoreAnswer(ctx, m.ID, roundID, location.Coordinate); err != nil {
		return nil, failure(CodeStartRoundFailed, "failed to store round answer", err)
	}
	if err := a.timers.Start(ctx, m.ID, roundID, a.settings.RoundDuration); err != nil {
		a.discardRound(ctx, m.ID, roundID)
		return nil, failure(CodeStartRoundFailed, "failed to start round timer", err)
	}

	var round *models.GameRound
	m, err = a.matches.Update(ctx, matchID, func(m *models.GameMatch) error {
		r, err := m.OpenRound(roundID, location, a.clock.Now().UTC())
		if err != nil {
			return err
		}
		round = r
		return nil
	})
	if err != nil {
		a.discardRound(ctx, matchID, roundID)
	}
	switch {
	case errors.Is(err, models.ErrInvalidState):
		return nil, validation(CodeRoundCannotStart, "no round can be started for this match")
	case errors.Is(err, match.ErrNotFound):
		return nil, notFound(CodeMatchNotFound, "match not found")
	case err != nil:
		return nil, failure(CodeStartRoundFailed, "failed to start round", err)
	}

	log.Info().
		Str("match_id", m.ID.String()).
		Str("round_id", round.ID.String()).
		Int("round_number", round.Number).
		Msg("round started")

	a.notifier.RoundStarted(ctx, m, round, a.settings.RoundDuration)
	return &RoundStartResult{Match: m, Round: round, Duration: a.settings.RoundDuration}, nil
}

// discardRound drops the timer and answer prepared for a round that was never committed.
func (a *App) discardRound(ctx context.Context, matchID, roundID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	if err := a.timers.Cancel(ctx, matchID, roundID); err != nil {
		log.Warn().Err(err).Str("match_id", matchID.String()).Str("round_id", roundID.String()).Msg("failed to cancel uncommitted round timer")
	}
	if err := a.guesses.ClearRound(ctx, matchID, roundID, uuid.Nil, uuid.Nil); err != nil {
		log.Warn().Err(err).Str("match_id", matchID.String()).Str("round_id", roundID.String()).Msg("failed to clear uncommitted round answer")
	}
}

// SubmitGuess records a player's guess for the current round. The first guess shortens the
// timer to the first-guess window; the second closes the round.
func (a *App) SubmitGuess(ctx context.Context, matchID, playerID uuid.UUID, c models.Coordinate) (*GuessResult, error) {
	m, err := a.getMatch(ctx, matchID, CodeSubmitGuessFailed)
	if err != nil {
		return nil, err
	}
	if !m.HasPlayer(playerID) {
		return nil, validation(CodeGuessInvalidPlayer, "player is not part of this match")
	}
	round := m.CurrentRound
	if round == nil || round.Ended {
		return nil, validation(CodeRoundNotActive, "no round is in progress")
	}

	stored, err := a.guesses.StoreGuess(ctx, m.ID, round.ID, playerID, c)
	if err != nil {
		return nil, failure(CodeSubmitGuessFailed, "failed to store guess", err)
	}
	if !stored {
		return nil, validation(CodeGuessAlreadySent, "guess already submitted for this round")
	}

	log.Info().
		Str("match_id", m.ID.String()).
		Str("round_id", round.ID.String()).
		Str("player_id", playerID.String()).
		Msg("guess submitted")

	a.notifier.OpponentSubmitted(ctx, m.Opponent(playerID), m.ID, round.ID)

	result := &GuessResult{MatchID: m.ID, RoundID: round.ID, PlayerID: playerID}

	guessA, guessB, err := a.guesses.GetBothGuesses(ctx, m.ID, round.ID, m.PlayerAID, m.PlayerBID)
	if err != nil {
		return nil, failure(CodeSubmitGuessFailed, "failed to read guesses", err)
	}

	if guessA.IsSome() && guessB.IsSome() {
		ended, err := a.EndRound(ctx, EndRoundRequest{
			MatchID: m.ID,
			RoundID: round.ID,
			GuessA:  guessA,
			GuessB:  guessB,
		})
		if err != nil {
			return nil, err
		}
		result.EndRound = ended
		return result, nil
	}

	a.shortenTimer(ctx, m, round.ID)
	return result, nil
}

// shortenTimer cuts the round down to the first-guess window if more time than that is left.
func (a *App) shortenTimer(ctx context.Context, m *models.GameMatch, roundID uuid.UUID) {
	window := a.settings.FirstGuessWindow

	remaining, ok, err := a.timers.Remaining(ctx, m.ID, roundID)
	if err != nil {
		log.Warn().Err(err).Str("match_id", m.ID.String()).Msg("failed to read round timer")
		return
	}
	if !ok || remaining <= window {
		return
	}

	adjusted, err := a.timers.Adjust(ctx, m.ID, roundID, window)
	if err != nil {
		log.Warn().Err(err).Str("match_id", m.ID.String()).Msg("failed to adjust round timer")
		return
	}
	if !adjusted {
		return
	}

	log.Info().
		Str("match_id", m.ID.String()).
		Str("round_id", roundID.String()).
		Dur("remaining", window).
		Msg("round timer shortened after first guess")
	a.notifier.TimerAdjusted(ctx, m, roundID, window)
}

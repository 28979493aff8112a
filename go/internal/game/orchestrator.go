package game

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/events"
	"github.com/mcdev12/geoduel/go/internal/lock"
	"github.com/mcdev12/geoduel/go/internal/match"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errRoundClosed = errors.New("round already closed")

// EndRound scores and closes a round exactly once. Both the second guess and the round timer
// call it; whichever takes the round lock first does the work and the other sees
// AlreadyHandled. When the round was the last one the match is finished, announced and
// dropped from active storage.
func (a *App) EndRound(ctx context.Context, req EndRoundRequest) (*EndRoundResult, error) {
	logger := log.With().
		Str("match_id", req.MatchID.String()).
		Str("round_id", req.RoundID.String()).
		Logger()

	h, ok, err := a.locker.Acquire(ctx, lock.EndRoundKey(req.MatchID, req.RoundID), a.settings.EndRoundLockTTL)
	if err != nil {
		return nil, failure(CodeEndRoundFailed, "failed to acquire round lock", err)
	}
	if !ok {
		logger.Debug().Msg("round end already in progress")
		return &EndRoundResult{AlreadyHandled: true}, nil
	}
	defer func() {
		if err := a.locker.Release(context.WithoutCancel(ctx), h); err != nil {
			logger.Error().Err(err).Msg("failed to release round lock")
		}
	}()

	if err := a.timers.Cancel(ctx, req.MatchID, req.RoundID); err != nil {
		logger.Warn().Err(err).Msg("failed to cancel round timer")
	}

	m, err := a.getMatch(ctx, req.MatchID, CodeEndRoundFailed)
	if err != nil {
		return nil, err
	}
	if !isOpenRound(m, req.RoundID) {
		logger.Debug().Msg("round already closed")
		return &EndRoundResult{Stale: true}, nil
	}

	answer, err := a.guesses.GetAnswer(ctx, req.MatchID, req.RoundID)
	if err != nil {
		return nil, failure(CodeEndRoundFailed, "failed to load round answer", err)
	}
	correct, ok := answer.Get()
	if !ok {
		return nil, notFound(CodeAnswerNotFound, "round answer not found")
	}

	var ended *models.GameRound
	m, err = a.matches.Update(ctx, req.MatchID, func(m *models.GameMatch) error {
		if !isOpenRound(m, req.RoundID) {
			return errRoundClosed
		}
		r, err := m.EndRound(correct, req.GuessA, req.GuessB)
		if err != nil {
			return err
		}
		ended = r
		return nil
	})
	switch {
	case errors.Is(err, errRoundClosed):
		return &EndRoundResult{Stale: true}, nil
	case errors.Is(err, match.ErrNotFound):
		return nil, notFound(CodeMatchNotFound, "match not found")
	case err != nil:
		return nil, failure(CodeEndRoundFailed, "failed to end round", err)
	}

	// The round is committed. The rest runs detached so the match always reaches its
	// final state, even when the caller gave up or the bus is slow.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.settings.FinalizeTimeout)
	defer cancel()

	if err := a.guesses.ClearRound(fctx, m.ID, ended.ID, m.PlayerAID, m.PlayerBID); err != nil {
		logger.Warn().Err(err).Msg("failed to clear round guesses")
	}

	roundPayload := events.NewRoundEndedPayload(m, ended, a.clock.Now().UTC())
	logger.Info().
		Int("round_number", ended.Number).
		Int("player_a_points", roundPayload.PlayerAPoints).
		Int("player_b_points", roundPayload.PlayerBPoints).
		Msg("round ended")
	a.notifier.RoundEnded(fctx, roundPayload)

	result := &EndRoundResult{RoundResult: &roundPayload}
	var finishErr error
	if !m.CanStartNewRound() {
		result.MatchResult, finishErr = a.finishMatch(fctx, m.ID)
	}

	a.publish(ctx, logger, events.TopicRoundEnded, func(pctx context.Context) error {
		return a.events.PublishRoundEnded(pctx, roundPayload)
	})
	if result.MatchResult != nil {
		matchPayload := *result.MatchResult
		a.publish(ctx, logger, events.TopicMatchEnded, func(pctx context.Context) error {
			return a.events.PublishMatchEnded(pctx, matchPayload)
		})
	}

	if finishErr != nil {
		return nil, finishErr
	}
	return result, nil
}

// publish runs one outcome publish under its own deadline. Failures are only logged; the
// round result already stands.
func (a *App) publish(ctx context.Context, logger zerolog.Logger, topic string, fn func(context.Context) error) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.settings.PublishTimeout)
	defer cancel()

	if err := fn(pctx); err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("failed to publish outcome")
	}
}

// HandleRoundExpired closes a round whose timer ran out using whatever guesses were stored.
func (a *App) HandleRoundExpired(ctx context.Context, matchID, roundID uuid.UUID) error {
	m, err := a.matches.Get(ctx, matchID)
	if errors.Is(err, match.ErrNotFound) {
		log.Debug().Str("match_id", matchID.String()).Msg("timer expired for a match no longer active")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "load match %s", matchID)
	}

	guessA, guessB, err := a.guesses.GetBothGuesses(ctx, matchID, roundID, m.PlayerAID, m.PlayerBID)
	if err != nil {
		return errors.Wrapf(err, "load guesses for round %s", roundID)
	}

	_, err = a.EndRound(ctx, EndRoundRequest{
		MatchID: matchID,
		RoundID: roundID,
		GuessA:  guessA,
		GuessB:  guessB,
	})
	return err
}

func (a *App) finishMatch(ctx context.Context, matchID uuid.UUID) (*events.MatchEndedPayload, error) {
	m, err := a.matches.Update(ctx, matchID, func(m *models.GameMatch) error {
		m.EndMatch(a.clock.Now().UTC())
		return nil
	})
	if err != nil {
		return nil, failure(CodeEndRoundFailed, "failed to end match", err)
	}

	payload := events.NewMatchEndedPayload(m)

	entry := log.Info().
		Str("match_id", m.ID.String()).
		Int("player_a_total_points", m.PlayerATotalPoints).
		Int("player_b_total_points", m.PlayerBTotalPoints)
	if winner, ok := m.WinnerID.Get(); ok {
		entry = entry.Str("winner_id", winner.String())
	}
	entry.Msg("match ended")

	a.notifier.MatchEnded(ctx, payload)

	if err := a.matches.Remove(ctx, m.ID); err != nil {
		log.Error().Err(err).Str("match_id", m.ID.String()).Msg("failed to remove ended match")
	}
	for _, playerID := range []uuid.UUID{m.PlayerAID, m.PlayerBID} {
		if err := a.matches.ClearPlayer(ctx, playerID); err != nil {
			log.Error().Err(err).Str("player_id", playerID.String()).Msg("failed to clear player match")
		}
	}
	return &payload, nil
}

func isOpenRound(m *models.GameMatch, roundID uuid.UUID) bool {
	return m.CurrentRound != nil && m.CurrentRound.ID == roundID && !m.CurrentRound.Ended
}

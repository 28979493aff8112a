package roundtimer

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
)

// ExpirationHandler finalizes a round whose timer ran out.
type ExpirationHandler interface {
	HandleRoundExpired(ctx context.Context, matchID, roundID uuid.UUID) error
}

// Listener drains a Source and hands each expiration to the handler on a bounded pool.
type Listener struct {
	source  Source
	handler ExpirationHandler
	pool    *ants.Pool
}

func NewListener(source Source, handler ExpirationHandler, workers int) (*Listener, error) {
	if workers <= 0 {
		workers = 16
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create expiration worker pool: %w", err)
	}
	return &Listener{source: source, handler: handler, pool: pool}, nil
}

// Run blocks until ctx is cancelled or the source closes.
func (l *Listener) Run(ctx context.Context) error {
	defer l.pool.Release()

	expirations, err := l.source.Expirations(ctx)
	if err != nil {
		return fmt.Errorf("open expiration source: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("round timer listener shutting down")
			return nil
		case exp, ok := <-expirations:
			if !ok {
				log.Info().Msg("round timer source closed")
				return nil
			}
			l.dispatch(ctx, exp)
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, exp Expiration) {
	log.Info().
		Str("match_id", exp.MatchID.String()).
		Str("round_id", exp.RoundID.String()).
		Msg("round timer expired")

	err := l.pool.Submit(func() {
		if err := l.handler.HandleRoundExpired(ctx, exp.MatchID, exp.RoundID); err != nil {
			log.Error().
				Err(err).
				Str("match_id", exp.MatchID.String()).
				Str("round_id", exp.RoundID.String()).
				Msg("failed to end expired round")
		}
	})
	if err != nil {
		log.Error().Err(err).Str("match_id", exp.MatchID.String()).Msg("failed to schedule expired round")
	}
}

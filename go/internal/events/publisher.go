package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type RetryConfig struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	FallbackTimeout time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		BaseDelay:       time.Second,
		FallbackTimeout: 30 * time.Second,
	}
}

// Publisher announces round and match outcomes. Bus failures are retried with exponential
// backoff; a match.ended that still fails is handed to the fallback sink in the background.
type Publisher struct {
	bus      EventPublisher
	fallback FallbackSink
	config   RetryConfig
	clock    clockwork.Clock

	fallbacks sync.WaitGroup
}

func NewPublisher(bus EventPublisher, fallback FallbackSink, cfg RetryConfig, clock clockwork.Clock) *Publisher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Publisher{
		bus:      bus,
		fallback: fallback,
		config:   cfg,
		clock:    clock,
	}
}

func (p *Publisher) PublishRoundEnded(ctx context.Context, payload RoundEndedPayload) error {
	return p.publish(ctx, TopicRoundEnded, payload.MatchID, payload)
}

// PublishMatchEnded returns the bus error even when the fallback was started, so callers can log it.
func (p *Publisher) PublishMatchEnded(ctx context.Context, payload MatchEndedPayload) error {
	err := p.publish(ctx, TopicMatchEnded, payload.MatchID, payload)
	if err != nil && p.fallback != nil {
		p.sendFallback(ctx, payload)
	}
	return err
}

// Wait blocks until in-flight fallback deliveries finish.
func (p *Publisher) Wait() {
	p.fallbacks.Wait()
}

func (p *Publisher) publish(ctx context.Context, topic string, matchID uuid.UUID, payload interface{}) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}

	event := Event{
		ID:        uuid.New(),
		MatchID:   matchID,
		Topic:     topic,
		Payload:   data,
		CreatedAt: p.clock.Now().UTC(),
	}
	return p.publishWithRetry(ctx, event)
}

func (p *Publisher) publishWithRetry(ctx context.Context, event Event) error {
	var lastErr error

	for attempt := 0; attempt < p.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.clock.After(p.config.BaseDelay * time.Duration(1<<attempt)):
			}
		}

		// the event ID is stable across attempts so the stream drops duplicates
		if err := p.bus.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("topic", event.Topic).
				Int("attempt", attempt+1).
				Msg("failed to publish event, retrying")
			continue
		}
		return nil
	}

	return fmt.Errorf("publish %s failed after %d attempts: %w", event.Topic, p.config.MaxAttempts, lastErr)
}

func (p *Publisher) sendFallback(ctx context.Context, payload MatchEndedPayload) {
	p.fallbacks.Add(1)
	go func() {
		defer p.fallbacks.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("match_id", payload.MatchID.String()).Msg("match ended fallback panicked")
			}
		}()

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.FallbackTimeout)
		defer cancel()

		if err := p.fallback.SendMatchEnded(fctx, payload); err != nil {
			log.Error().Err(err).Str("match_id", payload.MatchID.String()).Msg("match ended fallback delivery failed")
			return
		}
		log.Info().Str("match_id", payload.MatchID.String()).Msg("match ended delivered through fallback")
	}()
}

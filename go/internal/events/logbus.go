package events

import (
	"context"

	"github.com/rs/zerolog/log"
)

// LogPublisher stands in for the bus in single-process development runs. Events are logged
// and dropped.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event Event) error {
	log.Info().
		Str("event_id", event.ID.String()).
		Str("match_id", event.MatchID.String()).
		Str("topic", event.Topic).
		RawJSON("payload", event.Payload).
		Msg("event published to log bus")
	return nil
}

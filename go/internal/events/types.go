// Package events publishes round and match outcomes to the message bus.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Topics routed on the bus.
const (
	TopicMatchEnded = "match.ended"
	TopicRoundEnded = "round.ended"
)

// Event is one serialized outcome ready for the bus.
type Event struct {
	ID        uuid.UUID
	MatchID   uuid.UUID
	Topic     string
	Payload   []byte
	CreatedAt time.Time
}

// EventPublisher delivers a single event, once, to the bus.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// FallbackSink receives match outcomes when the bus is unreachable.
type FallbackSink interface {
	SendMatchEnded(ctx context.Context, payload MatchEndedPayload) error
}

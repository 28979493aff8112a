package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/events"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Notifier pushes game progress to players over their WebSocket connections
type Notifier struct {
	connections *ConnectionManager
}

func NewNotifier(cm *ConnectionManager) *Notifier {
	return &Notifier{connections: cm}
}

func (n *Notifier) MatchFound(_ context.Context, m *models.GameMatch) {
	n.connections.JoinMatchGroup(m.ID, m.PlayerAID, m.PlayerBID)
	n.toMatch(m.ID, EventTypeMatchFound, MatchFoundPayload{
		MatchID:   m.ID.String(),
		PlayerAID: m.PlayerAID.String(),
		PlayerBID: m.PlayerBID.String(),
		StartedAt: m.StartedAt,
	})
}

func (n *Notifier) RoundStarted(_ context.Context, m *models.GameMatch, r *models.GameRound, duration time.Duration) {
	n.toMatch(m.ID, EventTypeRoundStarted, RoundStartedPayload{
		MatchID:         m.ID.String(),
		RoundID:         r.ID.String(),
		RoundNumber:     r.Number,
		Location:        r.Location,
		StartedAt:       r.StartedAt,
		DurationSeconds: int(duration / time.Second),
	})
}

func (n *Notifier) TimerAdjusted(_ context.Context, m *models.GameMatch, roundID uuid.UUID, remaining time.Duration) {
	n.toMatch(m.ID, EventTypeTimerAdjusted, TimerAdjustedPayload{
		MatchID:          m.ID.String(),
		RoundID:          roundID.String(),
		RemainingSeconds: int(remaining / time.Second),
	})
}

func (n *Notifier) OpponentSubmitted(_ context.Context, opponentID, matchID, roundID uuid.UUID) {
	n.toPlayer(opponentID, matchID, EventTypeOpponentSubmitted, GuessPayload{
		MatchID: matchID.String(),
		RoundID: roundID.String(),
	})
}

func (n *Notifier) RoundEnded(_ context.Context, payload events.RoundEndedPayload) {
	n.toMatch(payload.MatchID, EventTypeRoundEnded, payload)
}

func (n *Notifier) MatchEnded(_ context.Context, payload events.MatchEndedPayload) {
	n.toMatch(payload.MatchID, EventTypeMatchEnded, payload)
	n.connections.RemoveMatchGroup(payload.MatchID)
}

func (n *Notifier) toMatch(matchID uuid.UUID, eventType EventType, payload interface{}) {
	event, err := NewGameEvent(eventType, matchID, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	n.connections.BroadcastToMatch(matchID, event)
}

func (n *Notifier) toPlayer(playerID, matchID uuid.UUID, eventType EventType, payload interface{}) {
	event, err := NewGameEvent(eventType, matchID, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	n.connections.SendToPlayer(playerID, event)
}

package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/models"
)

// GameEvent is the envelope for every message pushed to a client
type GameEvent struct {
	ID        string          `json:"id"`                 // Event UUID
	MatchID   string          `json:"match_id,omitempty"` // Match UUID, when the event belongs to one
	Type      EventType       `json:"type"`               // Event type
	Timestamp time.Time       `json:"timestamp"`          // Event creation time
	Data      json.RawMessage `json:"data,omitempty"`     // Event-specific payload
}

// EventType represents the type of game event
type EventType string

const (
	EventTypeQueued            EventType = "Queued"
	EventTypeLeftQueue         EventType = "LeftQueue"
	EventTypeMatchFound        EventType = "MatchFound"
	EventTypeRoundStarted      EventType = "RoundStarted"
	EventTypeTimerAdjusted     EventType = "TimerAdjusted"
	EventTypeGuessSubmitted    EventType = "GuessSubmitted"
	EventTypeOpponentSubmitted EventType = "OpponentSubmitted"
	EventTypeRoundEnded        EventType = "RoundEnded"
	EventTypeMatchEnded        EventType = "MatchEnded"
	EventTypeMatchStatus       EventType = "MatchStatus"
	EventTypeError             EventType = "Error"
)

// MatchFoundPayload is sent to both players when they are paired
type MatchFoundPayload struct {
	MatchID   string    `json:"match_id"`
	PlayerAID string    `json:"player_a_id"`
	PlayerBID string    `json:"player_b_id"`
	StartedAt time.Time `json:"started_at"`
}

// RoundStartedPayload carries what a client needs to render the round. The answer
// coordinate is part of the location; clients show the panorama, not the pin.
type RoundStartedPayload struct {
	MatchID         string          `json:"match_id"`
	RoundID         string          `json:"round_id"`
	RoundNumber     int             `json:"round_number"`
	Location        models.Location `json:"location"`
	StartedAt       time.Time       `json:"started_at"`
	DurationSeconds int             `json:"duration_seconds"`
}

// TimerAdjustedPayload tells both players the round now ends sooner
type TimerAdjustedPayload struct {
	MatchID          string `json:"match_id"`
	RoundID          string `json:"round_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// GuessPayload acknowledges a guess or announces the opponent's
type GuessPayload struct {
	MatchID  string `json:"match_id"`
	RoundID  string `json:"round_id"`
	PlayerID string `json:"player_id,omitempty"`
}

// QueuePayload answers matchmaking commands
type QueuePayload struct {
	PlayerID string `json:"player_id"`
}

// MatchStatusPayload answers getMatchStatus
type MatchStatusPayload struct {
	Match            *models.GameMatch `json:"match"`
	RemainingSeconds *int              `json:"remaining_seconds,omitempty"`
}

// ErrorPayload goes only to the connection that triggered the failure
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewGameEvent wraps payload in an envelope. A nil matchID leaves match_id empty.
func NewGameEvent(eventType EventType, matchID uuid.UUID, payload interface{}) (*GameEvent, error) {
	event := &GameEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
	if matchID != uuid.Nil {
		event.MatchID = matchID.String()
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		event.Data = data
	}
	return event, nil
}

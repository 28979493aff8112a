package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	event := Event{
		ID:        uuid.New(),
		MatchID:   uuid.New(),
		Topic:     TopicRoundEnded,
		Payload:   []byte(`{"roundNumber":2}`),
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("BRT", -3*3600)),
	}

	msg, err := buildMessage(subjectFor("game.events", event.Topic), event)
	require.NoError(t, err)

	assert.Equal(t, "game.events.round.ended", msg.Subject)
	assert.Equal(t, TopicRoundEnded, msg.Header.Get(headerEventType))
	assert.Equal(t, event.MatchID.String(), msg.Header.Get(headerMatchID))

	var got struct {
		EventID   string          `json:"eventId"`
		EventType string          `json:"eventType"`
		MatchID   string          `json:"matchId"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, event.ID.String(), got.EventID)
	assert.Equal(t, TopicRoundEnded, got.EventType)
	assert.Equal(t, time.UTC, got.Timestamp.Location())
	assert.True(t, got.Timestamp.Equal(event.CreatedAt))
	assert.JSONEq(t, `{"roundNumber":2}`, string(got.Payload))
}

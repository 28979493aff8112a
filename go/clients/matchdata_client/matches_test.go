package matchdata_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/geoduel/go/internal/events"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMatchEnded(t *testing.T) {
	winner := uuid.New()
	payload := events.MatchEndedPayload{
		MatchID:            uuid.New(),
		PlayerAID:          winner,
		PlayerBID:          uuid.New(),
		WinnerID:           models.Some(winner),
		PlayerATotalPoints: 9000,
		PlayerBTotalPoints: 4000,
		PointsEarned:       models.Some(100),
		PointsLost:         models.Some(30),
		StartedAt:          time.Now().Add(-time.Minute).UTC(),
		EndedAt:            time.Now().UTC(),
	}

	var got events.MatchEndedPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, MatchEndedEndpoint, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "k", r.Header.Get(APIKeyHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	require.NoError(t, NewMatchDataClient(server.URL, "k").SendMatchEnded(context.Background(), payload))

	assert.Equal(t, payload.MatchID, got.MatchID)
	assert.Equal(t, winner, got.WinnerID.OrElse(uuid.Nil))
	assert.False(t, got.LoserID.IsSome())
	assert.Equal(t, 100, got.PointsEarned.OrElse(0))
}

func TestSendMatchEnded_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewMatchDataClient(server.URL, "").SendMatchEnded(context.Background(), events.MatchEndedPayload{MatchID: uuid.New()})
	assert.Error(t, err)
}

var _ events.FallbackSink = (*MatchDataClient)(nil)

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/geoduel/go/internal/events"
	"github.com/mcdev12/geoduel/go/internal/game"
	"github.com/mcdev12/geoduel/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCommands struct {
	mock.Mock
}

func (m *mockCommands) JoinMatchmaking(ctx context.Context, playerID uuid.UUID) (*game.JoinResult, error) {
	args := m.Called(ctx, playerID)
	res, _ := args.Get(0).(*game.JoinResult)
	return res, args.Error(1)
}

func (m *mockCommands) LeaveMatchmaking(ctx context.Context, playerID uuid.UUID) error {
	return m.Called(ctx, playerID).Error(0)
}

func (m *mockCommands) StartRound(ctx context.Context, matchID uuid.UUID) (*game.RoundStartResult, error) {
	args := m.Called(ctx, matchID)
	res, _ := args.Get(0).(*game.RoundStartResult)
	return res, args.Error(1)
}

func (m *mockCommands) SubmitGuess(ctx context.Context, matchID, playerID uuid.UUID, c models.Coordinate) (*game.GuessResult, error) {
	args := m.Called(ctx, matchID, playerID, c)
	res, _ := args.Get(0).(*game.GuessResult)
	return res, args.Error(1)
}

func (m *mockCommands) GetMatchStatus(ctx context.Context, matchID uuid.UUID) (*game.MatchStatus, error) {
	args := m.Called(ctx, matchID)
	res, _ := args.Get(0).(*game.MatchStatus)
	return res, args.Error(1)
}

func (m *mockCommands) PlayerMatch(ctx context.Context, playerID uuid.UUID) (uuid.UUID, bool, error) {
	args := m.Called(ctx, playerID)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

func (m *mockCommands) ActiveMatches(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type testGateway struct {
	server   *httptest.Server
	cm       *ConnectionManager
	service  *Service
	commands *mockCommands
	left     chan uuid.UUID
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	commands := new(mockCommands)
	left := make(chan uuid.UUID, 8)
	commands.On("LeaveMatchmaking", mock.Anything, mock.Anything).Return(nil).Maybe().Run(func(args mock.Arguments) {
		select {
		case left <- args.Get(1).(uuid.UUID):
		default:
		}
	})

	cm := NewConnectionManager(DefaultConnectionConfig())
	service := NewService(cm, commands)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = service.Start(ctx) }()

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &testGateway{server: server, cm: cm, service: service, commands: commands, left: left}
}

func (g *testGateway) dial(t *testing.T, playerID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws/game?player_id=" + playerID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return g.service.GetStats().TotalConnections > 0
	}, time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) GameEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event GameEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func send(t *testing.T, conn *websocket.Conn, cmdType CommandType, data interface{}) {
	t.Helper()
	cmd := map[string]interface{}{"type": cmdType}
	if data != nil {
		cmd["data"] = data
	}
	require.NoError(t, conn.WriteJSON(cmd))
}

func TestGameConnection_RequiresPlayerID(t *testing.T) {
	g := newTestGateway(t)

	resp, err := http.Get(g.server.URL + "/ws/game")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(g.server.URL + "/ws/game?player_id=nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJoinMatchmaking_RepliesQueued(t *testing.T) {
	g := newTestGateway(t)
	player := uuid.New()
	g.commands.On("PlayerMatch", mock.Anything, player).Return(uuid.Nil, false, nil)
	g.commands.On("JoinMatchmaking", mock.Anything, player).Return(&game.JoinResult{Queued: true}, nil)

	conn := g.dial(t, player)
	send(t, conn, CommandJoinMatchmaking, nil)

	event := readEvent(t, conn)
	assert.Equal(t, EventTypeQueued, event.Type)

	var payload QueuePayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, player.String(), payload.PlayerID)
}

func TestSubmitGuess_InvalidCoordinateIsRejected(t *testing.T) {
	g := newTestGateway(t)
	player := uuid.New()
	g.commands.On("PlayerMatch", mock.Anything, player).Return(uuid.Nil, false, nil)

	conn := g.dial(t, player)
	send(t, conn, CommandSubmitGuess, map[string]interface{}{
		"match_id":   uuid.New().String(),
		"coordinate": map[string]float64{"x": 91, "y": 0},
	})

	event := readEvent(t, conn)
	require.Equal(t, EventTypeError, event.Type)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "Command.Invalid", payload.Code)
	g.commands.AssertNotCalled(t, "SubmitGuess", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitGuess_GameErrorGoesToCaller(t *testing.T) {
	g := newTestGateway(t)
	player := uuid.New()
	matchID := uuid.New()
	g.commands.On("PlayerMatch", mock.Anything, player).Return(uuid.Nil, false, nil)
	g.commands.On("SubmitGuess", mock.Anything, matchID, player, models.NewCoordinate(10, 20)).
		Return(nil, &game.Error{Kind: game.KindValidation, Code: game.CodeRoundNotActive, Message: "no round is in progress"})

	conn := g.dial(t, player)
	send(t, conn, CommandSubmitGuess, map[string]interface{}{
		"match_id":   matchID.String(),
		"coordinate": map[string]float64{"x": 10, "y": 20},
	})

	event := readEvent(t, conn)
	require.Equal(t, EventTypeError, event.Type)
	assert.Equal(t, matchID.String(), event.MatchID)
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, game.CodeRoundNotActive, payload.Code)
}

func TestSubmitGuess_AcknowledgesCaller(t *testing.T) {
	g := newTestGateway(t)
	player := uuid.New()
	matchID, roundID := uuid.New(), uuid.New()
	g.commands.On("PlayerMatch", mock.Anything, player).Return(uuid.Nil, false, nil)
	g.commands.On("SubmitGuess", mock.Anything, matchID, player, models.NewCoordinate(0, 0)).
		Return(&game.GuessResult{MatchID: matchID, RoundID: roundID, PlayerID: player}, nil)

	conn := g.dial(t, player)
	send(t, conn, CommandSubmitGuess, map[string]interface{}{
		"match_id":   matchID.String(),
		"coordinate": map[string]float64{"x": 0, "y": 0},
	})

	event := readEvent(t, conn)
	require.Equal(t, EventTypeGuessSubmitted, event.Type)
	var payload GuessPayload
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, roundID.String(), payload.RoundID)
}

func TestReconnect_RejoinsMatchGroup(t *testing.T) {
	g := newTestGateway(t)
	player := uuid.New()
	matchID := uuid.New()
	g.commands.On("PlayerMatch", mock.Anything, player).Return(matchID, true, nil)

	conn := g.dial(t, player)
	require.Eventually(t, func() bool {
		return g.cm.GetConnectionStats().MatchGroups == 1
	}, time.Second, 5*time.Millisecond)

	NewNotifier(g.cm).RoundEnded(context.Background(), events.RoundEndedPayload{
		MatchID:       matchID,
		RoundNumber:   2,
		PlayerAPoints: 4000,
	})

	event := readEvent(t, conn)
	assert.Equal(t, EventTypeRoundEnded, event.Type)
	assert.Equal(t, matchID.String(), event.MatchID)
}

func TestNotifier_MatchFoundReachesBothPlayers(t *testing.T) {
	g := newTestGateway(t)
	a, b := uuid.New(), uuid.New()
	g.commands.On("PlayerMatch", mock.Anything, mock.Anything).Return(uuid.Nil, false, nil)

	connA := g.dial(t, a)
	connB := g.dial(t, b)
	require.Eventually(t, func() bool {
		return g.cm.GetConnectionStats().ConnectedPlayers == 2
	}, time.Second, 5*time.Millisecond)

	m := models.NewMatch(a, b, time.Now().UTC())
	notifier := NewNotifier(g.cm)
	notifier.MatchFound(context.Background(), m)
	notifier.OpponentSubmitted(context.Background(), b, m.ID, uuid.New())

	for _, conn := range []*websocket.Conn{connA, connB} {
		event := readEvent(t, conn)
		assert.Equal(t, EventTypeMatchFound, event.Type)
		assert.Equal(t, m.ID.String(), event.MatchID)
	}
	assert.Equal(t, EventTypeOpponentSubmitted, readEvent(t, connB).Type)
}

func TestDisconnect_LeavesQueue(t *testing.T) {
	g := newTestGateway(t)
	player := uuid.New()
	g.commands.On("PlayerMatch", mock.Anything, player).Return(uuid.Nil, false, nil)

	conn := g.dial(t, player)
	require.NoError(t, conn.Close())

	select {
	case got := <-g.left:
		assert.Equal(t, player, got)
	case <-time.After(2 * time.Second):
		t.Fatal("player was not removed from the queue on disconnect")
	}
}

func TestConnectionStats(t *testing.T) {
	g := newTestGateway(t)
	g.commands.On("ActiveMatches", mock.Anything).Return(3, nil)

	resp, err := http.Get(g.server.URL + "/ws/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 3, body["active_matches"])
	assert.Equal(t, 0, body["total_connections"])
}

func TestDecodeCommand(t *testing.T) {
	_, err := decodeCommand([]byte(`{"type":"dance"}`))
	assert.Error(t, err)

	_, err = decodeCommand([]byte(`not json`))
	assert.Error(t, err)

	cmd, err := decodeCommand([]byte(`{"type":"startRound","data":{"match_id":"` + uuid.NewString() + `"}}`))
	require.NoError(t, err)
	var payload MatchCommand
	require.NoError(t, decodePayload(cmd, &payload))

	cmd, err = decodeCommand([]byte(`{"type":"startRound","data":{"match_id":"abc"}}`))
	require.NoError(t, err)
	assert.Error(t, decodePayload(cmd, &payload))
}

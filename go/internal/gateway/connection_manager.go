package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionHandler reacts to connection lifecycle and client messages
type ConnectionHandler interface {
	OnConnect(ctx context.Context, c *Connection)
	OnDisconnect(ctx context.Context, playerID uuid.UUID)
	HandleMessage(ctx context.Context, c *Connection, message []byte)
}

// ConnectionManager manages WebSocket connections for players and match groups
type ConnectionManager struct {
	// Connections organized by player ID; a player may have several tabs open
	playerConnections map[uuid.UUID]map[*Connection]bool
	// Players organized by the match they are in
	matchGroups map[uuid.UUID]map[uuid.UUID]bool
	mu          sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	handler  ConnectionHandler

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a player
type Connection struct {
	ID       string
	PlayerID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	CommandTimeout  time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is a message queued for delivery. Exactly one of MatchID and PlayerID is set.
type BroadcastMessage struct {
	MatchID  uuid.UUID
	PlayerID uuid.UUID
	Event    *GameEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		CommandTimeout:  15 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		playerConnections: make(map[uuid.UUID]map[*Connection]bool),
		matchGroups:       make(map[uuid.UUID]map[uuid.UUID]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetHandler installs the handler for lifecycle hooks and client commands. Call before Start.
func (cm *ConnectionManager) SetHandler(h ConnectionHandler) {
	cm.handler = h
}

// Start processes broadcast messages until ctx is done
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket for playerID
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		PlayerID:    playerID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("player_id", playerID.String()).
		Msg("WebSocket connection established")

	if cm.handler != nil {
		ctx, cancel := cm.commandContext()
		defer cancel()
		cm.handler.OnConnect(ctx, connection)
	}
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.playerConnections[conn.PlayerID] == nil {
		cm.playerConnections[conn.PlayerID] = make(map[*Connection]bool)
	}
	cm.playerConnections[conn.PlayerID][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("player_id", conn.PlayerID.String()).
		Int("player_connections", len(cm.playerConnections[conn.PlayerID])).
		Msg("connection registered")
}

// unregisterConnection removes a connection. It reports whether this was the player's last one.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.playerConnections[conn.PlayerID]
	if !exists {
		return false
	}
	if _, exists := connections[conn]; !exists {
		return false
	}

	delete(connections, conn)
	close(conn.Send)

	log.Info().
		Str("connection_id", conn.ID).
		Str("player_id", conn.PlayerID.String()).
		Msg("connection unregistered")

	if len(connections) == 0 {
		delete(cm.playerConnections, conn.PlayerID)
		return true
	}
	return false
}

// JoinMatchGroup subscribes players to the match's broadcasts
func (cm *ConnectionManager) JoinMatchGroup(matchID uuid.UUID, players ...uuid.UUID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.matchGroups[matchID] == nil {
		cm.matchGroups[matchID] = make(map[uuid.UUID]bool)
	}
	for _, p := range players {
		cm.matchGroups[matchID][p] = true
	}
}

// RemoveMatchGroup drops the match's group once the match is over
func (cm *ConnectionManager) RemoveMatchGroup(matchID uuid.UUID) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.matchGroups, matchID)
}

// BroadcastToMatch sends an event to every player in the match group
func (cm *ConnectionManager) BroadcastToMatch(matchID uuid.UUID, event *GameEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{MatchID: matchID, Event: event}:
	default:
		log.Warn().Str("match_id", matchID.String()).Msg("broadcast channel full, dropping message")
	}
}

// SendToPlayer sends an event to all of one player's connections
func (cm *ConnectionManager) SendToPlayer(playerID uuid.UUID, event *GameEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{PlayerID: playerID, Event: event}:
	default:
		log.Warn().Str("player_id", playerID.String()).Msg("broadcast channel full, dropping player message")
	}
}

// SendToConnection delivers an event to a single connection, skipping it if it is gone
func (cm *ConnectionManager) SendToConnection(conn *Connection, event *GameEvent) {
	eventData, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for connection")
		return
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if !cm.playerConnections[conn.PlayerID][conn] {
		return
	}
	select {
	case conn.Send <- eventData:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("connection send buffer full, dropping reply")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	var slow []*Connection
	delivered := 0

	// Sends happen under the read lock so unregisterConnection cannot close a channel mid-send.
	cm.mu.RLock()
	for _, playerID := range cm.targetsLocked(message) {
		for conn := range cm.playerConnections[playerID] {
			select {
			case conn.Send <- eventData:
				delivered++
			default:
				slow = append(slow, conn)
			}
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("player_id", conn.PlayerID.String()).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("match_id", message.MatchID.String()).
		Int("connections", delivered).
		Msg("event broadcasted")
}

func (cm *ConnectionManager) targetsLocked(message BroadcastMessage) []uuid.UUID {
	if message.PlayerID != uuid.Nil {
		return []uuid.UUID{message.PlayerID}
	}
	players := make([]uuid.UUID, 0, 2)
	for p := range cm.matchGroups[message.MatchID] {
		players = append(players, p)
	}
	return players
}

// ConnectionStats summarizes active connections
type ConnectionStats struct {
	TotalConnections int `json:"total_connections"`
	ConnectedPlayers int `json:"connected_players"`
	MatchGroups      int `json:"match_groups"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	total := 0
	for _, connections := range cm.playerConnections {
		total += len(connections)
	}
	return ConnectionStats{
		TotalConnections: total,
		ConnectedPlayers: len(cm.playerConnections),
		MatchGroups:      len(cm.matchGroups),
	}
}

func (cm *ConnectionManager) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cm.config.CommandTimeout)
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump reads client commands until the socket closes, then runs the disconnect hook
func (c *Connection) readPump() {
	defer func() {
		last := c.Manager.unregisterConnection(c)
		c.Conn.Close()
		if last && c.Manager.handler != nil {
			ctx, cancel := c.Manager.commandContext()
			defer cancel()
			c.Manager.handler.OnDisconnect(ctx, c.PlayerID)
		}
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

func (c *Connection) handleClientMessage(message []byte) {
	log.Debug().
		Str("connection_id", c.ID).
		Str("player_id", c.PlayerID.String()).
		Bytes("message", message).
		Msg("received client message")

	if c.Manager.handler == nil {
		return
	}
	ctx, cancel := c.Manager.commandContext()
	defer cancel()
	c.Manager.handler.HandleMessage(ctx, c, message)
}

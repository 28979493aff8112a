package gateway

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Service is the game gateway: WebSocket connections, command dispatch and broadcasting
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

// NewService wires a dispatcher for commands into cm. cm is created first so the game app
// can be built with a Notifier over it.
func NewService(cm *ConnectionManager, commands GameCommands) *Service {
	cm.SetHandler(NewDispatcher(commands, cm))

	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, commands),
	}
}

// Start runs the broadcaster until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("game gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// GetStats returns statistics about connected players
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ActiveMatchCounter reports how many matches are in active storage
type ActiveMatchCounter interface {
	ActiveMatches(ctx context.Context) (int, error)
}

// WebSocketHandler handles WebSocket upgrade requests for players
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	matches           ActiveMatchCounter
}

func NewWebSocketHandler(cm *ConnectionManager, matches ActiveMatchCounter) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		matches:           matches,
	}
}

// HandleGameConnection upgrades a player's connection. The player ID comes from the query
// string; authentication happens in front of this service.
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	playerIDStr := r.URL.Query().Get("player_id")
	if playerIDStr == "" {
		http.Error(w, "player_id is required", http.StatusBadRequest)
		return
	}

	playerID, err := uuid.Parse(playerIDStr)
	if err != nil {
		http.Error(w, "invalid player_id format", http.StatusBadRequest)
		return
	}

	// Upgrade writes its own HTTP error on failure.
	if err := h.connectionManager.UpgradeConnection(w, r, playerID); err != nil {
		log.Error().
			Err(err).
			Str("player_id", playerID.String()).
			Msg("failed to upgrade WebSocket connection")
	}
}

type statsResponse struct {
	ConnectionStats
	ActiveMatches int `json:"active_matches"`
}

// HandleConnectionStats returns statistics about active connections and matches
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{ConnectionStats: h.connectionManager.GetConnectionStats()}

	if h.matches != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		count, err := h.matches.ActiveMatches(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to count active matches")
		}
		resp.ActiveMatches = count
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to write stats response")
	}
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/game", h.HandleGameConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

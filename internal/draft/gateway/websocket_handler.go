package gateway

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/renegades-league/draftd/internal/auth"
)

// WebSocketHandler handles WebSocket upgrade requests.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{connectionManager: cm}
}

// HandleConnection upgrades the request. The caller's identity comes from
// the auth middleware; anonymous spectators are allowed, they just never
// pass the on-the-clock check when picking.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.FromContext(r.Context())

	if err := h.connectionManager.UpgradeConnection(w, r, identity.UserID, identity.TeamID); err != nil {
		log.Error().Err(err).Msg("failed to upgrade websocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

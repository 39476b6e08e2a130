package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/remixlab/remixd/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// ConnectionDropper prunes a failed connection out of the job registry's
// subscriber sets.
type ConnectionDropper interface {
	DropConnection(conn interfaces.Connection)
}

// WebSocketHandler upgrades client connections and pumps their messages
// through the dispatcher.
type WebSocketHandler struct {
	connections *ConnectionRegistry
	dispatcher  *Dispatcher
	dropper     ConnectionDropper
	logger      arbor.ILogger
}

// NewWebSocketHandler creates the websocket endpoint handler.
func NewWebSocketHandler(connections *ConnectionRegistry, dispatcher *Dispatcher, dropper ConnectionDropper, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		connections: connections,
		dispatcher:  dispatcher,
		dropper:     dropper,
		logger:      logger,
	}
}

// HandleWebSocket handles one websocket connection for its whole lifetime.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := h.connections.Connect(conn)

	defer func() {
		h.connections.Disconnect(client)
		h.dropper.DropConnection(client)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("client_id", client.ID()).Msg("WebSocket error")
			}
			return
		}
		h.dispatcher.Dispatch(client, data)
	}
}

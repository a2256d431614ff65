package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// KeypointsHandler broadcasts each processed frame's result via WebSocket.
type KeypointsHandler struct {
	hub *Hub
}

// NewKeypointsHandler creates a new KeypointsHandler reading from hub.
func NewKeypointsHandler(hub *Hub) *KeypointsHandler {
	return &KeypointsHandler{hub: hub}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *KeypointsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.hub.Subscribe()
	defer cancel()

	// Drain client messages so close frames are seen.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case u, ok := <-updates:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "pipeline finished"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, u.JSON); err != nil {
				log.Debugf("websocket write: %v", err)
				return
			}
		}
	}
}

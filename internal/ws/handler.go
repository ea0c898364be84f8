package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit  = 512
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades progress-channel requests and keeps the registry current.
type Handler struct {
	registry *Registry
	logger   *zap.Logger
}

func NewHandler(registry *Registry, logger *zap.Logger) *Handler {
	return &Handler{registry: registry, logger: logger}
}

// Serve handles GET /ws/{clientID}. The server only pushes frames; the read
// loop exists to detect disconnects and answer ping frames.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if clientID == "" {
		http.Error(w, `{"error":"client id required"}`, http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.registry.Add(clientID, conn)
	defer func() {
		h.registry.Remove(clientID, conn)
		conn.Close()
	}()

	stop := make(chan struct{})
	go h.pingLoop(clientID, stop)
	defer close(stop)

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket read error", zap.String("client_id", clientID), zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var req map[string]any
		if json.Unmarshal(msg, &req) == nil && req["type"] == "ping" {
			h.registry.Send(clientID, map[string]string{"type": "pong"})
		}
	}
}

func (h *Handler) pingLoop(clientID string, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := h.registry.Ping(clientID); err != nil {
				return
			}
		}
	}
}

// Package ws delivers pipeline progress to browsers over per-client
// WebSocket channels.
package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/maclay/research-assistant/backend/internal/models"
)

const writeWait = 10 * time.Second

// ErrNotConnected is returned when no channel exists for a client id.
var ErrNotConnected = errors.New("ws: client not connected")

// Registry maps opaque client ids to their live connections. Entries are
// inserted on connect and removed on disconnect; research runs and HTTP
// handlers may touch it concurrently, so all access goes through the mutex.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *zap.Logger
}

type client struct {
	conn *websocket.Conn
	// gorilla connections allow one concurrent writer.
	writeMu sync.Mutex
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{clients: make(map[string]*client), logger: logger}
}

// Add registers a connection, replacing any previous one for the same id.
func (r *Registry) Add(clientID string, conn *websocket.Conn) {
	r.mu.Lock()
	old := r.clients[clientID]
	r.clients[clientID] = &client{conn: conn}
	r.mu.Unlock()

	if old != nil {
		old.conn.Close()
	}
	r.logger.Info("progress channel connected", zap.String("client_id", clientID))
}

// Remove drops the connection for a client id, if it is still the given one.
func (r *Registry) Remove(clientID string, conn *websocket.Conn) {
	r.mu.Lock()
	if c, ok := r.clients[clientID]; ok && c.conn == conn {
		delete(r.clients, clientID)
	}
	r.mu.Unlock()
	r.logger.Info("progress channel disconnected", zap.String("client_id", clientID))
}

// IsConnected reports whether a channel currently exists for the client.
func (r *Registry) IsConnected(clientID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[clientID]
	return ok
}

// Send writes one JSON frame to the client's channel.
func (r *Registry) Send(clientID string, v any) error {
	r.mu.RLock()
	c, ok := r.clients[clientID]
	r.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Ping writes a ping control frame on the client's channel.
func (r *Registry) Ping(clientID string) error {
	r.mu.RLock()
	c, ok := r.clients[clientID]
	r.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Notifier adapts the registry to the pipeline's progress sink for one
// client. Delivery failures are logged and swallowed: progress is telemetry,
// not a control signal.
type Notifier struct {
	registry *Registry
	clientID string
	logger   *zap.Logger
}

func NewNotifier(registry *Registry, clientID string, logger *zap.Logger) *Notifier {
	return &Notifier{registry: registry, clientID: clientID, logger: logger}
}

// Notify pushes one stage_update frame.
func (n *Notifier) Notify(stage string, status models.StageStatus, progress int, message string) {
	update := models.StageUpdate{
		Type:      "stage_update",
		Stage:     stage,
		Status:    status,
		Progress:  progress,
		Message:   message,
		Timestamp: time.Now(),
	}
	if err := n.registry.Send(n.clientID, update); err != nil && !errors.Is(err, ErrNotConnected) {
		n.logger.Debug("progress delivery failed",
			zap.String("client_id", n.clientID), zap.String("stage", stage), zap.Error(err))
	}
}

// Complete pushes the terminal completion frame.
func (n *Notifier) Complete(c models.Completion) {
	c.Type = "completion"
	c.Timestamp = time.Now()
	if err := n.registry.Send(n.clientID, c); err != nil && !errors.Is(err, ErrNotConnected) {
		n.logger.Debug("completion delivery failed",
			zap.String("client_id", n.clientID), zap.Error(err))
	}
}

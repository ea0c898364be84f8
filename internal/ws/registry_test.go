package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/maclay/research-assistant/backend/internal/models"
)

// dialTestServer upgrades one connection server-side and hands both ends to
// the test.
func dialTestServer(t *testing.T, registry *Registry, clientID string) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		registry.Add(clientID, conn)
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	return clientConn, <-serverConns
}

func TestRegistrySendDeliversFrames(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	clientConn, _ := dialTestServer(t, registry, "c1")

	require.True(t, registry.IsConnected("c1"))
	require.NoError(t, registry.Send("c1", map[string]string{"type": "stage_update", "stage": "data_collection"}))

	var got map[string]string
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, clientConn.ReadJSON(&got))
	assert.Equal(t, "stage_update", got["type"])
	assert.Equal(t, "data_collection", got["stage"])
}

func TestRegistrySendNotConnected(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	err := registry.Send("ghost", map[string]string{"type": "stage_update"})
	require.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, registry.IsConnected("ghost"))
}

func TestRegistryRemoveOnlyDropsSameConn(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	_, first := dialTestServer(t, registry, "c1")
	_, second := dialTestServer(t, registry, "c1")

	// The stale connection's deferred cleanup must not evict the newer one.
	registry.Remove("c1", first)
	assert.True(t, registry.IsConnected("c1"))

	registry.Remove("c1", second)
	assert.False(t, registry.IsConnected("c1"))
}

func TestNotifierFrames(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	clientConn, _ := dialTestServer(t, registry, "c1")
	n := NewNotifier(registry, "c1", zap.NewNop())

	n.Notify(models.StageDataCollection, models.StageActive, 30, "Sending request to the model...")

	var update models.StageUpdate
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, clientConn.ReadJSON(&update))
	assert.Equal(t, "stage_update", update.Type)
	assert.Equal(t, models.StageDataCollection, update.Stage)
	assert.Equal(t, models.StageActive, update.Status)
	assert.Equal(t, 30, update.Progress)
	assert.False(t, update.Timestamp.IsZero())

	n.Complete(models.Completion{Success: true, ReportID: 7, Message: "Research completed successfully"})

	var done models.Completion
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, clientConn.ReadJSON(&done))
	assert.Equal(t, "completion", done.Type)
	assert.True(t, done.Success)
	assert.Equal(t, int64(7), done.ReportID)
}

func TestNotifierSwallowsDisconnected(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	n := NewNotifier(registry, "nobody", zap.NewNop())

	// Progress to a client that never connected is dropped silently.
	n.Notify(models.StageDataCollection, models.StageActive, 10, "Preparing request...")
	n.Complete(models.Completion{Success: false, Error: "boom"})
}

func TestHandlerServeRegistersAndAnswersPing(t *testing.T) {
	registry := NewRegistry(zap.NewNop())
	h := NewHandler(registry, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/ws/{clientID}", h.Serve)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/c42"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return registry.IsConnected("c42") },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	var pong map[string]string
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])

	conn.Close()
	require.Eventually(t, func() bool { return !registry.IsConnected("c42") },
		2*time.Second, 10*time.Millisecond)
}

package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.Init(logger.Config{Level: "error", Format: "json"})
}

func startServer(t *testing.T, m *Manager) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := m.Register(logger.WebSocketContext(r), conn)
		go c.WritePump()
		go c.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestManager_BroadcastReachesAllSpectators(t *testing.T) {
	m, err := NewManager(Config{}, 1)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	url := startServer(t, m)
	a, b := dial(t, url), dial(t, url)
	require.Eventually(t, func() bool { return m.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	m.Broadcast([]byte(`{"command":"pool_updated"}`))

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"command":"pool_updated"}`, string(msg))
	}
}

func TestManager_UnregistersClosedSpectator(t *testing.T) {
	m, err := NewManager(Config{}, 2)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	conn := dial(t, startServer(t, m))
	require.Eventually(t, func() bool { return m.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	assert.Eventually(t, func() bool { return m.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestManager_ShutdownClosesConnections(t *testing.T) {
	m, err := NewManager(Config{}, 3)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)

	conn := dial(t, startServer(t, m))
	require.Eventually(t, func() bool { return m.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return m.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestNewManager_InvalidNode(t *testing.T) {
	_, err := NewManager(Config{}, -1)
	assert.Error(t, err)
}

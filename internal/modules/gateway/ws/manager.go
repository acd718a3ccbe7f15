// Package ws keeps the spectator WebSocket connections and fans round
// notifications out to them.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gorilla/websocket"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
)

type CloseReason string

const (
	ReasonWriteError CloseReason = "write_error"
	ReasonPingError  CloseReason = "ping_error"
	ReasonReadError  CloseReason = "read_error"
	ReasonShutdown   CloseReason = "server_shutdown"
	ReasonBufferFull CloseReason = "buffer_full"
)

// Config controls connection timing
type Config struct {
	PingInterval   time.Duration
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func (c *Config) fill() {
	if c.PingInterval <= 0 {
		c.PingInterval = 54 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 512
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 256
	}
}

// Connection is one spectator
type Connection struct {
	ID        int64
	Conn      *websocket.Conn
	Send      chan []byte
	manager   *Manager
	ctx       context.Context
	closeOnce sync.Once
}

// Manager manages all spectator connections
type Manager struct {
	cfg        Config
	node       *snowflake.Node
	clients    map[int64]*Connection
	register   chan *Connection
	unregister chan *Connection
	done       chan struct{}
	mu         sync.RWMutex
}

// NewManager creates a new connection manager. nodeID seeds connection ids.
func NewManager(cfg Config, nodeID int64) (*Manager, error) {
	cfg.fill()
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &Manager{
		cfg:        cfg,
		node:       node,
		clients:    make(map[int64]*Connection),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		done:       make(chan struct{}),
	}, nil
}

// Register adds a connection and returns it; ctx carries the connection logger
func (m *Manager) Register(ctx context.Context, conn *websocket.Conn) *Connection {
	c := &Connection{
		ID:      m.node.Generate().Int64(),
		Conn:    conn,
		Send:    make(chan []byte, m.cfg.SendBuffer),
		manager: m,
		ctx:     ctx,
	}
	select {
	case m.register <- c:
	case <-m.done:
		c.CloseWithReason(ReasonShutdown, nil)
	}
	return c
}

// Run owns the client map until ctx is done, then closes every connection
func (m *Manager) Run(ctx context.Context) {
	defer m.Shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client.ID] = client
			m.mu.Unlock()
			logger.Debug(client.ctx).Int64("conn_id", client.ID).Int("spectators", m.Count()).Msg("Spectator connected")

		case client := <-m.unregister:
			m.mu.Lock()
			delete(m.clients, client.ID)
			m.mu.Unlock()
		}
	}
}

// Count returns the number of connected spectators
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Broadcast queues message for every spectator. A spectator whose buffer is
// full is disconnected rather than slowing the others down.
func (m *Manager) Broadcast(message []byte) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		select {
		case client.Send <- message:
		default:
			client.CloseWithReason(ReasonBufferFull, nil)
		}
	}
}

// Shutdown closes all connections. Safe to call more than once.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
	default:
		close(m.done)
	}
	for id, client := range m.clients {
		client.CloseWithReason(ReasonShutdown, nil)
		delete(m.clients, id)
	}
}

// CloseWithReason closes the socket once; ReadPump then unregisters it
func (c *Connection) CloseWithReason(r CloseReason, err error) {
	c.closeOnce.Do(func() {
		ev := logger.Info(c.ctx)
		if err != nil {
			ev = logger.Warn(c.ctx).Err(err)
		}
		ev.Int64("conn_id", c.ID).Str("reason", string(r)).Msg("ws connection closed")
		_ = c.Conn.Close()
	})
}

// WritePump writes queued messages and keeps the connection alive with pings
func (c *Connection) WritePump() {
	cfg := c.manager.cfg
	ticker := time.NewTicker(cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.CloseWithReason(ReasonWriteError, err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.CloseWithReason(ReasonPingError, err)
				return
			}

		case <-c.manager.done:
			return
		}
	}
}

// ReadPump drains the connection so pongs and close frames are processed.
// Spectators have nothing to say; anything they send is discarded.
func (c *Connection) ReadPump() {
	cfg := c.manager.cfg
	var readErr error
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.done:
		}
		c.CloseWithReason(ReasonReadError, readErr)
	}()

	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				readErr = err
			}
			return
		}
	}
}

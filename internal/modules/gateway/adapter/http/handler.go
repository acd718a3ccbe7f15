package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nikepigwin/officialmainnetnplottery/internal/modules/gateway/ws"
	"github.com/nikepigwin/officialmainnetnplottery/pkg/logger"
)

// Handler upgrades spectators to WebSocket
type Handler struct {
	manager  *ws.Manager
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *ws.Manager) *Handler {
	return &Handler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // public read-only feed
			},
		},
	}
}

// RegisterRoutes mounts /ws
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws", h.HandleWebSocket)
}

// HandleWebSocket upgrades the request and starts the connection pumps
func (h *Handler) HandleWebSocket(c *gin.Context) {
	ctx := logger.WebSocketContext(c.Request)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("remote_addr", c.Request.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}

	client := h.manager.Register(ctx, conn)
	go client.WritePump()
	go client.ReadPump()
}

package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"ludo/internal/ports"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP connections to the per-room WebSocket endpoint
// (spec §6: "/<GAMECODE>"), grounded on handler.go's upgrader setup.
type Handler struct {
	registry      Registry
	identity      ports.Identity
	allowedOrigin string
	log           *slog.Logger
}

// NewHandler builds a Handler. allowedOrigin == "" accepts any origin.
func NewHandler(registry Registry, identity ports.Identity, allowedOrigin string, log *slog.Logger) *Handler {
	return &Handler{registry: registry, identity: identity, allowedOrigin: allowedOrigin, log: log}
}

// ServeRoom upgrades the connection and runs its Session until close.
// The room code is the gin path parameter "code", stored uppercase
// per spec §6.
func (h *Handler) ServeRoom(c *gin.Context) {
	code := strings.ToUpper(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing room code"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if h.allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == h.allowedOrigin
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}

	client := New(conn, h.registry, h.identity, code, h.log.With("room", code))
	go client.Run()
}

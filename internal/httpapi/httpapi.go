// Package httpapi is the auxiliary HTTP surface alongside the
// WebSocket Session layer (spec §6): health/liveness probes, the
// Prometheus scrape endpoint, and the Telegram-login exchange that
// hands a client its bearer token before it ever opens a room socket.
// Grounded on the teacher's gin router setup and telegram_auth.go's
// init-data-then-JWT handoff.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"ludo/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Issuer mints a bearer token once a login has been verified
// out-of-band, implemented by identity.JWTIdentity.
type Issuer interface {
	Issue(userID, displayName string) (string, error)
}

// RoomHandler upgrades a room path to a WebSocket connection,
// implemented by ws.Handler.
type RoomHandler interface {
	ServeRoom(c *gin.Context)
}

// Server wires the auxiliary HTTP routes onto a gin engine.
type Server struct {
	issuer      Issuer
	botToken    string
	roomHandler RoomHandler
	log         *slog.Logger
}

// New builds a Server. botToken is the Telegram bot token used to
// validate init_data on /auth/telegram; an empty token disables that
// route (there is nothing to validate against).
func New(issuer Issuer, botToken string, roomHandler RoomHandler, log *slog.Logger) *Server {
	return &Server{issuer: issuer, botToken: botToken, roomHandler: roomHandler, log: log}
}

// Register mounts every route onto engine.
func (s *Server) Register(engine *gin.Engine) {
	engine.GET("/health", s.handleHealth)
	engine.GET("/ping", s.handlePing)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.POST("/auth/telegram", s.handleTelegramLogin)
	engine.GET("/:code", s.roomHandler.ServeRoom)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handlePing(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

type telegramLoginRequest struct {
	InitData string `json:"initData"`
}

type telegramUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

type telegramLoginResponse struct {
	Token string `json:"token"`
}

// handleTelegramLogin validates the WebApp init_data payload and, on
// success, mints the bearer token every Session's AUTH frame expects
// (spec §4.4, §5).
func (s *Server) handleTelegramLogin(c *gin.Context) {
	if s.botToken == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "telegram login not configured"})
		return
	}

	var req telegramLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request"})
		return
	}

	values, err := identity.ValidateTelegramInitData(req.InitData, s.botToken)
	if err != nil {
		s.log.Warn("telegram init data rejected", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
		return
	}

	var user telegramUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user"})
		return
	}

	displayName := user.Username
	if displayName == "" {
		displayName = user.FirstName
	}

	token, err := s.issuer.Issue(strconv.FormatInt(user.ID, 10), displayName)
	if err != nil {
		s.log.Error("issue token failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}

	c.JSON(http.StatusOK, telegramLoginResponse{Token: token})
}

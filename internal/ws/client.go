// Package ws is the Session Layer (spec §4.4): one Client per
// connection, carrying it through Unauthenticated -> Authenticated ->
// Closed. Grounded on the teacher's client.go readPump/writePump
// goroutine pair and ping/pong keepalive constants, generalized from
// a single bet-settling room handoff to the {action,payload} inbound /
// {type,payload} outbound frame contract and room.Writer interface.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"ludo/internal/metrics"
	"ludo/internal/ports"
	"ludo/internal/room"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	authTimeout = 5 * time.Second
)

// sessionState is the Session's position in its state machine.
type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

// inboundFrame is the wire shape of a client->server message.
type inboundFrame struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

type authPayload struct {
	Token string `json:"token"`
}

type movePiecePayload struct {
	PieceID int `json:"pieceId"`
}

type sendChatPayload struct {
	Text string `json:"text"`
}

// Registry is the narrow surface Client needs from the Room Registry.
type Registry interface {
	Join(ctx context.Context, code, userID, name string, w room.Writer) error
	Action(code string, a room.Action)
	Leave(code, userID string)
}

// Client owns one WebSocket connection and its Session state.
type Client struct {
	conn     *websocket.Conn
	registry Registry
	identity ports.Identity
	code     string
	log      *slog.Logger

	send chan room.Frame

	mu     sync.Mutex
	state  sessionState
	userID string
}

// New builds a Client bound to room code for the given connection.
// code is the uppercase room code parsed from the connection path.
func New(conn *websocket.Conn, registry Registry, identity ports.Identity, code string, log *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		registry: registry,
		identity: identity,
		code:     code,
		log:      log,
		send:     make(chan room.Frame, 64),
		state:    stateUnauthenticated,
	}
}

// Send implements room.Writer. It never blocks the Room Actor: a full
// queue (a stalled client) drops the frame rather than backing up the
// single-threaded room.
func (c *Client) Send(frame room.Frame) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Run drives the connection until it closes. It starts the write pump
// first so queued frames (including an eventual AUTH_FAILURE) can
// always be flushed, then reads inbound frames until the socket errs.
func (c *Client) Run() {
	metrics.ActiveSessions.Inc()
	go c.writePump()
	defer c.teardown()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		c.log.Warn("malformed inbound frame", "error", err)
		return
	}

	c.mu.Lock()
	state := c.state
	userID := c.userID
	c.mu.Unlock()

	if state == stateUnauthenticated {
		if frame.Action == "AUTH" {
			c.handleAuth(frame.Payload)
		}
		// any other action while unauthenticated is dropped, per spec §4.4
		return
	}

	switch frame.Action {
	case "START_GAME":
		c.registry.Action(c.code, room.Action{UserID: userID, Kind: room.ActionStartGame})
	case "ROLL_DICE":
		c.registry.Action(c.code, room.Action{UserID: userID, Kind: room.ActionRollDice})
	case "MOVE_PIECE":
		var p movePiecePayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return
		}
		c.registry.Action(c.code, room.Action{UserID: userID, Kind: room.ActionMovePiece, PieceID: p.PieceID})
	case "LEAVE_GAME":
		c.registry.Action(c.code, room.Action{UserID: userID, Kind: room.ActionLeaveGame})
	case "SEND_CHAT_MESSAGE":
		var p sendChatPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			return
		}
		c.registry.Action(c.code, room.Action{UserID: userID, Kind: room.ActionSendChat, Text: p.Text})
	default:
		// unknown action: NoOp, silently dropped (spec §9 "Dynamic action dispatch")
	}
}

func (c *Client) handleAuth(payload json.RawMessage) {
	var p authPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.authFailure("malformed auth payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	userID, displayName, err := c.identity.Resolve(ctx, p.Token)
	if err != nil {
		c.authFailure("invalid or expired token")
		return
	}

	if err := c.registry.Join(ctx, c.code, userID, displayName, c); err != nil {
		c.log.Warn("room join failed", "code", c.code, "error", err)
		c.roomUnavailable(err.Error())
		return
	}

	c.mu.Lock()
	c.state = stateAuthenticated
	c.userID = userID
	c.mu.Unlock()

	c.Send(room.Frame{Type: room.FrameAuthSuccess})
}

// authFailure closes the connection with 4001, reserved for identity
// failures: a malformed auth frame or a token that doesn't resolve.
func (c *Client) authFailure(message string) {
	c.close(4001, message)
}

// roomUnavailable closes the connection with 1011, used when the
// identity resolved fine but the room itself couldn't be joined (an
// already-completed tournament, a persistence lookup error).
func (c *Client) roomUnavailable(message string) {
	c.close(1011, message)
}

func (c *Client) close(code int, message string) {
	c.Send(room.Frame{Type: room.FrameAuthFailure, Payload: map[string]string{"message": message}})
	c.mu.Lock()
	c.state = stateClosed
	c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, message), time.Now().Add(writeWait))
	_ = c.conn.Close()
}

func (c *Client) teardown() {
	metrics.ActiveSessions.Dec()
	c.mu.Lock()
	userID := c.userID
	wasAuthenticated := c.state == stateAuthenticated
	c.state = stateClosed
	c.mu.Unlock()

	if wasAuthenticated {
		c.registry.Leave(c.code, userID)
	}
	_ = c.conn.Close()
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

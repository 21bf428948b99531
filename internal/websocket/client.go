package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"ngabarin/realtime/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 256
)

// Conn is the subset of *websocket.Conn the pumps use
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dispatcher handles inbound events of one connection, in order
type Dispatcher interface {
	Dispatch(ctx context.Context, msg IncomingMessage)
}

// Client represents a WebSocket client connection
type Client struct {
	ID       string // Connection ID
	UserID   string
	Username string
	Conn     Conn
	Hub      *Hub

	send  chan []byte
	rooms map[Room]struct{} // guarded by Hub.mu
}

// NewClient creates a new WebSocket client
func NewClient(userID, username string, conn Conn, hub *Hub) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		Username: username,
		Conn:     conn,
		Hub:      hub,
		send:     make(chan []byte, sendBufferSize),
		rooms:    make(map[Room]struct{}),
	}
}

// Outbox exposes queued outbound frames
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

// ReadPump handles incoming messages from the client. It blocks until the
// connection fails or closes; the caller runs the disconnect sequence.
func (c *Client) ReadPump(ctx context.Context, d Dispatcher) {
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("ws_read_failed", "conn_id", c.ID, "user_id", c.UserID, "error", err)
			}
			return
		}

		// Parse incoming message
		var incoming IncomingMessage
		if err := json.Unmarshal(message, &incoming); err != nil {
			logger.Debug("ws_parse_failed", "conn_id", c.ID, "error", err)
			c.Reply(WSMessage{
				Type:    EventError,
				Payload: map[string]string{"code": "invalid_request", "message": "Invalid message format"},
			})
			continue
		}

		d.Dispatch(ctx, incoming)
	}
}

// WritePump handles outgoing messages to the client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("ws_write_failed", "conn_id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Reply sends a message to this connection only
func (c *Client) Reply(msg WSMessage) {
	c.Hub.SendTo(c, msg)
}

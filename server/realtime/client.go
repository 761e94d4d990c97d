package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hrygo/execfi/server/middleware"
)

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// identity and rooms are guarded by hub.mu.
	identity *middleware.Identity
	rooms    map[string]struct{}

	sendMu sync.Mutex
	closed bool
}

func (c *client) userID() string {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.identity == nil {
		return ""
	}
	return c.identity.UserID
}

// enqueue reports false when the client's buffer is full.
func (c *client) enqueue(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *client) reply(event string, payload any) {
	frame, err := encode(event, payload)
	if err != nil {
		return
	}
	if !c.enqueue(frame) {
		c.hub.unregister(c)
	}
}

func (c *client) readPump() {
	defer c.hub.wg.Done()
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read failed", "error", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.reply(EventError, map[string]string{"message": "Invalid frame"})
			continue
		}
		c.hub.handle(c, env)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Package realtime pushes ledger and signal events to connected clients over
// websockets. Clients join rooms; events are published to rooms.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hrygo/execfi/server/middleware"
)

// Events sent to clients.
const (
	EventAuthenticated         = "authenticated"
	EventTransactionSubscribed = "transaction-subscribed"
	EventTransactionUpdate     = "transaction-update"
	EventSignalAlert           = "signal-alert"
	EventMessage               = "message"
	EventError                 = "error"
)

// Events received from clients.
const (
	eventAuthenticate         = "authenticate"
	eventJoinConversation     = "join-conversation"
	eventLeaveConversation    = "leave-conversation"
	eventSubscribeTransaction = "subscribe-transaction"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 8 << 10
	sendBuffer     = 32
)

// UserRoom is the room every authenticated connection of userID joins.
func UserRoom(userID string) string { return "user-" + userID }

// TransactionRoom is the room receiving updates of one ledger action.
func TransactionRoom(actionID string) string { return "transaction-" + actionID }

// ConversationRoom is the room shared by clients viewing one conversation.
func ConversationRoom(conversationID string) string { return "conversation-" + conversationID }

// Authorizer decides whether userID may join room. A nil Authorizer allows
// every room.
type Authorizer interface {
	CanJoin(ctx context.Context, userID, room string) bool
}

// Envelope is the frame format in both directions.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
}

// Hub tracks connections and their rooms.
type Hub struct {
	secret     string
	authorizer Authorizer
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	rooms   map[string]map[*client]struct{}
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewHub creates a hub that verifies tokens with secret.
func NewHub(secret string, authorizer Authorizer) *Hub {
	return &Hub{
		secret:     secret,
		authorizer: authorizer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms:   make(map[string]map[*client]struct{}),
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request. A bearer token in the Authorization header
// or the "token" query parameter authenticates the connection immediately;
// otherwise the client must send an authenticate event first.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var identity *middleware.Identity
	if id, ok := middleware.IdentityFromContext(r.Context()); ok {
		identity = id
	} else if raw := requestToken(r); raw != "" {
		id, err := middleware.ParseToken(h.secret, raw)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		identity = id
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	if identity != nil {
		h.authenticate(c, identity)
	}

	h.wg.Add(2)
	go c.writePump()
	go c.readPump()
}

func requestToken(r *http.Request) string {
	if raw, ok := middleware.BearerToken(r.Header.Get("Authorization")); ok {
		return raw
	}
	return r.URL.Query().Get("token")
}

// Publish sends event to every client in room. Slow clients whose buffer is
// full are disconnected. Publishing never blocks.
func (h *Hub) Publish(room, event string, payload any) {
	frame, err := encode(event, payload)
	if err != nil {
		slog.Warn("failed to encode realtime event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(frame) {
			slog.Warn("dropping slow websocket client", "user_id", c.userID(), "room", room)
			h.unregister(c)
		}
	}
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every client and waits for their goroutines.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
	h.wg.Wait()
	return nil
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	h.mu.Unlock()

	c.sendMu.Lock()
	c.closed = true
	close(c.send)
	c.sendMu.Unlock()
}

func (h *Hub) join(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *client, room string) {
	delete(c.rooms, room)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) authenticate(c *client, id *middleware.Identity) {
	h.mu.Lock()
	c.identity = id
	h.mu.Unlock()
	h.join(c, UserRoom(id.UserID))
	c.reply(EventAuthenticated, map[string]any{"success": true})
}

func (h *Hub) canJoin(ctx context.Context, userID, room string) bool {
	if h.authorizer == nil {
		return true
	}
	return h.authorizer.CanJoin(ctx, userID, room)
}

// handle dispatches one client frame.
func (h *Hub) handle(c *client, env Envelope) {
	if env.Event == eventAuthenticate {
		var raw string
		if err := json.Unmarshal(env.Data, &raw); err != nil {
			c.reply(EventAuthenticated, map[string]any{"success": false, "error": "Invalid token"})
			return
		}
		id, err := middleware.ParseToken(h.secret, raw)
		if err != nil {
			c.reply(EventAuthenticated, map[string]any{"success": false, "error": "Invalid token"})
			return
		}
		h.authenticate(c, id)
		return
	}

	userID := c.userID()
	if userID == "" {
		c.reply(EventError, map[string]string{"message": "Not authenticated"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	switch env.Event {
	case eventJoinConversation, eventLeaveConversation, eventSubscribeTransaction:
		var id string
		if err := json.Unmarshal(env.Data, &id); err != nil || strings.TrimSpace(id) == "" {
			c.reply(EventError, map[string]string{"message": "Invalid room id"})
			return
		}
		switch env.Event {
		case eventLeaveConversation:
			h.leave(c, ConversationRoom(id))
		case eventJoinConversation:
			room := ConversationRoom(id)
			if !h.canJoin(ctx, userID, room) {
				c.reply(EventError, map[string]string{"message": "Forbidden"})
				return
			}
			h.join(c, room)
		case eventSubscribeTransaction:
			room := TransactionRoom(id)
			if !h.canJoin(ctx, userID, room) {
				c.reply(EventError, map[string]string{"message": "Forbidden"})
				return
			}
			h.join(c, room)
			c.reply(EventTransactionSubscribed, map[string]string{"transactionId": id})
		}
	case EventMessage:
		var msg struct {
			ConversationID string `json:"conversationId"`
			Content        string `json:"content"`
		}
		if err := json.Unmarshal(env.Data, &msg); err != nil || msg.ConversationID == "" {
			c.reply(EventError, map[string]string{"message": "Failed to process message"})
			return
		}
		h.broadcastExcept(c, ConversationRoom(msg.ConversationID), EventMessage, map[string]any{
			"conversationId": msg.ConversationID,
			"userId":         userID,
			"content":        msg.Content,
		})
	default:
		c.reply(EventError, map[string]string{"message": "Unknown event " + env.Event})
	}
}

// broadcastExcept relays to the room the sender is a member of, skipping the
// sender.
func (h *Hub) broadcastExcept(sender *client, room, event string, payload any) {
	frame, err := encode(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	_, member := h.rooms[room][sender]
	var targets []*client
	if member {
		for c := range h.rooms[room] {
			if c != sender {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(frame) {
			h.unregister(c)
		}
	}
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data, Timestamp: time.Now().UTC()})
}

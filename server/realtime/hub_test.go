package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hrygo/execfi/server/middleware"
)

const testSecret = "hub-secret"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type denyConversations struct{}

func (denyConversations) CanJoin(_ context.Context, _ string, room string) bool {
	return !strings.HasPrefix(room, "conversation-")
}

func startHub(t *testing.T, authorizer Authorizer) (*Hub, string) {
	t.Helper()
	hub := NewHub(testSecret, authorizer)
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		require.NoError(t, hub.Close())
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func token(t *testing.T, userID string) string {
	t.Helper()
	raw, err := middleware.IssueToken(testSecret, middleware.Identity{UserID: userID, WalletAddress: "wallet-" + userID, Chain: "solana"}, time.Hour)
	require.NoError(t, err)
	return raw
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Event: event, Data: raw}))
}

func next(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return env.Event, data
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 10*time.Millisecond)
}

func TestHub_TokenOnConnectJoinsUserRoom(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url+"?token="+token(t, "u1"))

	event, data := next(t, conn)
	assert.Equal(t, EventAuthenticated, event)
	assert.Equal(t, true, data["success"])
	waitFor(t, func() bool { return hub.RoomSize(UserRoom("u1")) == 1 })

	hub.Publish(UserRoom("u1"), EventSignalAlert, map[string]any{"signal": map[string]any{"tokenSymbol": "BONK"}})
	event, data = next(t, conn)
	assert.Equal(t, EventSignalAlert, event)
	assert.Equal(t, "BONK", data["signal"].(map[string]any)["tokenSymbol"])
}

func TestHub_InvalidTokenRejected(t *testing.T) {
	_, url := startHub(t, nil)
	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestHub_AuthenticateEvent(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url)

	send(t, conn, eventSubscribeTransaction, "a1")
	event, data := next(t, conn)
	assert.Equal(t, EventError, event)
	assert.Equal(t, "Not authenticated", data["message"])

	send(t, conn, eventAuthenticate, "garbage")
	event, data = next(t, conn)
	assert.Equal(t, EventAuthenticated, event)
	assert.Equal(t, false, data["success"])

	send(t, conn, eventAuthenticate, token(t, "u2"))
	event, _ = next(t, conn)
	assert.Equal(t, EventAuthenticated, event)

	send(t, conn, eventSubscribeTransaction, "a1")
	event, data = next(t, conn)
	assert.Equal(t, EventTransactionSubscribed, event)
	assert.Equal(t, "a1", data["transactionId"])

	hub.Publish(TransactionRoom("a1"), EventTransactionUpdate, map[string]string{"status": "confirmed"})
	event, data = next(t, conn)
	assert.Equal(t, EventTransactionUpdate, event)
	assert.Equal(t, "confirmed", data["status"])
}

func TestHub_AuthorizerDeniesRoom(t *testing.T) {
	hub, url := startHub(t, denyConversations{})
	conn := dial(t, url+"?token="+token(t, "u3"))
	next(t, conn)

	send(t, conn, eventJoinConversation, "c1")
	event, data := next(t, conn)
	assert.Equal(t, EventError, event)
	assert.Equal(t, "Forbidden", data["message"])
	assert.Zero(t, hub.RoomSize(ConversationRoom("c1")))
}

func TestHub_ConversationRelaySkipsSender(t *testing.T) {
	hub, url := startHub(t, nil)
	a := dial(t, url+"?token="+token(t, "ua"))
	b := dial(t, url+"?token="+token(t, "ub"))
	next(t, a)
	next(t, b)

	send(t, a, eventJoinConversation, "c9")
	send(t, b, eventJoinConversation, "c9")
	waitFor(t, func() bool { return hub.RoomSize(ConversationRoom("c9")) == 2 })

	send(t, a, EventMessage, map[string]string{"conversationId": "c9", "content": "hi"})
	event, data := next(t, b)
	assert.Equal(t, EventMessage, event)
	assert.Equal(t, "ua", data["userId"])
	assert.Equal(t, "hi", data["content"])

	send(t, b, eventLeaveConversation, "c9")
	waitFor(t, func() bool { return hub.RoomSize(ConversationRoom("c9")) == 1 })
}

func TestHub_DisconnectLeavesRooms(t *testing.T) {
	hub, url := startHub(t, nil)
	conn := dial(t, url+"?token="+token(t, "u4"))
	next(t, conn)
	waitFor(t, func() bool { return hub.RoomSize(UserRoom("u4")) == 1 })

	require.NoError(t, conn.Close())
	waitFor(t, func() bool { return hub.RoomSize(UserRoom("u4")) == 0 })

	hub.Publish(UserRoom("u4"), EventSignalAlert, map[string]string{"x": "y"})
}

package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChatHandler records every call it receives and, when a reply is
// configured for an action, sends it back through the manager so tests can
// assert on what the client observes.
type stubChatHandler struct {
	mu      sync.Mutex
	calls   []string
	connID  string
	manager *ConnectionManager
	reply   map[string]any // action -> payload to send back via SendJSON
}

func newStubChatHandler() *stubChatHandler {
	return &stubChatHandler{reply: make(map[string]any)}
}

func (h *stubChatHandler) record(action string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, action)
}

func (h *stubChatHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// lastConnID returns the connection ID seen by the most recent handler
// call, letting integration tests drive Subscribe/Unsubscribe directly
// without reaching into ConnectionManager internals.
func (h *stubChatHandler) lastConnID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connID
}

func (h *stubChatHandler) HandleSendMessage(_ context.Context, connID string, msg ClientMessage) {
	h.mu.Lock()
	h.connID = connID
	h.mu.Unlock()
	h.record(ActionSendMessage)
	if r, ok := h.reply[ActionSendMessage]; ok {
		h.manager.SendJSON(connID, r)
	}
}

func (h *stubChatHandler) HandleRecoverMessage(_ context.Context, connID string, msg ClientMessage) {
	h.record(ActionRecoverMessage)
	if r, ok := h.reply[ActionRecoverMessage]; ok {
		h.manager.SendJSON(connID, r)
	}
}

func (h *stubChatHandler) HandleUpdateSessionModel(_ context.Context, connID string, msg ClientMessage) {
	h.record(ActionUpdateSessionModel)
	if r, ok := h.reply[ActionUpdateSessionModel]; ok {
		h.manager.SendJSON(connID, r)
	}
}

func (h *stubChatHandler) HandleTypingStart(_ context.Context, connID string, msg ClientMessage) {
	h.record(ActionTypingStart)
}

func (h *stubChatHandler) HandleTypingStop(_ context.Context, connID string, msg ClientMessage) {
	h.record(ActionTypingStop)
}

func setupTestManager(t *testing.T) (*ConnectionManager, *stubChatHandler, *httptest.Server) {
	t.Helper()

	handler := newStubChatHandler()
	manager := NewConnectionManager(handler, 5*time.Second)
	handler.manager = manager

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			t.Logf("WebSocket accept error: %v", err)
			return
		}
		manager.HandleConnection(r.Context(), conn, "test-user", "test-user@example.com")
	}))
	t.Cleanup(func() { server.Close() })
	return manager, handler, server
}

func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeJSON(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestConnectionManager_SendMessageDispatchesToHandler(t *testing.T) {
	manager, handler, server := setupTestManager(t)
	handler.reply[ActionSendMessage] = MessageConfirmedPayload{Type: TypeMessageConfirmed, SessionID: "sess-1", MessageID: "m1"}

	conn := connectWS(t, server)
	writeJSON(t, conn, ClientMessage{Action: ActionSendMessage, SessionID: "sess-1", Text: "how many voters in Essex county?"})

	msg := readJSON(t, conn)
	assert.Equal(t, TypeMessageConfirmed, msg["type"])
	assert.Equal(t, "m1", msg["message_id"])
	assert.Equal(t, 1, handler.callCount())

	require.Eventually(t, func() bool {
		return manager.ActiveConnections() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionManager_SendMessageAutoSubscribesSessionChannel(t *testing.T) {
	manager, _, server := setupTestManager(t)
	conn := connectWS(t, server)

	writeJSON(t, conn, ClientMessage{Action: ActionSendMessage, SessionID: "sess-auto", Text: "hi"})

	require.Eventually(t, func() bool {
		return manager.subscriberCount(SessionChannel("sess-auto")) == 1
	}, 2*time.Second, 10*time.Millisecond, "send_message should subscribe the connection to its session channel")
}

func TestConnectionManager_RecoverMessageDispatchesToHandler(t *testing.T) {
	_, handler, server := setupTestManager(t)
	handler.reply[ActionRecoverMessage] = MessageRecoveryPayload{Type: TypeMessageRecovery, MessageID: "m1", RecoveredText: "partial answer", IsComplete: false}

	conn := connectWS(t, server)
	writeJSON(t, conn, ClientMessage{Action: ActionRecoverMessage, SessionID: "sess-1", LastMessageID: "m0"})

	msg := readJSON(t, conn)
	assert.Equal(t, TypeMessageRecovery, msg["type"])
	assert.Equal(t, "partial answer", msg["recovered_text"])
	assert.Equal(t, false, msg["is_complete"])
}

func TestConnectionManager_UpdateSessionModel(t *testing.T) {
	_, handler, server := setupTestManager(t)
	handler.reply[ActionUpdateSessionModel] = SessionModelUpdatedPayload{Type: TypeSessionModelUpdated, SessionID: "sess-1", ModelID: "claude-opus"}

	conn := connectWS(t, server)
	writeJSON(t, conn, ClientMessage{Action: ActionUpdateSessionModel, SessionID: "sess-1", ModelID: "claude-opus"})

	msg := readJSON(t, conn)
	assert.Equal(t, TypeSessionModelUpdated, msg["type"])
	assert.Equal(t, "claude-opus", msg["model_id"])
}

func TestConnectionManager_TypingStartStop(t *testing.T) {
	_, handler, server := setupTestManager(t)
	conn := connectWS(t, server)

	writeJSON(t, conn, ClientMessage{Action: ActionTypingStart, SessionID: "sess-1"})
	writeJSON(t, conn, ClientMessage{Action: ActionTypingStop, SessionID: "sess-1"})

	require.Eventually(t, func() bool {
		return handler.callCount() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConnectionManager_UnknownActionReturnsError(t *testing.T) {
	_, _, server := setupTestManager(t)
	conn := connectWS(t, server)

	writeJSON(t, conn, ClientMessage{Action: "frobnicate"})
	msg := readJSON(t, conn)
	assert.Equal(t, TypeError, msg["type"])
	assert.Equal(t, "unknown_action", msg["code"])
}

func TestConnectionManager_MalformedJSONReturnsErrorNotDisconnect(t *testing.T) {
	_, _, server := setupTestManager(t)
	conn := connectWS(t, server)

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(writeCtx, websocket.MessageText, []byte("not json")))

	msg := readJSON(t, conn)
	assert.Equal(t, TypeError, msg["type"])
	assert.Equal(t, "invalid_message", msg["code"])

	// connection must still be usable
	writeJSON(t, conn, ClientMessage{Action: ActionTypingStart, SessionID: "sess-1"})
}

func TestConnectionManager_Broadcast(t *testing.T) {
	manager, _, server := setupTestManager(t)

	conn1 := connectWS(t, server)
	conn2 := connectWS(t, server)

	channel := "session:broadcast-test"
	writeJSON(t, conn1, ClientMessage{Action: ActionSendMessage, SessionID: "broadcast-test", Text: "hi"})
	writeJSON(t, conn2, ClientMessage{Action: ActionSendMessage, SessionID: "broadcast-test", Text: "hi"})

	// No reply is configured for send_message in this test, so nothing is
	// sent to the client yet — only the auto-subscribe to the session
	// channel happens, which Broadcast below exercises.
	require.Eventually(t, func() bool {
		return manager.subscriberCount(channel) == 2
	}, 2*time.Second, 10*time.Millisecond, "expected 2 subscribers")

	payload, _ := json.Marshal(map[string]string{"type": "test", "data": "hello"})
	manager.Broadcast(channel, payload)

	msg1 := readJSON(t, conn1)
	msg2 := readJSON(t, conn2)
	assert.Equal(t, "hello", msg1["data"])
	assert.Equal(t, "hello", msg2["data"])
}

func TestConnectionManager_BroadcastToNonExistentChannel(t *testing.T) {
	manager, _, _ := setupTestManager(t)

	payload, _ := json.Marshal(map[string]string{"type": "test"})
	assert.NotPanics(t, func() {
		manager.Broadcast("nonexistent-channel", payload)
	})
}

func TestConnectionManager_UnsubscribeStopsDelivery(t *testing.T) {
	manager, _, server := setupTestManager(t)
	conn := connectWS(t, server)

	channel := "session:unsub-test"
	writeJSON(t, conn, ClientMessage{Action: ActionSendMessage, SessionID: "unsub-test", Text: "hi"})

	require.Eventually(t, func() bool {
		return manager.subscriberCount(channel) == 1
	}, 2*time.Second, 10*time.Millisecond)

	manager.mu.RLock()
	var connID string
	for id := range manager.connections {
		connID = id
	}
	manager.mu.RUnlock()

	manager.Unsubscribe(connID, channel)

	require.Eventually(t, func() bool {
		return manager.subscriberCount(channel) == 0
	}, 2*time.Second, 10*time.Millisecond)

	payload, _ := json.Marshal(map[string]string{"type": "should-not-receive"})
	manager.Broadcast(channel, payload)

	readCtx, readCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer readCancel()
	_, _, err := conn.Read(readCtx)
	assert.Error(t, err, "should not receive message after unsubscribe")
}

func TestConnectionManager_SetListener(t *testing.T) {
	handler := newStubChatHandler()
	manager := NewConnectionManager(handler, 5*time.Second)
	assert.Nil(t, manager.listener)

	listener := NewNotifyListener("host=localhost", manager)
	manager.SetListener(listener)

	manager.listenerMu.RLock()
	assert.Equal(t, listener, manager.listener)
	manager.listenerMu.RUnlock()
}

func TestConnectionManager_CleanupOnDisconnect(t *testing.T) {
	manager, _, server := setupTestManager(t)

	conn := connectWS(t, server)
	writeJSON(t, conn, ClientMessage{Action: ActionSendMessage, SessionID: "cleanup-test", Text: "hi"})

	require.Eventually(t, func() bool {
		return manager.ActiveConnections() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return manager.ActiveConnections() == 0
	}, 2*time.Second, 10*time.Millisecond)

	payload, _ := json.Marshal(map[string]string{"type": "test"})
	assert.NotPanics(t, func() {
		manager.Broadcast(SessionChannel("cleanup-test"), payload)
	})
}

func TestConnectionManager_SubscribeListenFailure_CleansUpOrphanedSubscribers(t *testing.T) {
	handler := newStubChatHandler()
	manager := NewConnectionManager(handler, 5*time.Second)

	channel := "session:orphan-test"
	connA := &Connection{ID: "conn-a", subscriptions: make(map[string]bool)}

	manager.mu.Lock()
	manager.connections[connA.ID] = connA
	manager.mu.Unlock()

	manager.channelMu.Lock()
	manager.channels[channel] = map[string]bool{connA.ID: true, "conn-b": true, "conn-c": true}
	manager.channelMu.Unlock()

	manager.cleanupFailedChannel(connA.ID, channel)

	assert.Equal(t, 0, manager.subscriberCount(channel))
	manager.channelMu.RLock()
	_, exists := manager.channels[channel]
	manager.channelMu.RUnlock()
	assert.False(t, exists)
}

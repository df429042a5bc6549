package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// listenTimeout bounds how long a LISTEN command may block when subscribing to
// a new PG channel. Without this, a stalled connection would block the
// subscribing goroutine (and thus the client's read loop) indefinitely.
const listenTimeout = 10 * time.Second

// ChatHandler implements the business logic behind each client action.
// It is invoked by the ConnectionManager's read loop and talks back to the
// client for immediate results (session_created, message_confirmed, error)
// through the Sender passed to it; asynchronous turn output
// (message_chunk/message_end) is expected to arrive later via Broadcast on
// the session's channel, published by whatever replica is running the turn.
type ChatHandler interface {
	HandleSendMessage(ctx context.Context, connID string, msg ClientMessage)
	HandleRecoverMessage(ctx context.Context, connID string, msg ClientMessage)
	HandleUpdateSessionModel(ctx context.Context, connID string, msg ClientMessage)
	HandleTypingStart(ctx context.Context, connID string, msg ClientMessage)
	HandleTypingStop(ctx context.Context, connID string, msg ClientMessage)
}

// ConnectionManager manages WebSocket connections and channel subscriptions.
// Each Go process (replica) has one ConnectionManager instance.
type ConnectionManager struct {
	// Active connections: connection_id → *Connection
	connections map[string]*Connection
	mu          sync.RWMutex

	// Channel subscriptions: channel → set of connection_ids
	channels  map[string]map[string]bool
	channelMu sync.RWMutex

	handler ChatHandler

	// NotifyListener for dynamic LISTEN/UNLISTEN (set after construction)
	listener   *NotifyListener
	listenerMu sync.RWMutex

	// Write timeout for WebSocket sends
	writeTimeout time.Duration
}

// Connection represents a single WebSocket client.
//
// subscriptions is accessed WITHOUT a lock. This is safe because all reads and
// writes (subscribe, unsubscribe, unregisterConnection) happen on the single
// goroutine that owns this connection (HandleConnection's read loop and its
// deferred cleanup). If a Connection is ever mutated from a different goroutine
// (e.g. an admin "kick" feature), subscriptions must be protected by a mutex.
type Connection struct {
	ID            string
	UserID        string // authenticated caller, set by the HTTP upgrade handler
	UserEmail     string // set alongside UserID from the same bearer token
	Authenticated bool   // false for a connection that presented no/invalid token
	Conn          *websocket.Conn
	subscriptions map[string]bool // channels this connection is subscribed to
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewConnectionManager creates a new ConnectionManager.
func NewConnectionManager(handler ChatHandler, writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		connections:  make(map[string]*Connection),
		channels:     make(map[string]map[string]bool),
		handler:      handler,
		writeTimeout: writeTimeout,
	}
}

// SetListener sets the NotifyListener for dynamic LISTEN/UNLISTEN.
// Called once during startup after both ConnectionManager and NotifyListener are created.
func (m *ConnectionManager) SetListener(l *NotifyListener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listener = l
}

// HandleConnection manages the lifecycle of a single WebSocket connection.
// Called by the WebSocket HTTP handler after upgrade and authentication.
// userID empty means the caller presented no bearer token; the connection
// is accepted but HandleSendMessage implementations should reject
// send_message for it (§4.J: unauthenticated may connect but not send).
// Blocks until the connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn, userID, userEmail string) {
	connID := uuid.New().String()
	ctx, cancel := context.WithCancel(parentCtx)

	c := &Connection{
		ID:            connID,
		UserID:        userID,
		UserEmail:     userEmail,
		Authenticated: userID != "",
		Conn:          conn,
		subscriptions: make(map[string]bool),
		ctx:           ctx,
		cancel:        cancel,
	}

	m.registerConnection(c)
	defer m.unregisterConnection(c)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Invalid WebSocket message", "connection_id", connID, "error", err)
			m.SendJSON(connID, ErrorPayload{Type: TypeError, Code: "invalid_message", Message: "malformed JSON"})
			continue
		}

		m.dispatch(ctx, c, &msg)
	}
}

// dispatch routes a client frame to the ChatHandler and, for send_message
// and recover_message, ensures the connection is subscribed to the
// session's channel first so any cross-replica Broadcast reaches it.
func (m *ConnectionManager) dispatch(ctx context.Context, c *Connection, msg *ClientMessage) {
	switch msg.Action {
	case ActionSendMessage:
		if msg.SessionID != "" {
			if err := m.Subscribe(c.ID, SessionChannel(msg.SessionID)); err != nil {
				m.SendJSON(c.ID, ErrorPayload{Type: TypeError, Code: "subscribe_failed", Message: err.Error(), SessionID: msg.SessionID})
				return
			}
		}
		m.handler.HandleSendMessage(ctx, c.ID, *msg)
	case ActionRecoverMessage:
		if msg.SessionID != "" {
			if err := m.Subscribe(c.ID, SessionChannel(msg.SessionID)); err != nil {
				m.SendJSON(c.ID, ErrorPayload{Type: TypeError, Code: "subscribe_failed", Message: err.Error(), SessionID: msg.SessionID})
				return
			}
		}
		m.handler.HandleRecoverMessage(ctx, c.ID, *msg)
	case ActionUpdateSessionModel:
		m.handler.HandleUpdateSessionModel(ctx, c.ID, *msg)
	case ActionTypingStart:
		m.handler.HandleTypingStart(ctx, c.ID, *msg)
	case ActionTypingStop:
		m.handler.HandleTypingStop(ctx, c.ID, *msg)
	default:
		m.SendJSON(c.ID, ErrorPayload{Type: TypeError, Code: "unknown_action", Message: "unrecognized action: " + msg.Action})
	}
}

// Broadcast sends an event payload to all connections subscribed to the given channel.
func (m *ConnectionManager) Broadcast(channel string, event []byte) {
	m.channelMu.RLock()
	connIDs, exists := m.channels[channel]
	if !exists {
		m.channelMu.RUnlock()
		return
	}
	ids := make([]string, 0, len(connIDs))
	for id := range connIDs {
		ids = append(ids, id)
	}
	m.channelMu.RUnlock()

	// Snapshot connection pointers under the lock, then release before
	// sending. This avoids holding mu.RLock during potentially slow
	// writes (up to writeTimeout per connection), which would stall
	// connection register/unregister operations.
	m.mu.RLock()
	conns := make([]*Connection, 0, len(ids))
	for _, id := range ids {
		if conn, ok := m.connections[id]; ok {
			conns = append(conns, conn)
		}
	}
	m.mu.RUnlock()

	for _, conn := range conns {
		if err := m.sendRaw(conn, event); err != nil {
			slog.Warn("Failed to send to WebSocket client", "connection_id", conn.ID, "error", err)
		}
	}
}

// ConnectionIdentity returns the per-client state (§4.J) for connID: the
// authenticated user id/email and whether the connection presented a
// bearer token at all. ok is false if the connection is gone.
func (m *ConnectionManager) ConnectionIdentity(connID string) (userID, userEmail string, authenticated bool, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, exists := m.connections[connID]
	if !exists {
		return "", "", false, false
	}
	return c.UserID, c.UserEmail, c.Authenticated, true
}

// ActiveConnections returns the count of active WebSocket connections.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// subscriberCount returns the number of subscribers for a channel.
// Unexported — used by tests to poll instead of sleeping.
func (m *ConnectionManager) subscriberCount(channel string) int {
	m.channelMu.RLock()
	defer m.channelMu.RUnlock()
	return len(m.channels[channel])
}

// Subscribe registers a connection for a channel and starts LISTEN if
// first subscriber. LISTEN is synchronous so it completes before
// Subscribe returns, closing the window where a Broadcast published
// between subscription and LISTEN would be lost.
func (m *ConnectionManager) Subscribe(connID, channel string) error {
	m.channelMu.Lock()
	needsListen := false
	if _, exists := m.channels[channel]; !exists {
		m.channels[channel] = make(map[string]bool)
		needsListen = true
	}
	m.channels[channel][connID] = true
	m.channelMu.Unlock()

	if needsListen {
		m.listenerMu.RLock()
		l := m.listener
		m.listenerMu.RUnlock()
		if l != nil {
			listenCtx, listenCancel := context.WithTimeout(context.Background(), listenTimeout)
			defer listenCancel()
			if err := l.Subscribe(listenCtx, channel); err != nil {
				slog.Error("Failed to LISTEN on channel", "channel", channel, "error", err)
				m.cleanupFailedChannel(connID, channel)
				return err
			}
		}
	}

	m.mu.RLock()
	if c, ok := m.connections[connID]; ok {
		c.subscriptions[channel] = true
	}
	m.mu.RUnlock()
	return nil
}

// cleanupFailedChannel removes ALL subscribers from a channel after a LISTEN
// failure and notifies every affected connection (except the triggering one,
// which is notified by the caller via the returned error).
func (m *ConnectionManager) cleanupFailedChannel(triggeringConnID, channel string) {
	m.channelMu.Lock()
	affectedIDs := make([]string, 0, len(m.channels[channel]))
	for connID := range m.channels[channel] {
		if connID != triggeringConnID {
			affectedIDs = append(affectedIDs, connID)
		}
	}
	delete(m.channels, channel)
	m.channelMu.Unlock()

	for _, id := range affectedIDs {
		slog.Warn("Removing orphaned subscriber after LISTEN failure", "connection_id", id, "channel", channel)
		m.SendJSON(id, ErrorPayload{Type: TypeError, Code: "channel_listen_failed", Message: "subscription removed"})
	}
}

// Unsubscribe removes a connection from a channel and stops LISTEN if last subscriber.
func (m *ConnectionManager) Unsubscribe(connID, channel string) {
	m.channelMu.Lock()
	if subs, exists := m.channels[channel]; exists {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(m.channels, channel)
			// Last subscriber left — stop LISTEN. The goroutine re-checks
			// m.channels before issuing UNLISTEN to prevent a race where a
			// rapid unsubscribe/resubscribe cycle would drop the LISTEN.
			m.listenerMu.RLock()
			l := m.listener
			m.listenerMu.RUnlock()
			if l != nil {
				go func() {
					m.channelMu.RLock()
					_, resubscribed := m.channels[channel]
					m.channelMu.RUnlock()
					if resubscribed {
						return
					}
					if err := l.Unsubscribe(context.Background(), channel); err != nil {
						slog.Error("Failed to UNLISTEN channel", "channel", channel, "error", err)
					}
				}()
			}
		}
	}
	m.channelMu.Unlock()

	m.mu.RLock()
	if c, ok := m.connections[connID]; ok {
		delete(c.subscriptions, channel)
	}
	m.mu.RUnlock()
}

// registerConnection adds a connection to the tracking map.
func (m *ConnectionManager) registerConnection(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.ID] = c
}

// unregisterConnection removes a connection and all its subscriptions.
func (m *ConnectionManager) unregisterConnection(c *Connection) {
	for ch := range c.subscriptions {
		m.Unsubscribe(c.ID, ch)
	}

	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()

	c.cancel()
	_ = c.Conn.Close(websocket.StatusNormalClosure, "")
}

// SendJSON marshals and sends a JSON message to a single connection by ID.
// Used by ChatHandler implementations to reply to the request that
// triggered them, independent of channel subscriptions.
func (m *ConnectionManager) SendJSON(connID string, v any) {
	m.mu.RLock()
	c, ok := m.connections[connID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal WebSocket message", "connection_id", connID, "error", err)
		return
	}
	if err := m.sendRaw(c, data); err != nil {
		slog.Warn("Failed to send WebSocket message", "connection_id", connID, "error", err)
	}
}

// sendRaw sends raw bytes to a single connection with a write timeout.
func (m *ConnectionManager) sendRaw(c *Connection, data []byte) error {
	writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
	defer cancel()
	return c.Conn.Write(writeCtx, websocket.MessageText, data)
}

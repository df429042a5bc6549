// Package events provides real-time chat delivery over WebSocket, with
// PostgreSQL NOTIFY/LISTEN bridging a turn running on one replica to a
// client connection accepted by another.
//
// ════════════════════════════════════════════════════════════════
// Message lifecycle
// ════════════════════════════════════════════════════════════════
//
// A client opens one WebSocket connection and, once authenticated, sends
// send_message to start or continue a conversation. The server replies
// with exactly one of these sequences:
//
//	session_created   (only on the first message of a new session)
//	message_confirmed {message_id}
//	message_chunk     {delta}         (repeated, not persisted)
//	message_end       {message_id, full_text}
//
// message_chunk frames are transient: they are never written to the
// database and a reconnecting client cannot replay them. Recovery instead
// uses recover_message, which asks the Chat Orchestrator for whatever
// partial answer it still holds in memory for an in-flight turn:
//
//	recover_message {session_id, last_message_id} →
//	message_recovery {recovered_text, is_complete}
//
// update_session_model switches the model for subsequent turns on a
// session and is acknowledged with session_model_updated. typing_start
// and typing_stop carry no server reply; they exist purely so a future
// multi-user session view can show presence.
//
// Any rejected or malformed request gets a single error frame with a
// machine-readable code, never a connection close — the client decides
// whether the error is retryable.
// ════════════════════════════════════════════════════════════════
package events

// Client → server message actions.
const (
	ActionSendMessage       = "send_message"
	ActionRecoverMessage    = "recover_message"
	ActionUpdateSessionModel = "update_session_model"
	ActionTypingStart       = "typing_start"
	ActionTypingStop        = "typing_stop"
)

// Server → client message types.
const (
	TypeSessionCreated       = "session_created"
	TypeMessageConfirmed     = "message_confirmed"
	TypeMessageChunk         = "message_chunk"
	TypeMessageEnd           = "message_end"
	TypeMessageRecovery      = "message_recovery"
	TypeSessionModelUpdated  = "session_model_updated"
	TypeError                = "error"
)

// GlobalSessionsChannel carries session-list-level status events (used by
// a dashboard view listing a user's active sessions across replicas).
const GlobalSessionsChannel = "sessions"

// SessionChannel returns the NOTIFY channel name used to fan a session's
// turn out to whichever replica is holding the client's WebSocket
// connection. Format: "session:{session_id}"
func SessionChannel(sessionID string) string {
	return "session:" + sessionID
}

// ClientMessage is the JSON envelope for every client → server frame.
// Fields not relevant to Action are left zero.
type ClientMessage struct {
	Action         string `json:"action"`
	SessionID      string `json:"session_id,omitempty"`
	Text           string `json:"text,omitempty"`
	ModelID        string `json:"model_id,omitempty"`
	LastMessageID  string `json:"last_message_id,omitempty"`
}

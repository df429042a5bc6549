package events

// SessionCreatedPayload is sent once, the first time a send_message
// request establishes a new session.
type SessionCreatedPayload struct {
	Type      string `json:"type"` // always TypeSessionCreated
	SessionID string `json:"session_id"`
	ModelID   string `json:"model_id"`
	Timestamp string `json:"timestamp"` // RFC3339Nano
}

// MessageConfirmedPayload acknowledges receipt of a user message and
// gives the client the assistant message ID it should associate
// subsequent message_chunk/message_end frames with.
type MessageConfirmedPayload struct {
	Type      string `json:"type"` // always TypeMessageConfirmed
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Timestamp string `json:"timestamp"`
}

// MessageChunkPayload carries one incremental slice of assistant output.
// Never persisted — a disconnected client cannot replay these.
type MessageChunkPayload struct {
	Type      string `json:"type"` // always TypeMessageChunk
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Delta     string `json:"delta"`
	Sequence  int    `json:"sequence"`
	Timestamp string `json:"timestamp"`
}

// MessageEndPayload closes out a turn with the final assistant text.
type MessageEndPayload struct {
	Type      string `json:"type"` // always TypeMessageEnd
	MessageID string `json:"message_id"`
	FullText  string `json:"full_text"`
	Timestamp string `json:"timestamp"`
}

// MessageRecoveryPayload answers a recover_message request with whatever
// partial output the orchestrator still holds for an in-flight turn.
// IsComplete is true when the turn already finished and RecoveredText is
// the full answer rather than a partial buffer.
type MessageRecoveryPayload struct {
	Type          string `json:"type"` // always TypeMessageRecovery
	MessageID     string `json:"message_id"`
	RecoveredText string `json:"recovered_text"`
	IsComplete    bool   `json:"is_complete"`
	Timestamp     string `json:"timestamp"`
}

// SessionModelUpdatedPayload acknowledges update_session_model.
type SessionModelUpdatedPayload struct {
	Type      string `json:"type"` // always TypeSessionModelUpdated
	SessionID string `json:"session_id"`
	ModelID   string `json:"model_id"`
	Timestamp string `json:"timestamp"`
}

// ErrorPayload reports a rejected or failed request without closing the
// connection. Code is machine-readable (e.g. "guard_reject", "not_found",
// "rate_limited"); Message is for display.
type ErrorPayload struct {
	Type      string `json:"type"` // always TypeError
	Code      string `json:"code"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

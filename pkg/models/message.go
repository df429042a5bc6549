package models

import "github.com/njvoter/gateway/ent"

// CreateMessageRequest contains fields for appending a message to a
// session's transcript (§4.E). SequenceNumber is assigned by the Session
// Store, monotonic and dense per session.
type CreateMessageRequest struct {
	ID        string                   `json:"id"`
	SessionID string                   `json:"session_id"`
	Role      string                   `json:"role"` // "user" or "assistant"
	Text      string                   `json:"text"`
	ToolCalls []map[string]interface{} `json:"tool_calls,omitempty"`
}

// MessageResponse wraps a Message.
type MessageResponse struct {
	*ent.Message
}

// MessageListResponse contains a session's ordered transcript.
type MessageListResponse struct {
	Messages []*ent.Message `json:"messages"`
}

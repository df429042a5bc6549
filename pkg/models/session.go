package models

import (
	"time"

	"github.com/njvoter/gateway/ent"
)

// CreateSessionRequest contains fields for creating a new chat session.
// SessionID is caller-supplied (UUID) so the Chat Orchestrator can emit
// session_created before the row is durably committed.
type CreateSessionRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	ModelID   string `json:"model_id"`
}

// SessionFilters contains filtering options for listing sessions.
type SessionFilters struct {
	UserID         string `json:"user_id,omitempty"`
	Limit          int    `json:"limit,omitempty"`
	Offset         int    `json:"offset,omitempty"`
	IncludeDeleted bool   `json:"include_deleted,omitempty"`
}

// SessionResponse wraps a Session with optional loaded edges.
type SessionResponse struct {
	*ent.Session
}

// SessionListResponse contains a paginated session list.
type SessionListResponse struct {
	Sessions   []*ent.Session `json:"sessions"`
	TotalCount int            `json:"total_count"`
	Limit      int            `json:"limit"`
	Offset     int            `json:"offset"`
}

// UpdateSessionModelRequest changes the active LLM model for a session,
// driven by the update_session_model transport action (§4.J).
type UpdateSessionModelRequest struct {
	SessionID string `json:"session_id"`
	ModelID   string `json:"model_id"`
}

// truncatedSessionNameLen bounds the derived session name taken from the
// first user turn, matching the Chat Orchestrator's naming rule (§4.F step 1).
const truncatedSessionNameLen = 80

// DeriveSessionName truncates the first user message into a session name.
func DeriveSessionName(firstUserText string) string {
	text := firstUserText
	if len(text) <= truncatedSessionNameLen {
		return text
	}
	return text[:truncatedSessionNameLen] + "..."
}

// sessionTTL bounds how long a soft-deleted session is considered
// "deleted_at" eligible for hard purge by a retention job; never hard-deleted
// while referenced by messages, per §3.1.
const sessionRetentionWindow = 90 * 24 * time.Hour

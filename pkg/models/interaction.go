package models

// CreateLLMInteractionRequest contains fields for recording one model call
// made while handling a turn. Kept for observability/trace surfaces only —
// never read back into the live conversation, per the LLMInteraction
// schema's own comment; Message.ToolCalls carries what the orchestrator
// needs to rebuild context.
type CreateLLMInteractionRequest struct {
	SessionID       string         `json:"session_id"`
	ModelName       string         `json:"model_name"`
	LastMessageID   *string        `json:"last_message_id,omitempty"`
	LLMRequest      map[string]any `json:"llm_request"`
	LLMResponse     map[string]any `json:"llm_response"`
	ThinkingContent *string        `json:"thinking_content,omitempty"`
	InputTokens     *int           `json:"input_tokens,omitempty"`
	OutputTokens    *int           `json:"output_tokens,omitempty"`
	DurationMs      *int           `json:"duration_ms,omitempty"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
}

// CreateToolInteractionRequest contains fields for recording one MCP tool
// call made during a turn (warehouse_select, geocode, web_search,
// save_list, enrich_one, enrich_batch, doc_*).
type CreateToolInteractionRequest struct {
	SessionID       string         `json:"session_id"`
	InteractionType string         `json:"interaction_type"` // "tool_call" or "tool_list"
	ServerName      string         `json:"server_name"`
	ToolName        *string        `json:"tool_name,omitempty"`
	ToolArguments   map[string]any `json:"tool_arguments,omitempty"`
	ToolResult      map[string]any `json:"tool_result,omitempty"`
	AvailableTools  []any          `json:"available_tools,omitempty"`
	DurationMs      *int           `json:"duration_ms,omitempty"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
}

// TraceResponse is the observability surface for GET /sessions/:id/trace:
// the LLM and tool interactions recorded for a session, newest first.
type TraceResponse struct {
	LLMInteractions  []LLMInteractionListItem  `json:"llm_interactions"`
	ToolInteractions []ToolInteractionListItem `json:"tool_interactions"`
}

// LLMInteractionListItem contains metadata for the collapsed trace list view.
type LLMInteractionListItem struct {
	ID            string  `json:"id"`
	ModelName     string  `json:"model_name"`
	LastMessageID *string `json:"last_message_id,omitempty"`
	InputTokens   *int    `json:"input_tokens,omitempty"`
	OutputTokens  *int    `json:"output_tokens,omitempty"`
	DurationMs    *int    `json:"duration_ms,omitempty"`
	ErrorMessage  *string `json:"error_message,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// ToolInteractionListItem contains metadata for the collapsed trace list view.
type ToolInteractionListItem struct {
	ID              string  `json:"id"`
	InteractionType string  `json:"interaction_type"`
	ServerName      string  `json:"server_name"`
	ToolName        *string `json:"tool_name,omitempty"`
	DurationMs      *int    `json:"duration_ms,omitempty"`
	ErrorMessage    *string `json:"error_message,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

package chatengine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/njvoter/gateway/pkg/agent"
	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/mcp"
)

// errCorruptedHistory is returned by Adapter.Run when the LLM runtime
// reports a mixed content-type / malformed history error (§4.G step 7).
// The orchestrator reacts by evicting the cached agent instance and
// advising the user to start a new session.
var errCorruptedHistory = fmt.Errorf("conversation history is corrupted")

// emptyResponseSentinel is returned instead of a blank string when the
// runtime's final text is explicitly empty (§4.G step 6).
const emptyResponseSentinel = "I wasn't able to produce a response to that. Could you try rephrasing?"

const defaultMaxIterations = 8
const defaultMaxCachedSessions = 256

// sessionAgent is a cached, per-session instance: a live tool executor
// bound to this session's MCP selection, and the model_id it was built
// for. Evicted on model change, corrupted history, or LRU pressure
// (§4.G "Per-session instance cache").
type sessionAgent struct {
	sessionID    string
	modelID      string
	toolExecutor agent.ToolExecutor
	mcpClient    *mcp.Client
	lastUsed     time.Time
}

func (s *sessionAgent) close() {
	if s.toolExecutor != nil {
		_ = s.toolExecutor.Close()
	}
}

// Adapter wraps the tool-calling LLM runtime (§4.G Agent Adapter).
type Adapter struct {
	llmClient  agent.LLMClient
	mcpFactory *mcp.ClientFactory
	cfg        *config.Config

	mu       sync.Mutex
	sessions map[string]*sessionAgent
	maxCached int
}

// NewAdapter creates an Adapter. mcpFactory supplies the tool surface
// (warehouse_select, geocode, web_search, save_list, enrich_one,
// enrich_batch, doc_*) registered for the given server selection.
func NewAdapter(llmClient agent.LLMClient, mcpFactory *mcp.ClientFactory, cfg *config.Config) *Adapter {
	return &Adapter{
		llmClient:  llmClient,
		mcpFactory: mcpFactory,
		cfg:        cfg,
		sessions:   make(map[string]*sessionAgent),
		maxCached:  defaultMaxCachedSessions,
	}
}

// EvictSession drops the cached agent instance for sessionID, e.g. after
// update_session_model or a corrupted-history sentinel.
func (a *Adapter) EvictSession(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.sessions[sessionID]; ok {
		s.close()
		delete(a.sessions, sessionID)
	}
}

// acquire returns the cached sessionAgent for sessionID, creating one
// (and registering it against serverIDs/toolFilter) if absent or if
// modelID no longer matches (§4.F step 4).
func (a *Adapter) acquire(ctx context.Context, sessionID, modelID string, serverIDs []string, toolFilter map[string][]string) (*sessionAgent, error) {
	a.mu.Lock()
	if s, ok := a.sessions[sessionID]; ok {
		if s.modelID == modelID {
			s.lastUsed = time.Now()
			a.mu.Unlock()
			return s, nil
		}
		s.close()
		delete(a.sessions, sessionID)
	}
	a.mu.Unlock()

	executor, client, err := a.mcpFactory.CreateToolExecutor(ctx, serverIDs, toolFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool executor: %w", err)
	}

	s := &sessionAgent{
		sessionID:    sessionID,
		modelID:      modelID,
		toolExecutor: executor,
		mcpClient:    client,
		lastUsed:     time.Now(),
	}

	a.mu.Lock()
	a.evictLRULocked()
	a.sessions[sessionID] = s
	a.mu.Unlock()

	return s, nil
}

// evictLRULocked drops the least recently used cached session when the
// cache is at capacity. Caller holds a.mu.
func (a *Adapter) evictLRULocked() {
	if len(a.sessions) < a.maxCached {
		return
	}
	var oldestID string
	var oldest time.Time
	for id, s := range a.sessions {
		if oldestID == "" || s.lastUsed.Before(oldest) {
			oldestID, oldest = id, s.lastUsed
		}
	}
	if oldestID != "" {
		a.sessions[oldestID].close()
		delete(a.sessions, oldestID)
	}
}

// RunResult is the outcome of a turn, after stream normalization.
type RunResult struct {
	Text             string
	CorruptedHistory bool
}

// Run drives the tool-calling loop for one turn, emitting text deltas via
// onDelta as they're produced, and returns the final normalized assistant
// text (§4.G steps 1-6). It never invents text: an error from the
// runtime is surfaced to the caller rather than papered over with a
// placeholder, except for the one sentinel the spec requires (an
// explicitly empty final text).
func (a *Adapter) Run(
	ctx context.Context,
	sessionID, modelID, userID string,
	providerConfig *config.LLMProviderConfig,
	backend config.LLMBackend,
	serverIDs []string,
	toolFilter map[string][]string,
	history []agent.ConversationMessage,
	onDelta func(delta string),
) (RunResult, error) {
	sess, err := a.acquire(ctx, sessionID, modelID, serverIDs, toolFilter)
	if err != nil {
		return RunResult{}, err
	}

	tools, err := sess.toolExecutor.ListTools(ctx)
	if err != nil {
		slog.Warn("failed to list tools, continuing without tools", "session_id", sessionID, "error", err)
	}

	maxIterations := defaultMaxIterations
	if a.cfg != nil && a.cfg.Defaults != nil && a.cfg.Defaults.MaxIterations != nil {
		maxIterations = *a.cfg.Defaults.MaxIterations
	}

	messages := append([]agent.ConversationMessage(nil), history...)

	var finalSegments []string

	for iteration := 0; iteration < maxIterations; iteration++ {
		stream, err := a.llmClient.Generate(ctx, &agent.GenerateInput{
			SessionID: sessionID,
			Messages:  messages,
			Config:    providerConfig,
			Tools:     tools,
			Backend:   backend,
		})
		if err != nil {
			return RunResult{}, fmt.Errorf("llm generate failed: %w", err)
		}

		collected, toolCalls, err := collectAndNormalize(stream, onDelta)
		if err != nil {
			if err == errCorruptedHistory {
				a.EvictSession(sessionID)
				return RunResult{CorruptedHistory: true}, nil
			}
			return RunResult{}, err
		}

		if collected != "" {
			finalSegments = append(finalSegments, collected)
		}

		if len(toolCalls) == 0 {
			break
		}

		messages = append(messages, agent.ConversationMessage{
			Role:      agent.RoleAssistant,
			Content:   collected,
			ToolCalls: toolCalls,
		})

		for _, call := range toolCalls {
			call.Arguments = withCallerUserID(call.Arguments, userID)
			result, err := sess.toolExecutor.Execute(ctx, call)
			var content string
			if err != nil {
				content = fmt.Sprintf("tool execution failed: %s", err)
			} else {
				content = result.Content
			}
			messages = append(messages, agent.ConversationMessage{
				Role:       agent.RoleTool,
				Content:    content,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	text := mergeSegments(finalSegments)
	if text == "" {
		text = emptyResponseSentinel
	}
	return RunResult{Text: text}, nil
}

// collectAndNormalize drains a chunk stream, applying the partial-buffer /
// completed-segment algorithm (§4.G steps 1-4) and forwarding text deltas
// to onDelta as they arrive. Returns the turn's assistant text (already
// merged for replacement-vs-delta per mergeSegments) and any tool calls
// the model requested.
func collectAndNormalize(stream <-chan agent.Chunk, onDelta func(delta string)) (string, []agent.ToolCall, error) {
	var partial strings.Builder
	var segments []string
	var toolCalls []agent.ToolCall

	flush := func() {
		if partial.Len() == 0 {
			return
		}
		segments = append(segments, partial.String())
		partial.Reset()
	}

	for chunk := range stream {
		switch c := chunk.(type) {
		case *agent.TextChunk:
			if c.Content == "" {
				continue
			}
			partial.WriteString(c.Content)
			if onDelta != nil {
				onDelta(c.Content)
			}
		case *agent.ToolCallChunk:
			flush()
			toolCalls = append(toolCalls, agent.ToolCall{
				ID:        c.CallID,
				Name:      c.Name,
				Arguments: c.Arguments,
			})
		case *agent.ErrorChunk:
			if isCorruptedHistoryError(c) {
				return "", nil, errCorruptedHistory
			}
			return "", nil, fmt.Errorf("llm error: %s", c.Message)
		case *agent.ThinkingChunk, *agent.CodeExecutionChunk, *agent.GroundingChunk, *agent.UsageChunk:
			// Ambient robustness carried from the teacher's streaming
			// loop; not part of the assistant text.
		}
	}
	flush()

	return mergeSegments(segments), toolCalls, nil
}

// withCallerUserID stamps the turn's authenticated user id into a tool
// call's argument object as _caller_user_id, so an in-process MCP handler
// that needs to act under the caller's identity (doc_create/doc_list's
// user-delegated document store access, §6) doesn't need it threaded
// through the MCP transport's own context, whose propagation across the
// SDK's session boundary this adapter doesn't assume. Malformed arguments
// are left untouched; the tool call fails downstream on its own terms.
func withCallerUserID(argumentsJSON, userID string) string {
	var args map[string]any
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return argumentsJSON
		}
	}
	if args == nil {
		args = make(map[string]any)
	}
	args["_caller_user_id"] = userID
	out, err := json.Marshal(args)
	if err != nil {
		return argumentsJSON
	}
	return string(out)
}

// isCorruptedHistoryError recognizes the runtime's mixed content-type /
// malformed history failure mode (§4.G step 7).
func isCorruptedHistoryError(c *agent.ErrorChunk) bool {
	if c.Code == "invalid_argument" || c.Code == "corrupted_history" {
		return true
	}
	msg := strings.ToLower(c.Message)
	return strings.Contains(msg, "content") && (strings.Contains(msg, "mismatch") || strings.Contains(msg, "mixed") || strings.Contains(msg, "invalid"))
}

// mergeSegments implements §4.G step 5: if every successive segment
// contains its predecessor as a prefix/substring, the runtime is
// redelivering replacements of the same logical text rather than
// incremental deltas — keep only the longest. Otherwise concatenate
// unique segments in order.
func mergeSegments(segments []string) string {
	if len(segments) == 0 {
		return ""
	}
	isReplacement := true
	for i := 1; i < len(segments); i++ {
		if !strings.Contains(segments[i], segments[i-1]) {
			isReplacement = false
			break
		}
	}
	if isReplacement {
		return segments[len(segments)-1]
	}

	seen := make(map[string]struct{}, len(segments))
	var b strings.Builder
	for _, s := range segments {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		b.WriteString(s)
	}
	return b.String()
}

package chatengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/njvoter/gateway/pkg/agent"
	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/events"
	"github.com/njvoter/gateway/pkg/models"
	"github.com/njvoter/gateway/pkg/services"
)

// corruptedHistoryNotice is the assistant-facing message persisted and
// shown to the user when the runtime's history is unrecoverable
// (§4.G step 7 / §4.F error propagation).
const corruptedHistoryNotice = "Something went wrong reading this conversation's history. Please start a new session."

// Orchestrator is the Chat Orchestrator (§4.F): it implements
// events.ChatHandler and owns the per-turn goroutine, the InFlightTurn
// registry, and the Agent Adapter.
//
// Grounded on pkg/queue/chat_executor.go's ChatMessageExecutor: a
// per-session goroutine model with a registry for cancellation/lookup and
// a background sweep for orphaned state, replacing its queue-claim
// worker-pool shape (wrong model per the per-turn concurrency requirement)
// with a dedicated task launched directly from the transport handler.
type Orchestrator struct {
	cfg *config.Config

	sessionService     *services.SessionService
	messageService     *services.MessageService
	interactionService *services.InteractionService
	publisher          *events.EventPublisher
	adapter            *Adapter

	connManager *events.ConnectionManager

	turns  *turnRegistry
	stopCh chan struct{}
}

var _ events.ChatHandler = (*Orchestrator)(nil)

// NewOrchestrator creates an Orchestrator. Call SetConnectionManager once
// the ConnectionManager (constructed with this Orchestrator as its
// ChatHandler) exists, to break the construction cycle.
func NewOrchestrator(
	cfg *config.Config,
	sessionService *services.SessionService,
	messageService *services.MessageService,
	interactionService *services.InteractionService,
	publisher *events.EventPublisher,
	adapter *Adapter,
) *Orchestrator {
	o := &Orchestrator{
		cfg:                cfg,
		sessionService:     sessionService,
		messageService:     messageService,
		interactionService: interactionService,
		publisher:          publisher,
		adapter:            adapter,
		turns:              newTurnRegistry(cfg.Queue.InFlightTurnTTL, cfg.Queue.GCInterval),
		stopCh:             make(chan struct{}),
	}
	go o.turns.runGC(o.stopCh)
	return o
}

// SetConnectionManager wires the ConnectionManager this Orchestrator
// serves, used to read per-client state (§4.J) and reply directly to the
// connection that sent a request.
func (o *Orchestrator) SetConnectionManager(m *events.ConnectionManager) {
	o.connManager = m
}

// Stop halts the InFlightTurn GC sweep, called during graceful shutdown.
func (o *Orchestrator) Stop() {
	close(o.stopCh)
}

func (o *Orchestrator) sendError(sessionID, connID, code, message string) {
	o.connManager.SendJSON(connID, events.ErrorPayload{
		Type:      events.TypeError,
		Code:      code,
		Message:   message,
		SessionID: sessionID,
		Timestamp: nowRFC3339(),
	})
}

func nowRFC3339() string {
	return time.Now().Format(time.RFC3339Nano)
}

// HandleSendMessage implements handle_turn (§4.F). It runs the turn on a
// dedicated goroutine detached from the WebSocket read loop's context, so
// a client disconnect never cancels an in-progress generation (§5
// cancellation policy).
func (o *Orchestrator) HandleSendMessage(ctx context.Context, connID string, msg events.ClientMessage) {
	userID, _, authenticated, ok := o.connManager.ConnectionIdentity(connID)
	if !ok {
		return
	}
	if !authenticated {
		o.sendError(msg.SessionID, connID, "unauthenticated", "send_message requires authentication")
		return
	}
	if msg.Text == "" {
		o.sendError(msg.SessionID, connID, "invalid_request", "text is required")
		return
	}

	go o.runTurn(connID, userID, msg)
}

func (o *Orchestrator) runTurn(connID, userID string, msg events.ClientMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Queue.ChatTimeout)
	defer cancel()

	logger := slog.With("connection_id", connID, "user_id", userID)

	sessionID := msg.SessionID
	modelID := msg.ModelID
	isNewSession := sessionID == ""

	if isNewSession {
		sessionID = uuid.New().String()
		if modelID == "" {
			modelID = o.cfg.Defaults.ModelID
		}
		sess, err := o.sessionService.CreateSession(ctx, models.CreateSessionRequest{
			SessionID: sessionID,
			UserID:    userID,
			Name:      models.DeriveSessionName(msg.Text),
			ModelID:   modelID,
		})
		if err != nil {
			logger.Error("failed to create session", "error", err)
			o.sendError(sessionID, connID, "internal_error", "failed to create session")
			return
		}
		_ = o.publisher.PublishSessionCreated(ctx, sessionID, events.SessionCreatedPayload{
			Type:      events.TypeSessionCreated,
			SessionID: sess.ID,
			ModelID:   sess.ModelID,
			Timestamp: nowRFC3339(),
		})
	} else {
		sess, err := o.sessionService.GetSession(ctx, sessionID, false)
		if err != nil {
			logger.Error("failed to load session", "error", err)
			o.sendError(sessionID, connID, "not_found", "session not found")
			return
		}
		if modelID == "" {
			modelID = sess.ModelID
		}
	}

	// Step 2: append user message, emit message_confirmed.
	userMsg, err := o.messageService.AppendMessage(ctx, models.CreateMessageRequest{
		SessionID: sessionID,
		Role:      "user",
		Text:      msg.Text,
	})
	if err != nil {
		logger.Error("failed to append user message", "error", err)
		o.sendError(sessionID, connID, "internal_error", "failed to record message")
		return
	}
	_ = o.publisher.PublishMessageConfirmed(ctx, sessionID, events.MessageConfirmedPayload{
		Type:      events.TypeMessageConfirmed,
		SessionID: sessionID,
		MessageID: userMsg.ID,
		Timestamp: nowRFC3339(),
	})

	// Step 3: register InFlightTurn.
	turn := newInFlightTurn(sessionID, userMsg.ID, connID)
	o.turns.register(turn)
	defer o.turns.remove(sessionID, userMsg.ID)

	assistantMessageID := uuid.New().String()

	// Step 4-5: load history, resolve provider, invoke the agent.
	history, err := o.loadHistory(ctx, sessionID)
	if err != nil {
		logger.Error("failed to load history", "error", err)
		o.finishWithError(ctx, sessionID, assistantMessageID, connID, "internal_error", "failed to load conversation history")
		return
	}

	providerConfig, backend, err := o.resolveProvider(modelID)
	if err != nil {
		logger.Error("failed to resolve provider", "error", err)
		o.finishWithError(ctx, sessionID, assistantMessageID, connID, "invalid_model", err.Error())
		return
	}

	serverIDs, toolFilter := o.defaultToolSelection()

	onDelta := func(delta string) {
		seq := turn.appendDelta(delta)
		_ = o.publisher.PublishMessageChunk(ctx, sessionID, events.MessageChunkPayload{
			Type:      events.TypeMessageChunk,
			SessionID: sessionID,
			MessageID: assistantMessageID,
			Delta:     delta,
			Sequence:  seq,
			Timestamp: nowRFC3339(),
		})
	}

	result, err := o.adapter.Run(ctx, sessionID, modelID, userID, providerConfig, backend, serverIDs, toolFilter, history, onDelta)
	turn.markDone()
	if err != nil {
		logger.Error("agent turn failed", "error", err)
		o.finishWithError(ctx, sessionID, assistantMessageID, connID, "agent_error", "the assistant hit an unexpected error processing that request")
		return
	}

	finalText := result.Text
	if result.CorruptedHistory {
		finalText = corruptedHistoryNotice
	}

	// Step 7: persist assistant message, emit message_end.
	if _, err := o.messageService.AppendMessage(ctx, models.CreateMessageRequest{
		ID:        assistantMessageID,
		SessionID: sessionID,
		Role:      "assistant",
		Text:      finalText,
	}); err != nil {
		logger.Error("failed to append assistant message", "error", err)
	}
	if err := o.sessionService.TouchSession(ctx, sessionID); err != nil {
		logger.Warn("failed to touch session", "error", err)
	}
	_ = o.publisher.PublishMessageEnd(ctx, sessionID, events.MessageEndPayload{
		Type:      events.TypeMessageEnd,
		MessageID: assistantMessageID,
		FullText:  finalText,
		Timestamp: nowRFC3339(),
	})
}

// finishWithError appends a user-facing assistant message summarizing the
// failure and emits message_end, so an agent error never just hangs the
// client or tears down the transport connection (§4.F error propagation).
func (o *Orchestrator) finishWithError(ctx context.Context, sessionID, assistantMessageID, connID, code, message string) {
	if _, err := o.messageService.AppendMessage(ctx, models.CreateMessageRequest{
		ID:        assistantMessageID,
		SessionID: sessionID,
		Role:      "assistant",
		Text:      message,
	}); err != nil {
		slog.Warn("failed to append error assistant message", "error", err)
	}
	o.sendError(sessionID, connID, code, message)
	_ = o.publisher.PublishMessageEnd(ctx, sessionID, events.MessageEndPayload{
		Type:      events.TypeMessageEnd,
		MessageID: assistantMessageID,
		FullText:  message,
		Timestamp: nowRFC3339(),
	})
}

func (o *Orchestrator) loadHistory(ctx context.Context, sessionID string) ([]agent.ConversationMessage, error) {
	msgs, err := o.messageService.GetSessionMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history := make([]agent.ConversationMessage, 0, len(msgs))
	for _, m := range msgs {
		role := agent.RoleUser
		if string(m.Role) == "assistant" {
			role = agent.RoleAssistant
		}
		history = append(history, agent.ConversationMessage{Role: role, Content: m.Text})
	}
	return history, nil
}

// resolveProvider looks up modelID as an entry in the LLM provider
// registry. A deployment's registry keys are the values presented to
// clients as model_id.
func (o *Orchestrator) resolveProvider(modelID string) (*config.LLMProviderConfig, config.LLMBackend, error) {
	providerConfig, err := o.cfg.GetLLMProvider(modelID)
	if err != nil {
		return nil, "", fmt.Errorf("unknown model_id %q: %w", modelID, err)
	}
	backend := config.LLMBackendLangChain
	if providerConfig.Type == config.LLMProviderTypeGoogle || providerConfig.Type == config.LLMProviderTypeVertexAI {
		backend = config.LLMBackendNativeGemini
	}
	return providerConfig, backend, nil
}

// defaultToolSelection grants every configured MCP server with no filter.
// A future per-session override (stored on Session) would narrow this.
func (o *Orchestrator) defaultToolSelection() ([]string, map[string][]string) {
	all := o.cfg.MCPServerRegistry.GetAll()
	serverIDs := make([]string, 0, len(all))
	for id := range all {
		serverIDs = append(serverIDs, id)
	}
	return serverIDs, nil
}

// HandleRecoverMessage implements §4.F step 8.
func (o *Orchestrator) HandleRecoverMessage(ctx context.Context, connID string, msg events.ClientMessage) {
	turn := o.turns.forSession(msg.SessionID)
	if turn == nil {
		o.connManager.SendJSON(connID, events.MessageRecoveryPayload{
			Type:          events.TypeMessageRecovery,
			MessageID:     msg.LastMessageID,
			RecoveredText: "",
			IsComplete:    true,
			Timestamp:     nowRFC3339(),
		})
		return
	}
	text, done := turn.snapshot()
	o.connManager.SendJSON(connID, events.MessageRecoveryPayload{
		Type:          events.TypeMessageRecovery,
		MessageID:     msg.LastMessageID,
		RecoveredText: text,
		IsComplete:    done,
		Timestamp:     nowRFC3339(),
	})
}

// HandleUpdateSessionModel switches the model for subsequent turns and
// evicts the cached agent instance so the next turn picks up the change
// (§4.F step 4 / §4.G cache eviction rules).
func (o *Orchestrator) HandleUpdateSessionModel(ctx context.Context, connID string, msg events.ClientMessage) {
	if msg.SessionID == "" || msg.ModelID == "" {
		o.sendError(msg.SessionID, connID, "invalid_request", "session_id and model_id are required")
		return
	}
	if _, err := o.sessionService.UpdateSessionModel(ctx, msg.SessionID, msg.ModelID); err != nil {
		o.sendError(msg.SessionID, connID, "internal_error", "failed to update model")
		return
	}
	o.adapter.EvictSession(msg.SessionID)
	_ = o.publisher.PublishSessionModelUpdated(ctx, msg.SessionID, events.SessionModelUpdatedPayload{
		Type:      events.TypeSessionModelUpdated,
		SessionID: msg.SessionID,
		ModelID:   msg.ModelID,
		Timestamp: nowRFC3339(),
	})
}

// HandleTypingStart and HandleTypingStop carry no server reply (§4.J);
// they exist for presence UI, which this gateway does not yet render.
func (o *Orchestrator) HandleTypingStart(ctx context.Context, connID string, msg events.ClientMessage) {}
func (o *Orchestrator) HandleTypingStop(ctx context.Context, connID string, msg events.ClientMessage)  {}

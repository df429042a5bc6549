package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/njvoter/gateway/ent"
	"github.com/njvoter/gateway/ent/llminteraction"
	"github.com/njvoter/gateway/ent/toolinteraction"
	"github.com/njvoter/gateway/pkg/models"
)

// InteractionService records LLM and tool interactions for the trace/debug
// surface. Neither type is read back into a live turn — Message.ToolCalls
// carries what the orchestrator needs to rebuild context.
type InteractionService struct {
	client *ent.Client
}

// NewInteractionService creates a new InteractionService.
func NewInteractionService(client *ent.Client) *InteractionService {
	return &InteractionService{client: client}
}

// CreateLLMInteraction records one model call made while handling a turn.
func (s *InteractionService) CreateLLMInteraction(ctx context.Context, req models.CreateLLMInteractionRequest) (*ent.LLMInteraction, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	builder := s.client.LLMInteraction.Create().
		SetID(uuid.New().String()).
		SetSessionID(req.SessionID).
		SetModelName(req.ModelName).
		SetLlmRequest(req.LLMRequest).
		SetLlmResponse(req.LLMResponse)

	if req.LastMessageID != nil {
		builder = builder.SetLastMessageID(*req.LastMessageID)
	}
	if req.ThinkingContent != nil {
		builder = builder.SetThinkingContent(*req.ThinkingContent)
	}
	if req.InputTokens != nil {
		builder = builder.SetInputTokens(*req.InputTokens)
	}
	if req.OutputTokens != nil {
		builder = builder.SetOutputTokens(*req.OutputTokens)
	}
	if req.DurationMs != nil {
		builder = builder.SetDurationMs(*req.DurationMs)
	}
	if req.ErrorMessage != nil {
		builder = builder.SetErrorMessage(*req.ErrorMessage)
	}

	interaction, err := builder.Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM interaction: %w", err)
	}

	return interaction, nil
}

// CreateToolInteraction records one MCP tool call made during a turn.
func (s *InteractionService) CreateToolInteraction(ctx context.Context, req models.CreateToolInteractionRequest) (*ent.ToolInteraction, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	builder := s.client.ToolInteraction.Create().
		SetID(uuid.New().String()).
		SetSessionID(req.SessionID).
		SetInteractionType(toolinteraction.InteractionType(req.InteractionType)).
		SetServerName(req.ServerName)

	if req.ToolName != nil {
		builder = builder.SetToolName(*req.ToolName)
	}
	if req.ToolArguments != nil {
		builder = builder.SetToolArguments(req.ToolArguments)
	}
	if req.ToolResult != nil {
		builder = builder.SetToolResult(req.ToolResult)
	}
	if req.AvailableTools != nil {
		builder = builder.SetAvailableTools(req.AvailableTools)
	}
	if req.DurationMs != nil {
		builder = builder.SetDurationMs(*req.DurationMs)
	}
	if req.ErrorMessage != nil {
		builder = builder.SetErrorMessage(*req.ErrorMessage)
	}

	interaction, err := builder.Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool interaction: %w", err)
	}

	return interaction, nil
}

// GetLLMInteractions retrieves a session's LLM interactions, newest first,
// for the trace list view.
func (s *InteractionService) GetLLMInteractions(ctx context.Context, sessionID string) ([]*ent.LLMInteraction, error) {
	interactions, err := s.client.LLMInteraction.Query().
		Where(llminteraction.SessionIDEQ(sessionID)).
		Order(ent.Desc(llminteraction.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get LLM interactions: %w", err)
	}

	return interactions, nil
}

// GetToolInteractions retrieves a session's tool interactions, newest first.
func (s *InteractionService) GetToolInteractions(ctx context.Context, sessionID string) ([]*ent.ToolInteraction, error) {
	interactions, err := s.client.ToolInteraction.Query().
		Where(toolinteraction.SessionIDEQ(sessionID)).
		Order(ent.Desc(toolinteraction.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool interactions: %w", err)
	}

	return interactions, nil
}

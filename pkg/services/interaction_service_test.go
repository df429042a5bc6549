package services_test

import (
	"context"
	"testing"

	"github.com/njvoter/gateway/pkg/models"
	"github.com/njvoter/gateway/pkg/services"
	testdb "github.com/njvoter/gateway/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInteractionService_CreateLLMInteraction(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	sessionSvc := services.NewSessionService(dbClient.Client)
	interactionSvc := services.NewInteractionService(dbClient.Client)
	ctx := context.Background()

	sessionID := newTestSession(t, sessionSvc)

	inputTokens := 512
	outputTokens := 128
	duration := 840

	interaction, err := interactionSvc.CreateLLMInteraction(ctx, models.CreateLLMInteractionRequest{
		SessionID:    sessionID,
		ModelName:    "gpt-5",
		LLMRequest:   map[string]any{"prompt": "how many voters in Bergen county?"},
		LLMResponse:  map[string]any{"text": "Bergen county has roughly 620,000 registered voters."},
		InputTokens:  &inputTokens,
		OutputTokens: &outputTokens,
		DurationMs:   &duration,
	})
	require.NoError(t, err)
	assert.Equal(t, sessionID, interaction.SessionID)
	assert.Equal(t, "gpt-5", interaction.ModelName)
	assert.Equal(t, inputTokens, *interaction.InputTokens)
}

func TestInteractionService_CreateToolInteraction(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	sessionSvc := services.NewSessionService(dbClient.Client)
	interactionSvc := services.NewInteractionService(dbClient.Client)
	ctx := context.Background()

	sessionID := newTestSession(t, sessionSvc)

	toolName := "warehouse_select"
	interaction, err := interactionSvc.CreateToolInteraction(ctx, models.CreateToolInteractionRequest{
		SessionID:       sessionID,
		InteractionType: "tool_call",
		ServerName:      "warehouse",
		ToolName:        &toolName,
		ToolArguments:   map[string]any{"county": "Bergen"},
		ToolResult:      map[string]any{"row_count": 620000},
	})
	require.NoError(t, err)
	assert.Equal(t, "warehouse", interaction.ServerName)
	assert.Equal(t, toolName, *interaction.ToolName)
}

func TestInteractionService_GetLLMInteractions_NewestFirst(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	sessionSvc := services.NewSessionService(dbClient.Client)
	interactionSvc := services.NewInteractionService(dbClient.Client)
	ctx := context.Background()

	sessionID := newTestSession(t, sessionSvc)

	for i := 0; i < 3; i++ {
		_, err := interactionSvc.CreateLLMInteraction(ctx, models.CreateLLMInteractionRequest{
			SessionID:   sessionID,
			ModelName:   "gpt-5",
			LLMRequest:  map[string]any{"turn": i},
			LLMResponse: map[string]any{"turn": i},
		})
		require.NoError(t, err)
	}

	interactions, err := interactionSvc.GetLLMInteractions(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, interactions, 3)
	for i := 0; i < len(interactions)-1; i++ {
		assert.False(t, interactions[i].CreatedAt.Before(interactions[i+1].CreatedAt))
	}
}

func TestInteractionService_GetToolInteractions_EmptyForNewSession(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	sessionSvc := services.NewSessionService(dbClient.Client)
	interactionSvc := services.NewInteractionService(dbClient.Client)
	ctx := context.Background()

	sessionID := newTestSession(t, sessionSvc)

	interactions, err := interactionSvc.GetToolInteractions(ctx, sessionID)
	require.NoError(t, err)
	assert.Empty(t, interactions)
}

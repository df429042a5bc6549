package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/njvoter/gateway/pkg/models"
	"github.com/njvoter/gateway/pkg/services"
	testdb "github.com/njvoter/gateway/test/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, sessionSvc *services.SessionService) string {
	t.Helper()
	id := uuid.New().String()
	_, err := sessionSvc.CreateSession(context.Background(), models.CreateSessionRequest{
		SessionID: id,
		UserID:    "user-1",
		ModelID:   "gpt-5",
	})
	require.NoError(t, err)
	return id
}

func TestMessageService_AppendMessage_AssignsDenseSequence(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	sessionSvc := services.NewSessionService(dbClient.Client)
	msgSvc := services.NewMessageService(dbClient.Client)
	ctx := context.Background()

	sessionID := newTestSession(t, sessionSvc)

	first, err := msgSvc.AppendMessage(ctx, models.CreateMessageRequest{
		SessionID: sessionID,
		Role:      "user",
		Text:      "how many registered voters are in Camden county?",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.SequenceNumber)

	second, err := msgSvc.AppendMessage(ctx, models.CreateMessageRequest{
		SessionID: sessionID,
		Role:      "assistant",
		Text:      "Camden county has roughly 310,000 active registered voters.",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.SequenceNumber)
}

func TestMessageService_AppendMessage_RejectsInvalidRole(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	sessionSvc := services.NewSessionService(dbClient.Client)
	msgSvc := services.NewMessageService(dbClient.Client)
	ctx := context.Background()

	sessionID := newTestSession(t, sessionSvc)

	_, err := msgSvc.AppendMessage(ctx, models.CreateMessageRequest{
		SessionID: sessionID,
		Role:      "system",
		Text:      "not a valid role",
	})
	assert.Error(t, err)
}

func TestMessageService_AppendMessage_RejectsMissingSessionID(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	msgSvc := services.NewMessageService(dbClient.Client)

	_, err := msgSvc.AppendMessage(context.Background(), models.CreateMessageRequest{
		Role: "user",
		Text: "hello",
	})
	assert.Error(t, err)
}

func TestMessageService_GetSessionMessages_OrdersBySequence(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	sessionSvc := services.NewSessionService(dbClient.Client)
	msgSvc := services.NewMessageService(dbClient.Client)
	ctx := context.Background()

	sessionID := newTestSession(t, sessionSvc)

	texts := []string{"first", "second", "third"}
	for i, text := range texts {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		_, err := msgSvc.AppendMessage(ctx, models.CreateMessageRequest{SessionID: sessionID, Role: role, Text: text})
		require.NoError(t, err)
	}

	messages, err := msgSvc.GetSessionMessages(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for i, msg := range messages {
		assert.Equal(t, texts[i], msg.Text)
		assert.Equal(t, i+1, msg.SequenceNumber)
	}
}

func TestMessageService_GetLatestMessage(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	sessionSvc := services.NewSessionService(dbClient.Client)
	msgSvc := services.NewMessageService(dbClient.Client)
	ctx := context.Background()

	sessionID := newTestSession(t, sessionSvc)

	_, err := msgSvc.GetLatestMessage(ctx, sessionID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = msgSvc.AppendMessage(ctx, models.CreateMessageRequest{SessionID: sessionID, Role: "user", Text: "first"})
	require.NoError(t, err)
	_, err = msgSvc.AppendMessage(ctx, models.CreateMessageRequest{SessionID: sessionID, Role: "assistant", Text: "second"})
	require.NoError(t, err)

	latest, err := msgSvc.GetLatestMessage(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Text)
	assert.Equal(t, 2, latest.SequenceNumber)
}

package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	testdb "github.com/njvoter/gateway/test/database"
	"github.com/njvoter/gateway/pkg/models"
	"github.com/njvoter/gateway/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_CreateSession(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	svc := services.NewSessionService(dbClient.Client)
	ctx := context.Background()

	t.Run("creates a session with the supplied ID", func(t *testing.T) {
		id := uuid.New().String()
		sess, err := svc.CreateSession(ctx, models.CreateSessionRequest{
			SessionID: id,
			UserID:    "user-1",
			Name:      "how many registered voters in Essex county?",
			ModelID:   "gpt-5",
		})
		require.NoError(t, err)
		assert.Equal(t, id, sess.ID)
		assert.True(t, sess.IsActive)
	})

	t.Run("rejects missing session_id", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, models.CreateSessionRequest{UserID: "user-1", ModelID: "gpt-5"})
		assert.Error(t, err)
	})

	t.Run("rejects duplicate session_id", func(t *testing.T) {
		id := uuid.New().String()
		req := models.CreateSessionRequest{SessionID: id, UserID: "user-1", ModelID: "gpt-5"}
		_, err := svc.CreateSession(ctx, req)
		require.NoError(t, err)

		_, err = svc.CreateSession(ctx, req)
		assert.ErrorIs(t, err, services.ErrAlreadyExists)
	})
}

func TestSessionService_GetSession(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	svc := services.NewSessionService(dbClient.Client)
	ctx := context.Background()

	id := uuid.New().String()
	_, err := svc.CreateSession(ctx, models.CreateSessionRequest{SessionID: id, UserID: "user-1", ModelID: "gpt-5"})
	require.NoError(t, err)

	sess, err := svc.GetSession(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)

	_, err = svc.GetSession(ctx, uuid.New().String(), false)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestSessionService_ListSessions_FiltersByUser(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	svc := services.NewSessionService(dbClient.Client)
	ctx := context.Background()

	userA := "user-a-" + uuid.New().String()
	userB := "user-b-" + uuid.New().String()

	for i := 0; i < 3; i++ {
		_, err := svc.CreateSession(ctx, models.CreateSessionRequest{SessionID: uuid.New().String(), UserID: userA, ModelID: "gpt-5"})
		require.NoError(t, err)
	}
	_, err := svc.CreateSession(ctx, models.CreateSessionRequest{SessionID: uuid.New().String(), UserID: userB, ModelID: "gpt-5"})
	require.NoError(t, err)

	resp, err := svc.ListSessions(ctx, models.SessionFilters{UserID: userA})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalCount)
	assert.Len(t, resp.Sessions, 3)
}

func TestSessionService_UpdateSessionModel(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	svc := services.NewSessionService(dbClient.Client)
	ctx := context.Background()

	id := uuid.New().String()
	_, err := svc.CreateSession(ctx, models.CreateSessionRequest{SessionID: id, UserID: "user-1", ModelID: "gpt-5"})
	require.NoError(t, err)

	updated, err := svc.UpdateSessionModel(ctx, id, "claude-opus")
	require.NoError(t, err)
	assert.Equal(t, "claude-opus", updated.ModelID)
}

func TestSessionService_SoftDeleteSession(t *testing.T) {
	dbClient := testdb.NewTestClient(t)
	svc := services.NewSessionService(dbClient.Client)
	ctx := context.Background()

	id := uuid.New().String()
	_, err := svc.CreateSession(ctx, models.CreateSessionRequest{SessionID: id, UserID: "user-1", ModelID: "gpt-5"})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDeleteSession(ctx, id))

	resp, err := svc.ListSessions(ctx, models.SessionFilters{UserID: "user-1"})
	require.NoError(t, err)
	for _, s := range resp.Sessions {
		assert.NotEqual(t, id, s.ID, "soft-deleted session should not appear in default listing")
	}

	sess, err := svc.GetSession(ctx, id, false)
	require.NoError(t, err, "soft-deleted session is still retrievable by ID")
	assert.NotNil(t, sess.DeletedAt)
	assert.False(t, sess.IsActive)
}

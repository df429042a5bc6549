package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/njvoter/gateway/ent"
	"github.com/njvoter/gateway/ent/message"
	"github.com/njvoter/gateway/ent/session"
	"github.com/njvoter/gateway/pkg/models"
)

// MessageService manages a session's transcript.
type MessageService struct {
	client *ent.Client
}

// NewMessageService creates a new MessageService.
func NewMessageService(client *ent.Client) *MessageService {
	return &MessageService{client: client}
}

// AppendMessage assigns the next dense sequence number within the session
// and persists the message, used by the Chat Orchestrator for both the
// user turn and the completed assistant turn (§4.F steps 2 and 7).
func (s *MessageService) AppendMessage(ctx context.Context, req models.CreateMessageRequest) (*ent.Message, error) {
	if req.SessionID == "" {
		return nil, NewValidationError("session_id", "required")
	}
	if string(req.Role) == "" {
		return nil, NewValidationError("role", "required")
	}
	if err := message.RoleValidator(message.Role(req.Role)); err != nil {
		return nil, NewValidationError("role", fmt.Sprintf("invalid role %q: %v", req.Role, err))
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.client.Tx(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	maxSeq := 0
	latest, err := tx.Message.Query().
		Where(message.SessionIDEQ(req.SessionID)).
		Order(ent.Desc(message.FieldSequenceNumber)).
		First(writeCtx)
	if err != nil {
		if !ent.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get max sequence number: %w", err)
		}
	} else {
		maxSeq = latest.SequenceNumber
	}

	messageID := req.ID
	if messageID == "" {
		messageID = uuid.New().String()
	}

	builder := tx.Message.Create().
		SetID(messageID).
		SetSessionID(req.SessionID).
		SetSequenceNumber(maxSeq + 1).
		SetRole(message.Role(req.Role)).
		SetText(req.Text)
	if req.ToolCalls != nil {
		builder = builder.SetToolCalls(req.ToolCalls)
	}

	msg, err := builder.Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message append: %w", err)
	}

	return msg, nil
}

// PurgeMessagesForDeletedSessions removes the transcripts of sessions that
// were soft-deleted more than retention ago, driven by the retention
// cleanup loop (§4.K). A session's own row is left in place, deleted_at and
// all; only its messages are hard-deleted.
func (s *MessageService) PurgeMessagesForDeletedSessions(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)

	count, err := s.client.Message.Delete().
		Where(message.HasSessionWith(
			session.DeletedAtNotNil(),
			session.DeletedAtLT(cutoff),
		)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge messages for deleted sessions: %w", err)
	}
	return count, nil
}

// GetSessionMessages retrieves a session's full transcript in order,
// reloaded by the Agent Adapter cache on a cold start (§4.G).
func (s *MessageService) GetSessionMessages(ctx context.Context, sessionID string) ([]*ent.Message, error) {
	messages, err := s.client.Message.Query().
		Where(message.SessionIDEQ(sessionID)).
		Order(ent.Asc(message.FieldSequenceNumber)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get session messages: %w", err)
	}

	return messages, nil
}

// GetLatestMessage returns the most recent message in a session, used by
// recover_message to check whether anything has moved since the client's
// last_message_id.
func (s *MessageService) GetLatestMessage(ctx context.Context, sessionID string) (*ent.Message, error) {
	msg, err := s.client.Message.Query().
		Where(message.SessionIDEQ(sessionID)).
		Order(ent.Desc(message.FieldSequenceNumber)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}

	return msg, nil
}

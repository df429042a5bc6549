package services

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/njvoter/gateway/ent"
	"github.com/njvoter/gateway/ent/message"
	"github.com/njvoter/gateway/ent/session"
	"github.com/njvoter/gateway/pkg/models"
)

// SessionService manages chat session lifecycle.
type SessionService struct {
	client *ent.Client
}

// NewSessionService creates a new SessionService.
func NewSessionService(client *ent.Client) *SessionService {
	return &SessionService{client: client}
}

// CreateSession creates a new session, driven by the Chat Orchestrator when
// a turn arrives with no session_id (§4.F step 1).
func (s *SessionService) CreateSession(ctx context.Context, req models.CreateSessionRequest) (*ent.Session, error) {
	if req.SessionID == "" {
		return nil, NewValidationError("session_id", "required")
	}
	if req.UserID == "" {
		return nil, NewValidationError("user_id", "required")
	}
	if req.ModelID == "" {
		return nil, NewValidationError("model_id", "required")
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := s.client.Session.Create().
		SetID(req.SessionID).
		SetUserID(req.UserID).
		SetName(req.Name).
		SetModelID(req.ModelID).
		Save(writeCtx)
	if err != nil {
		if ent.IsConstraintError(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sess, nil
}

// GetSession retrieves a session by ID, with optional message-edge loading.
func (s *SessionService) GetSession(ctx context.Context, sessionID string, withMessages bool) (*ent.Session, error) {
	query := s.client.Session.Query().Where(session.IDEQ(sessionID))

	if withMessages {
		query = query.WithMessages(func(q *ent.MessageQuery) {
			q.Order(ent.Asc(message.FieldSequenceNumber))
		})
	}

	sess, err := query.Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return sess, nil
}

// ListSessions lists a user's sessions with pagination, most recently
// active first.
func (s *SessionService) ListSessions(ctx context.Context, filters models.SessionFilters) (*models.SessionListResponse, error) {
	query := s.client.Session.Query()

	if filters.UserID != "" {
		query = query.Where(session.UserIDEQ(filters.UserID))
	}
	if !filters.IncludeDeleted {
		query = query.Where(session.DeletedAtIsNil())
	}

	totalCount, err := query.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	sessions, err := query.
		Limit(limit).
		Offset(offset).
		Order(ent.Desc(session.FieldUpdatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return &models.SessionListResponse{
		Sessions:   sessions,
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	}, nil
}

// UpdateSessionModel changes the active LLM model for a session, driven by
// the update_session_model transport action. The Chat Orchestrator evicts
// the cached agent instance for this session separately.
func (s *SessionService) UpdateSessionModel(ctx context.Context, sessionID, modelID string) (*ent.Session, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := s.client.Session.UpdateOneID(sessionID).
		SetModelID(modelID).
		Save(writeCtx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update session model: %w", err)
	}

	return sess, nil
}

// TouchSession bumps updated_at, called after every appended message so
// ListSessions orders by recency.
func (s *SessionService) TouchSession(ctx context.Context, sessionID string) error {
	err := s.client.Session.UpdateOneID(sessionID).
		SetUpdatedAt(time.Now()).
		Exec(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// SoftDeleteSession marks a session as deleted without removing its
// transcript, which is never hard-deleted while referenced (§3.1).
func (s *SessionService) SoftDeleteSession(ctx context.Context, sessionID string) error {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.client.Session.UpdateOneID(sessionID).
		SetDeletedAt(time.Now()).
		SetIsActive(false).
		Exec(writeCtx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to soft delete session: %w", err)
	}
	return nil
}

// SoftDeleteOldSessions marks every session last touched more than
// olderThanDays ago as deleted, driven by the retention cleanup loop
// (§4.K). Returns the number of sessions affected.
func (s *SessionService) SoftDeleteOldSessions(ctx context.Context, olderThanDays int) (int, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	count, err := s.client.Session.Update().
		Where(
			session.DeletedAtIsNil(),
			session.UpdatedAtLT(cutoff),
		).
		SetDeletedAt(time.Now()).
		SetIsActive(false).
		Save(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to soft delete old sessions: %w", err)
	}
	return count, nil
}

// SearchSessions performs full-text search on session name, matching the
// teacher's alert_data/final_analysis search shape over this domain's
// single searchable field.
func (s *SessionService) SearchSessions(ctx context.Context, userID, query string, limit int) ([]*ent.Session, error) {
	if limit <= 0 {
		limit = 20
	}

	q := s.client.Session.Query().
		Where(session.UserIDEQ(userID), session.DeletedAtIsNil()).
		Where(func(sel *sql.Selector) {
			sel.Where(sql.ExprP("to_tsvector('english', name) @@ plainto_tsquery($1)", query))
		}).
		Limit(limit).
		Order(ent.Desc(session.FieldUpdatedAt))

	sessions, err := q.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search sessions: %w", err)
	}

	return sessions, nil
}

package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/njvoter/gateway/ent"
	"github.com/njvoter/gateway/ent/savedquery"
	"github.com/njvoter/gateway/pkg/models"
)

// SavedQueryService implements the Result Artifact Store (§4.D): reusable,
// re-executable SELECT definitions ("voter lists") scoped to their owner.
type SavedQueryService struct {
	client *ent.Client

	window time.Duration
	mu     sync.Mutex
	// recentlyDeleted filters list() results against ids the store has
	// soft-deleted but whose write may not yet be visible to a
	// read-replica-backed query, per §4.D's "recently deleted" requirement.
	recentlyDeleted map[string]time.Time
}

// NewSavedQueryService creates a SavedQueryService. window bounds how long
// an id stays in the in-memory recently-deleted filter.
func NewSavedQueryService(client *ent.Client, window time.Duration) *SavedQueryService {
	if window <= 0 {
		window = 30 * time.Second
	}
	s := &SavedQueryService{
		client:          client,
		window:          window,
		recentlyDeleted: make(map[string]time.Time),
	}
	return s
}

func (s *SavedQueryService) markDeleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentlyDeleted[id] = time.Now().Add(s.window)
}

func (s *SavedQueryService) isRecentlyDeleted(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.recentlyDeleted[id]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(s.recentlyDeleted, id)
		return false
	}
	return true
}

// Save persists a new saved query, returning it with a fresh list_id.
func (s *SavedQueryService) Save(ctx context.Context, req models.CreateSavedQueryRequest) (*ent.SavedQuery, error) {
	if req.OwnerUserID == "" {
		return nil, NewValidationError("owner_user_id", "required")
	}
	if req.Name == "" {
		return nil, NewValidationError("name", "required")
	}
	if req.SQLText == "" {
		return nil, NewValidationError("sql_text", "required")
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	builder := s.client.SavedQuery.Create().
		SetID(uuid.New().String()).
		SetOwnerUserID(req.OwnerUserID).
		SetName(req.Name).
		SetSQLText(req.SQLText)
	if req.Description != "" {
		builder = builder.SetDescription(req.Description)
	}
	if req.NaturalLanguagePrompt != "" {
		builder = builder.SetNaturalLanguagePrompt(req.NaturalLanguagePrompt)
	}
	if req.RowCount != nil {
		builder = builder.SetRowCount(*req.RowCount)
	}

	sq, err := builder.Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to save query: %w", err)
	}
	return sq, nil
}

// List returns a user's active saved queries, most recently updated first,
// filtering out ids this instance has soft-deleted but may not yet be
// absent from a read-replica-backed query.
func (s *SavedQueryService) List(ctx context.Context, ownerUserID string) ([]*ent.SavedQuery, error) {
	rows, err := s.client.SavedQuery.Query().
		Where(savedquery.OwnerUserIDEQ(ownerUserID), savedquery.IsActiveEQ(true)).
		Order(ent.Desc(savedquery.FieldUpdatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved queries: %w", err)
	}

	filtered := rows[:0]
	for _, sq := range rows {
		if s.isRecentlyDeleted(sq.ID) {
			continue
		}
		filtered = append(filtered, sq)
	}
	return filtered, nil
}

// Get retrieves a single saved query, scoped to its owner.
func (s *SavedQueryService) Get(ctx context.Context, listID, ownerUserID string) (*ent.SavedQuery, error) {
	sq, err := s.client.SavedQuery.Query().
		Where(savedquery.IDEQ(listID), savedquery.OwnerUserIDEQ(ownerUserID)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get saved query: %w", err)
	}
	return sq, nil
}

// Update applies field-level changes. owner_user_id is never mutated.
func (s *SavedQueryService) Update(ctx context.Context, listID, ownerUserID string, req models.CreateSavedQueryRequest) (*ent.SavedQuery, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := s.client.SavedQuery.Update().
		Where(savedquery.IDEQ(listID), savedquery.OwnerUserIDEQ(ownerUserID))

	if req.Name != "" {
		update = update.SetName(req.Name)
	}
	if req.Description != "" {
		update = update.SetDescription(req.Description)
	}
	if req.SQLText != "" {
		update = update.SetSQLText(req.SQLText)
	}
	if req.NaturalLanguagePrompt != "" {
		update = update.SetNaturalLanguagePrompt(req.NaturalLanguagePrompt)
	}
	if req.RowCount != nil {
		update = update.SetRowCount(*req.RowCount)
	}

	n, err := update.Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to update saved query: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, listID, ownerUserID)
}

// SoftDelete marks a saved query inactive, immediately shadowing it from
// List via the in-memory recently-deleted set.
func (s *SavedQueryService) SoftDelete(ctx context.Context, listID, ownerUserID string) error {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := s.client.SavedQuery.Update().
		Where(savedquery.IDEQ(listID), savedquery.OwnerUserIDEQ(ownerUserID)).
		SetIsActive(false).
		Save(writeCtx)
	if err != nil {
		return fmt.Errorf("failed to soft delete saved query: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.markDeleted(listID)
	return nil
}

// IncrementAccess bumps access_count and last_accessed_at, called whenever
// a saved query is re-run (§4.D).
func (s *SavedQueryService) IncrementAccess(ctx context.Context, listID string) error {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.client.SavedQuery.UpdateOneID(listID).
		AddAccessCount(1).
		SetLastAccessedAt(time.Now()).
		Exec(writeCtx)
	if err != nil {
		if ent.IsNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to increment access count: %w", err)
	}
	return nil
}

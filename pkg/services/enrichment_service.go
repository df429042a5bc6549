package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/njvoter/gateway/ent"
	"github.com/njvoter/gateway/ent/enrichmentrecord"
	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/enrichment"
	"github.com/njvoter/gateway/pkg/models"
)

const defaultMinLikelihood = 5

// EnrichmentService implements the Enrichment Coordinator (§4.H): gates
// calls to a paid third-party match provider behind a staleness window,
// a daily spend cap, and a per-session confirmation threshold, then
// persists matches as EnrichmentRecord rows.
type EnrichmentService struct {
	client *ent.Client
	cfg    *config.EnrichmentConfig
	http   *enrichment.Client

	mu           sync.Mutex
	sessionSpend map[string]float64 // session_id -> dollars spent this process lifetime
}

// NewEnrichmentService creates an EnrichmentService.
func NewEnrichmentService(client *ent.Client, cfg *config.EnrichmentConfig, httpClient *enrichment.Client) *EnrichmentService {
	return &EnrichmentService{
		client:       client,
		cfg:          cfg,
		http:         httpClient,
		sessionSpend: make(map[string]float64),
	}
}

func clampLikelihood(n int) int {
	if n <= 0 {
		return defaultMinLikelihood
	}
	if n > 10 {
		return 10
	}
	return n
}

// freshRecord returns the most recent EnrichmentRecord for personID if it
// falls inside the configured staleness window, else nil.
func (s *EnrichmentService) freshRecord(ctx context.Context, personID string) (*ent.EnrichmentRecord, error) {
	rec, err := s.client.EnrichmentRecord.Query().
		Where(enrichmentrecord.PersonIDEQ(personID)).
		Order(ent.Desc(enrichmentrecord.FieldEnrichedAt)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up enrichment record: %w", err)
	}
	if time.Since(rec.EnrichedAt) > s.cfg.StalenessWindow {
		return nil, nil
	}
	return rec, nil
}

// dailySpend sums cost_per_enrichment across today's persisted records, the
// gateway's daily budget cap input (§4.H).
func (s *EnrichmentService) dailySpend(ctx context.Context) (float64, error) {
	startOfDay := time.Now().Truncate(24 * time.Hour)
	n, err := s.client.EnrichmentRecord.Query().
		Where(enrichmentrecord.EnrichedAtGTE(startOfDay)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to compute daily enrichment spend: %w", err)
	}
	return float64(n) * s.cfg.CostPerEnrichment, nil
}

func (s *EnrichmentService) addSessionSpend(sessionID string, amount float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionSpend[sessionID] += amount
	return s.sessionSpend[sessionID]
}

func (s *EnrichmentService) persistMatch(ctx context.Context, m enrichment.Match) (*ent.EnrichmentRecord, error) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	builder := s.client.EnrichmentRecord.Create().
		SetID(uuid.New().String()).
		SetPersonID(m.PersonID).
		SetProviderRecordID(m.ProviderRecordID).
		SetMatchLikelihood(m.MatchLikelihood).
		SetPayload(m.Payload).
		SetHasLinkedin(m.HasLinkedIn).
		SetHasEducation(m.HasEducation).
		SetHasEmail(m.Email != "").
		SetHasPhone(m.Phone != "").
		SetHasJob(m.JobTitle != "")
	if m.Email != "" {
		builder = builder.SetEmail(m.Email)
	}
	if m.Phone != "" {
		builder = builder.SetPhone(m.Phone)
	}
	if m.JobTitle != "" {
		builder = builder.SetJobTitle(m.JobTitle)
	}
	if m.Employer != "" {
		builder = builder.SetEmployer(m.Employer)
	}
	return builder.Save(writeCtx)
}

// EnrichOne implements enrich_one (§4.G, §4.H): fetch cached/fresh if
// present unless force is set, otherwise call the provider, subject to the
// session confirmation threshold.
func (s *EnrichmentService) EnrichOne(ctx context.Context, sessionID string, req models.EnrichOneRequest) (*models.EnrichmentRecordResponse, *models.ConfirmationRequiredResult, error) {
	if req.PersonID == "" {
		return nil, nil, NewValidationError("person_id", "required")
	}

	if !req.Force {
		if fresh, err := s.freshRecord(ctx, req.PersonID); err != nil {
			return nil, nil, err
		} else if fresh != nil {
			return &models.EnrichmentRecordResponse{EnrichmentRecord: fresh, IsFresh: true}, nil, nil
		}
	}

	spend, err := s.dailySpend(ctx)
	if err != nil {
		return nil, nil, err
	}
	if spend+s.cfg.CostPerEnrichment > s.cfg.DailyBudgetLimit {
		return nil, nil, fmt.Errorf("daily enrichment budget of $%.2f exhausted", s.cfg.DailyBudgetLimit)
	}

	projected := s.addSessionSpend(sessionID, 0) + s.cfg.CostPerEnrichment
	if projected > s.cfg.RequireConfirmationOver {
		return nil, &models.ConfirmationRequiredResult{
			EstimatedCost:     s.cfg.CostPerEnrichment,
			AffectedSubjects:  []string{req.PersonID},
			RecommendedAction: "re-issue this call with force=true to confirm the spend",
		}, nil
	}

	match, err := s.http.MatchOne(ctx, req.PersonID, clampLikelihood(req.MinLikelihood))
	if err != nil {
		return nil, nil, fmt.Errorf("enrichment provider call failed: %w", err)
	}
	if !match.Found {
		return nil, nil, fmt.Errorf("no match found for person_id %s", req.PersonID)
	}

	rec, err := s.persistMatch(ctx, *match)
	if err != nil {
		return nil, nil, err
	}
	s.addSessionSpend(sessionID, s.cfg.CostPerEnrichment)
	return &models.EnrichmentRecordResponse{EnrichmentRecord: rec, IsFresh: true}, nil, nil
}

// EnrichBatch implements enrich_batch (§4.G, §4.H): capped at BatchCap
// subjects, each isolated so one failure doesn't sink the batch.
func (s *EnrichmentService) EnrichBatch(ctx context.Context, sessionID string, req models.EnrichBatchRequest) (*models.EnrichBatchResult, *models.ConfirmationRequiredResult, error) {
	if len(req.PersonIDs) == 0 {
		return nil, nil, NewValidationError("person_ids", "required")
	}
	if len(req.PersonIDs) > s.cfg.BatchCap {
		return nil, nil, NewValidationError("person_ids", fmt.Sprintf("exceeds batch cap of %d", s.cfg.BatchCap))
	}

	result := &models.EnrichBatchResult{Failed: make(map[string]string)}
	toFetch := make([]string, 0, len(req.PersonIDs))

	for _, personID := range req.PersonIDs {
		if req.Force {
			toFetch = append(toFetch, personID)
			continue
		}
		fresh, err := s.freshRecord(ctx, personID)
		if err != nil {
			result.Failed[personID] = err.Error()
			continue
		}
		if fresh != nil {
			if req.SkipExisting {
				result.AlreadyFresh = append(result.AlreadyFresh, personID)
				continue
			}
			result.Enriched = append(result.Enriched, fresh)
			continue
		}
		toFetch = append(toFetch, personID)
	}

	if len(toFetch) == 0 {
		return result, nil, nil
	}

	estimatedCost := float64(len(toFetch)) * s.cfg.CostPerEnrichment
	spend, err := s.dailySpend(ctx)
	if err != nil {
		return nil, nil, err
	}
	if spend+estimatedCost > s.cfg.DailyBudgetLimit {
		result.BudgetExceeded = true
		return result, nil, nil
	}

	projected := s.addSessionSpend(sessionID, 0) + estimatedCost
	if projected > s.cfg.RequireConfirmationOver {
		return nil, &models.ConfirmationRequiredResult{
			EstimatedCost:     estimatedCost,
			AffectedSubjects:  toFetch,
			RecommendedAction: "re-issue this call with force=true to confirm the spend",
		}, nil
	}

	matches, err := s.http.MatchBatch(ctx, toFetch, clampLikelihood(req.MinLikelihood))
	if err != nil {
		for _, personID := range toFetch {
			result.Failed[personID] = err.Error()
		}
		return result, nil, nil
	}

	found := make(map[string]bool, len(matches))
	for _, m := range matches {
		found[m.PersonID] = true
		if !m.Found {
			result.Failed[m.PersonID] = "no match found"
			continue
		}
		rec, err := s.persistMatch(ctx, m)
		if err != nil {
			result.Failed[m.PersonID] = err.Error()
			continue
		}
		result.Enriched = append(result.Enriched, rec)
		s.addSessionSpend(sessionID, s.cfg.CostPerEnrichment)
	}
	for _, personID := range toFetch {
		if !found[personID] {
			result.Failed[personID] = "provider did not return a result"
		}
	}

	return result, nil, nil
}

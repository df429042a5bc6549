package services

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/njvoter/gateway/ent"
	"github.com/njvoter/gateway/ent/campaign"
	"github.com/njvoter/gateway/ent/campaignevent"
	"github.com/njvoter/gateway/pkg/campaigndispatch"
	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/docsvc"
	"github.com/njvoter/gateway/pkg/models"
	"github.com/njvoter/gateway/pkg/warehouse"
)

// CampaignService implements the Campaign Engine (§4.I): resolves a saved
// query into a bounded recipient set, renders the referenced document into
// restricted HTML, and dispatches it through SES, recording delivery
// events reported back by the provider's webhook.
type CampaignService struct {
	client     *ent.Client
	cfg        *config.CampaignConfig
	executor   *warehouse.Executor
	savedQuery *SavedQueryService
	docs       *docsvc.Client
	dispatch   *campaigndispatch.Client
}

// NewCampaignService creates a CampaignService.
func NewCampaignService(client *ent.Client, cfg *config.CampaignConfig, executor *warehouse.Executor, savedQuery *SavedQueryService, docs *docsvc.Client, dispatch *campaigndispatch.Client) *CampaignService {
	return &CampaignService{
		client:     client,
		cfg:        cfg,
		executor:   executor,
		savedQuery: savedQuery,
		docs:       docs,
		dispatch:   dispatch,
	}
}

// Create resolves the recipient count for req.ListID and persists a draft
// campaign. Dispatch happens separately via Send, so a draft can be
// reviewed first (§4.I step 1).
func (s *CampaignService) Create(ctx context.Context, req models.CreateCampaignRequest) (*ent.Campaign, error) {
	if req.OwnerUserID == "" {
		return nil, NewValidationError("owner_user_id", "required")
	}
	if req.ListID == "" {
		return nil, NewValidationError("list_id", "required")
	}
	if req.Subject == "" {
		return nil, NewValidationError("subject", "required")
	}
	if req.DocumentRef == "" {
		return nil, NewValidationError("document_ref", "required")
	}

	recipients, err := s.resolveRecipients(ctx, req.ListID, req.OwnerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve campaign recipients: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	builder := s.client.Campaign.Create().
		SetID(uuid.New().String()).
		SetOwnerUserID(req.OwnerUserID).
		SetListID(req.ListID).
		SetSubject(req.Subject).
		SetDocumentRef(req.DocumentRef).
		SetStatTotalRecipients(len(recipients))
	if req.SessionID != "" {
		builder = builder.SetSessionID(req.SessionID)
	}

	return builder.Save(writeCtx)
}

// resolveRecipients re-executes the saved query's SQL and projects the
// rows it returns into recipients, capped at RecipientCap (§4.I step 2).
// The list's SELECT is expected to surface person_id, email, first_name,
// last_name, and city; columns it omits are left blank on the recipient.
func (s *CampaignService) resolveRecipients(ctx context.Context, listID, ownerUserID string) ([]models.CampaignRecipient, error) {
	sq, err := s.savedQuery.Get(ctx, listID, ownerUserID)
	if err != nil {
		return nil, err
	}

	result, errResult := s.executor.Execute(ctx, sq.SQLText, warehouse.CallerContext{
		UserID:  ownerUserID,
		Purpose: "campaign_recipient_resolution",
	})
	if errResult != nil {
		return nil, fmt.Errorf("recipient query failed: %s", errResult.Detail)
	}

	limit := s.cfg.RecipientCap
	rows := result.Rows
	if len(rows) > limit {
		rows = rows[:limit]
	}

	recipients := make([]models.CampaignRecipient, 0, len(rows))
	for _, row := range rows {
		email, _ := row["email"].(string)
		if email == "" {
			continue
		}
		personID, _ := row["person_id"].(string)
		firstName, _ := row["first_name"].(string)
		lastName, _ := row["last_name"].(string)
		city, _ := row["city"].(string)
		recipients = append(recipients, models.CampaignRecipient{
			PersonID:  personID,
			Email:     email,
			FirstName: firstName,
			LastName:  lastName,
			City:      city,
		})
	}
	return recipients, nil
}

// List returns a user's campaigns.
func (s *CampaignService) List(ctx context.Context, ownerUserID string) ([]*ent.Campaign, error) {
	rows, err := s.client.Campaign.Query().
		Where(campaign.OwnerUserIDEQ(ownerUserID)).
		Order(ent.Desc(campaign.FieldCreatedAt)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return rows, nil
}

// Get retrieves a single campaign, scoped to its owner.
func (s *CampaignService) Get(ctx context.Context, campaignID, ownerUserID string) (*ent.Campaign, error) {
	c, err := s.client.Campaign.Query().
		Where(campaign.IDEQ(campaignID), campaign.OwnerUserIDEQ(ownerUserID)).
		Only(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

// personalize substitutes {{first_name}}, {{last_name}}, and {{city}}
// tokens in body, the only templating the Campaign Engine supports.
func personalize(body string, r models.CampaignRecipient) string {
	replacer := strings.NewReplacer(
		"{{first_name}}", html.EscapeString(r.FirstName),
		"{{last_name}}", html.EscapeString(r.LastName),
		"{{city}}", html.EscapeString(r.City),
	)
	return replacer.Replace(body)
}

func unsubscribeURL(baseURL, campaignID, personID string) string {
	return fmt.Sprintf("%s/campaigns/%s/unsubscribe?person_id=%s", baseURL, campaignID, url.QueryEscape(personID))
}

// Send dispatches a draft campaign: fetches its document, personalizes and
// sends to each recipient in configured batches, and records the outcome
// on the campaign's status/stat fields (§4.I steps 3-5).
func (s *CampaignService) Send(ctx context.Context, campaignID, ownerUserID string) (*ent.Campaign, error) {
	c, err := s.Get(ctx, campaignID, ownerUserID)
	if err != nil {
		return nil, err
	}
	if c.Status != campaign.StatusDraft {
		return nil, NewValidationError("status", "campaign is not in draft status")
	}

	recipients, err := s.resolveRecipients(ctx, c.ListID, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-resolve recipients at send time: %w", err)
	}
	if len(recipients) > s.cfg.RecipientCap {
		recipients = recipients[:s.cfg.RecipientCap]
	}

	doc, err := s.docs.Read(ctx, ownerUserID, c.DocumentRef)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch campaign document: %w", err)
	}

	batchID := uuid.New().String()
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err = c.Update().
		SetStatus(campaign.StatusSending).
		SetBatchID(batchID).
		Save(writeCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to mark campaign sending: %w", err)
	}

	sent, failed := 0, 0
	for i := 0; i < len(recipients); i += s.cfg.BatchSize {
		end := i + s.cfg.BatchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		for _, r := range recipients[i:end] {
			body := personalize(doc.Body, r)
			unsub := unsubscribeURL(s.cfg.DocumentBaseURL, c.ID, r.PersonID)
			if err := s.dispatch.Send(ctx, r.Email, c.Subject, body, unsub); err != nil {
				failed++
				continue
			}
			sent++
			s.recordEvent(ctx, c.ID, r.PersonID, campaignevent.EventTypeEmailSent, uuid.New().String(), nil)
		}
	}

	finalStatus := campaign.StatusSent
	if failed > 0 && sent > 0 {
		finalStatus = campaign.StatusPartial
	} else if failed > 0 && sent == 0 {
		finalStatus = campaign.StatusFailed
	}

	now := time.Now()
	writeCtx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	return c.Update().
		SetStatus(finalStatus).
		SetStatSent(sent).
		SetSentAt(now).
		SetStatLastUpdated(now).
		Save(writeCtx2)
}

func (s *CampaignService) recordEvent(ctx context.Context, campaignID, personID string, eventType campaignevent.EventType, providerEventID string, raw map[string]any) {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	builder := s.client.CampaignEvent.Create().
		SetID(uuid.New().String()).
		SetCampaignID(campaignID).
		SetPersonID(personID).
		SetEventType(eventType).
		SetProviderEventID(providerEventID)
	if raw != nil {
		builder = builder.SetRawPayload(raw)
	}
	_ = builder.Exec(writeCtx)
}

// RecordWebhookEvent implements the reconciliation webhook (§4.I step 6,
// §6 /webhooks/email): idempotent on (campaign_id, person_id, event_type,
// provider_event_id) via the schema's unique index, and bumps the
// matching stat counter atomically.
func (s *CampaignService) RecordWebhookEvent(ctx context.Context, req models.RecordCampaignEventRequest) error {
	eventType := campaignevent.EventType(req.EventType)
	exists, err := s.client.CampaignEvent.Query().
		Where(
			campaignevent.CampaignIDEQ(req.CampaignID),
			campaignevent.PersonIDEQ(req.PersonID),
			campaignevent.EventTypeEQ(eventType),
			campaignevent.ProviderEventIDEQ(req.ProviderEventID),
		).
		Exist(ctx)
	if err != nil {
		return fmt.Errorf("failed to check event idempotency: %w", err)
	}
	if exists {
		return nil
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	builder := s.client.CampaignEvent.Create().
		SetID(uuid.New().String()).
		SetCampaignID(req.CampaignID).
		SetPersonID(req.PersonID).
		SetEventType(eventType).
		SetProviderEventID(req.ProviderEventID)
	if req.RawPayload != nil {
		builder = builder.SetRawPayload(req.RawPayload)
	}
	if err := builder.Exec(writeCtx); err != nil {
		return fmt.Errorf("failed to record campaign event: %w", err)
	}

	return s.bumpStat(req.CampaignID, eventType)
}

func (s *CampaignService) bumpStat(campaignID string, eventType campaignevent.EventType) error {
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := s.client.Campaign.UpdateOneID(campaignID).SetStatLastUpdated(time.Now())
	switch eventType {
	case campaignevent.EventTypeDelivered:
		update = update.AddStatDelivered(1)
	case campaignevent.EventTypeOpened:
		update = update.AddStatOpened(1)
	case campaignevent.EventTypeClicked:
		update = update.AddStatClicked(1)
	case campaignevent.EventTypeBounced:
		update = update.AddStatBounced(1)
	case campaignevent.EventTypeUnsubscribed:
		update = update.AddStatUnsubscribed(1)
	}
	if err := update.Exec(writeCtx); err != nil {
		return fmt.Errorf("failed to update campaign stats: %w", err)
	}
	return nil
}

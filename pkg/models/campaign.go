package models

import "github.com/njvoter/gateway/ent"

// CreateCampaignRequest contains fields for drafting a new email campaign
// targeting the recipients resolved from a saved list (§4.I).
type CreateCampaignRequest struct {
	OwnerUserID string `json:"owner_user_id"`
	ListID      string `json:"list_id"`
	SessionID   string `json:"session_id,omitempty"`
	Subject     string `json:"subject"`
	DocumentRef string `json:"document_ref"`
}

// CampaignRecipient is one resolved send target.
type CampaignRecipient struct {
	PersonID  string `json:"person_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	City      string `json:"city"`
}

// CampaignResponse wraps a Campaign.
type CampaignResponse struct {
	*ent.Campaign
}

// CampaignListResponse contains a user's campaigns.
type CampaignListResponse struct {
	Campaigns []*ent.Campaign `json:"campaigns"`
}

// RecordCampaignEventRequest contains fields for an inbound ESP webhook
// event (delivery, open, click, bounce, unsubscribe).
type RecordCampaignEventRequest struct {
	CampaignID      string         `json:"campaign_id"`
	PersonID        string         `json:"person_id"`
	EventType       string         `json:"event_type"`
	ProviderEventID string         `json:"provider_event_id"`
	RawPayload      map[string]any `json:"raw_payload,omitempty"`
}

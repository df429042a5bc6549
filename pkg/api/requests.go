package api

// GenerateSQLRequest is the body for POST /query/generate-sql.
type GenerateSQLRequest struct {
	Prompt string `json:"prompt"`
}

// ExecuteSQLRequest is the body for POST /query/execute.
type ExecuteSQLRequest struct {
	SQL string `json:"sql"`
}

// SaveListRequest is the body for POST /lists and PUT /lists/:id.
type SaveListRequest struct {
	Name                  string `json:"name"`
	Description           string `json:"description,omitempty"`
	SQLText               string `json:"sql_text"`
	NaturalLanguagePrompt string `json:"natural_language_prompt,omitempty"`
}

// RegenerateListSQLRequest is the body for POST /lists/:id/regenerate-sql.
type RegenerateListSQLRequest struct {
	Prompt string `json:"prompt"`
}

// CreateCampaignRequest is the body for POST /campaigns.
type CreateCampaignRequest struct {
	ListID      string `json:"list_id"`
	SessionID   string `json:"session_id,omitempty"`
	Subject     string `json:"subject"`
	DocumentRef string `json:"document_ref"`
}

// EmailWebhookRequest is the body for POST /webhooks/email: a batch of
// delivery events reported back by the email provider, each carrying the
// custom args (campaign_id, person_id) attached at send time (§6).
type EmailWebhookRequest struct {
	Events []EmailWebhookEvent `json:"events"`
}

// EmailWebhookEvent is a single reported delivery event.
type EmailWebhookEvent struct {
	CampaignID      string         `json:"campaign_id"`
	PersonID        string         `json:"person_id"`
	EventType       string         `json:"event_type"`
	ProviderEventID string         `json:"provider_event_id"`
	Raw             map[string]any `json:"raw,omitempty"`
}

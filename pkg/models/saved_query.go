package models

import "github.com/njvoter/gateway/ent"

// CreateSavedQueryRequest contains fields for persisting a reusable,
// re-executable SELECT as a "voter list" (§4.D).
type CreateSavedQueryRequest struct {
	OwnerUserID            string `json:"owner_user_id"`
	Name                   string `json:"name"`
	Description            string `json:"description,omitempty"`
	SQLText                string `json:"sql_text"`
	NaturalLanguagePrompt  string `json:"natural_language_prompt,omitempty"`
	RowCount               *int   `json:"row_count,omitempty"`
}

// SavedQueryResponse wraps a SavedQuery.
type SavedQueryResponse struct {
	*ent.SavedQuery
}

// SavedQueryListResponse contains a user's saved lists.
type SavedQueryListResponse struct {
	Lists []*ent.SavedQuery `json:"lists"`
}

package models

import "github.com/njvoter/gateway/ent"

// EnrichOneRequest drives the single-subject enrichment tool (§4.G, §4.H).
type EnrichOneRequest struct {
	PersonID      string `json:"person_id"`
	Action        string `json:"action"` // "fetch", "enrich", or "summary"
	MinLikelihood int    `json:"min_likelihood,omitempty"`
	Force         bool   `json:"force,omitempty"`
}

// EnrichBatchRequest drives the batch enrichment tool, preferred for
// three or more subjects.
type EnrichBatchRequest struct {
	PersonIDs     []string `json:"person_ids"`
	MinLikelihood int      `json:"min_likelihood,omitempty"`
	SkipExisting  bool     `json:"skip_existing,omitempty"`
	Force         bool     `json:"force,omitempty"`
}

// EnrichBatchResult summarizes the outcome of a batch enrichment call.
type EnrichBatchResult struct {
	Enriched       []*ent.EnrichmentRecord `json:"enriched"`
	AlreadyFresh   []string                `json:"already_fresh"`
	Failed         map[string]string       `json:"failed,omitempty"` // person_id -> error
	BudgetExceeded bool                    `json:"budget_exceeded"`
}

// ConfirmationRequiredResult is returned instead of calling the provider
// when a single request would push the session budget over its
// confirmation threshold.
type ConfirmationRequiredResult struct {
	EstimatedCost     float64  `json:"estimated_cost"`
	AffectedSubjects  []string `json:"affected_subjects"`
	RecommendedAction string   `json:"recommended_action"`
}

// EnrichmentRecordResponse wraps an EnrichmentRecord.
type EnrichmentRecordResponse struct {
	*ent.EnrichmentRecord
	IsFresh bool `json:"is_fresh"`
}

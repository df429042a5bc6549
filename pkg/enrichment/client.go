// Package enrichment implements the third-party person-match provider
// client used by the Enrichment Coordinator (§4.H). No Go SDK for this
// class of provider exists anywhere in the example pack, so the client is
// a thin stdlib net/http JSON client, matching the shape spec.md §6
// describes for the provider contract (enrich_one/enrich_batch with a
// likelihood threshold).
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/njvoter/gateway/pkg/config"
	"github.com/njvoter/gateway/pkg/secrets"
)

// Match is one provider result for a person_id.
type Match struct {
	PersonID         string         `json:"person_id"`
	Found            bool           `json:"found"`
	ProviderRecordID string         `json:"provider_record_id"`
	MatchLikelihood  float64        `json:"match_likelihood"`
	Payload          map[string]any `json:"payload"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	JobTitle         string         `json:"job_title"`
	Employer         string         `json:"employer"`
	HasLinkedIn      bool           `json:"has_linkedin"`
	HasEducation     bool           `json:"has_education"`
}

// Client calls the enrichment provider's match endpoints.
type Client struct {
	baseURL    string
	apiKeyEnv  string
	secrets    *secrets.Resolver
	httpClient *http.Client
}

// New creates a Client from the Enrichment Coordinator's resolved config.
func New(cfg *config.EnrichmentConfig, resolver *secrets.Resolver) *Client {
	return &Client{
		baseURL:   cfg.ProviderBaseURL,
		apiKeyEnv: cfg.APIKeyEnv,
		secrets:   resolver,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type matchOneRequest struct {
	PersonID      string `json:"person_id"`
	MinLikelihood int    `json:"min_likelihood"`
}

// MatchOne calls the provider for a single subject.
func (c *Client) MatchOne(ctx context.Context, personID string, minLikelihood int) (*Match, error) {
	var out Match
	if err := c.post(ctx, "/v1/match", matchOneRequest{PersonID: personID, MinLikelihood: minLikelihood}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type matchBatchRequest struct {
	PersonIDs     []string `json:"person_ids"`
	MinLikelihood int      `json:"min_likelihood"`
}

type matchBatchResponse struct {
	Matches []Match `json:"matches"`
}

// MatchBatch calls the provider for multiple subjects in one round trip.
func (c *Client) MatchBatch(ctx context.Context, personIDs []string, minLikelihood int) ([]Match, error) {
	var out matchBatchResponse
	if err := c.post(ctx, "/v1/match/batch", matchBatchRequest{PersonIDs: personIDs, MinLikelihood: minLikelihood}, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode enrichment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey := c.secrets.MustGet(ctx, c.apiKeyEnv); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enrichment provider request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read enrichment response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("enrichment provider returned %d: %s", resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode enrichment response: %w", err)
	}
	return nil
}

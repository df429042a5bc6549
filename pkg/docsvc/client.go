// Package docsvc implements the doc_create/doc_read/doc_list/doc_update
// tools' backing client (§4.G tool table, §6): a user-delegated document
// store the agent writes campaign copy and analysis notes into. No SDK for
// this class of provider appears anywhere in the example pack, so this is
// a thin stdlib net/http JSON client, scoped per call to the caller's user
// id rather than a single service credential.
package docsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Document is a stored document's metadata and body.
type Document struct {
	ID        string `json:"doc_id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	UpdatedAt string `json:"updated_at"`
}

// Client calls the document service under a caller's delegated identity.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. apiKey authenticates this gateway instance to the
// document service; per-call user scoping is carried as the X-On-Behalf-Of
// header, not a separate per-user credential.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path, onBehalfOf string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode document request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build document request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if onBehalfOf != "" {
		req.Header.Set("X-On-Behalf-Of", onBehalfOf)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("document service request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read document response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("document service returned %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode document response: %w", err)
	}
	return nil
}

type createRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Create stores a new document owned by onBehalfOf.
func (c *Client) Create(ctx context.Context, onBehalfOf, title, body string) (*Document, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/documents", onBehalfOf, createRequest{Title: title, Body: body})
	if err != nil {
		return nil, err
	}
	var out Document
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Read fetches a document by id, scoped to onBehalfOf's access.
func (c *Client) Read(ctx context.Context, onBehalfOf, docID string) (*Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/documents/"+docID, onBehalfOf, nil)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type listResponse struct {
	Documents []Document `json:"documents"`
}

// List returns onBehalfOf's documents.
func (c *Client) List(ctx context.Context, onBehalfOf string) ([]Document, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/documents", onBehalfOf, nil)
	if err != nil {
		return nil, err
	}
	var out listResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

type updateRequest struct {
	Body string `json:"body"`
}

// Update replaces a document's body.
func (c *Client) Update(ctx context.Context, onBehalfOf, docID, body string) (*Document, error) {
	req, err := c.newRequest(ctx, http.MethodPatch, "/v1/documents/"+docID, onBehalfOf, updateRequest{Body: body})
	if err != nil {
		return nil, err
	}
	var out Document
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

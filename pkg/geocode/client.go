// Package geocode implements the geocode tool's backing client (§4.G tool
// table: address -> lat/lon). No geocoding SDK appears anywhere in the
// example pack, so this is a thin stdlib net/http JSON client, with a
// fallback to a small table of known jurisdiction centroids when the
// provider is unreachable or returns no match, per the tool's contract.
package geocode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result is one geocoded point.
type Result struct {
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	County     string  `json:"county"`
	Matched    string  `json:"matched_address"`
	FromFallback bool  `json:"-"`
}

// centroid is a known New Jersey county seat, used as a coarse fallback
// when the provider can't resolve an address.
type centroid struct {
	county string
	lat    float64
	lon    float64
}

// fallbackCentroids covers the twenty-one New Jersey counties, keyed by a
// lowercase substring match against the requested address. Coarse, but
// better than failing the tool call outright when the provider is down.
var fallbackCentroids = []centroid{
	{"essex", 40.7357, -74.1724},
	{"hudson", 40.7282, -74.0776},
	{"bergen", 40.9262, -74.0776},
	{"middlesex", 40.4862, -74.4518},
	{"union", 40.6976, -74.3090},
	{"camden", 39.9259, -75.1196},
	{"monmouth", 40.2171, -74.1351},
	{"ocean", 39.9537, -74.1979},
	{"burlington", 39.9537, -74.6527},
	{"passaic", 40.9168, -74.1718},
	{"morris", 40.8446, -74.5795},
	{"gloucester", 39.7068, -75.1202},
	{"atlantic", 39.4699, -74.6321},
	{"mercer", 40.2206, -74.7597},
	{"somerset", 40.5670, -74.6201},
	{"cumberland", 39.4023, -75.0645},
	{"warren", 40.8484, -75.0412},
	{"sussex", 41.1398, -74.6932},
	{"hunterdon", 40.5676, -74.9516},
	{"salem", 39.5734, -75.4685},
	{"cape may", 39.0814, -74.8623},
}

func fallback(address string) *Result {
	lower := strings.ToLower(address)
	for _, c := range fallbackCentroids {
		if strings.Contains(lower, c.county) {
			return &Result{Lat: c.lat, Lon: c.lon, County: strings.Title(c.county), Matched: address, FromFallback: true}
		}
	}
	return nil
}

// Client calls a geocoding provider's forward-geocode endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client. baseURL and apiKey are resolved by the caller
// (typically via pkg/secrets) before construction.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type geocodeRequest struct {
	Address string `json:"address"`
}

// Geocode resolves an address to a point. On any provider failure it
// falls back to a county-centroid match rather than returning an error,
// since an approximate point is more useful to the agent loop than a
// failed tool call for this tool specifically.
func (c *Client) Geocode(ctx context.Context, address string) (*Result, error) {
	if c.baseURL == "" {
		if fb := fallback(address); fb != nil {
			return fb, nil
		}
		return nil, fmt.Errorf("geocode provider not configured and no fallback centroid matched %q", address)
	}

	payload, err := json.Marshal(geocodeRequest{Address: address})
	if err != nil {
		return nil, fmt.Errorf("failed to encode geocode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/geocode", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if fb := fallback(address); fb != nil {
			return fb, nil
		}
		return nil, fmt.Errorf("geocode provider request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read geocode response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if fb := fallback(address); fb != nil {
			return fb, nil
		}
		return nil, fmt.Errorf("geocode provider returned %d: %s", resp.StatusCode, string(data))
	}

	var out Result
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	return &out, nil
}

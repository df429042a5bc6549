package config

import "time"

// CORSConfig holds resolved HTTP CORS configuration for the transport
// boundary (§6).
type CORSConfig struct {
	AllowedOrigins []string // Empty means same-origin only
}

// WarehouseConfig holds resolved Query Executor configuration (§4.C).
type WarehouseConfig struct {
	Account           string        // Snowflake account identifier
	Database          string        // Target database
	Schema            string        // Target schema
	Warehouse         string        // Compute warehouse name
	RoleEnv           string        // Env var name containing the role, if any
	QueryTagPrefix    string        // Prefix used when tagging queries with the owning user
	MaxOpenConns      int           // database/sql pool size
	MaxIdleConns      int
	ConnMaxLifetime   time.Duration
	DefaultQueryDelay time.Duration // Artificial floor on query latency reporting, 0 disables
}

// DefaultWarehouseConfig returns the built-in warehouse connection defaults.
func DefaultWarehouseConfig() *WarehouseConfig {
	return &WarehouseConfig{
		QueryTagPrefix:  "gateway",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// EnrichmentConfig holds resolved Enrichment Coordinator configuration
// (§4.H).
type EnrichmentConfig struct {
	CostPerEnrichment       float64       // Dollars charged per successful match
	DailyBudgetLimit        float64       // Dollars per calendar day, process-wide
	RequireConfirmationOver float64       // Dollar threshold above which a batch needs ConfirmationRequired
	StalenessWindow         time.Duration // How long an EnrichmentRecord stays "fresh"
	BatchCap                int           // Max person_ids per enrich_batch call
	ProviderBaseURL         string
	APIKeyEnv               string
}

// DefaultEnrichmentConfig returns the built-in enrichment defaults, lifted
// from the PDL tool constants in the system this gateway distills.
func DefaultEnrichmentConfig() *EnrichmentConfig {
	return &EnrichmentConfig{
		CostPerEnrichment:       0.25,
		DailyBudgetLimit:        10.00,
		RequireConfirmationOver: 5.00,
		StalenessWindow:         180 * 24 * time.Hour,
		BatchCap:                100,
		APIKeyEnv:               "ENRICHMENT_API_KEY",
	}
}

// CampaignConfig holds resolved Campaign Engine configuration (§4.I).
type CampaignConfig struct {
	BatchSize        int // Recipients per SES send batch
	RecipientCap     int // Max recipients per campaign
	FromAddressEnv   string
	DocumentBaseURL  string // External document service base URL
	WebhookPathToken string // Shared secret embedded in the webhook URL path
}

// DefaultCampaignConfig returns the built-in campaign defaults.
func DefaultCampaignConfig() *CampaignConfig {
	return &CampaignConfig{
		BatchSize:      1000,
		RecipientCap:   1000,
		FromAddressEnv: "CAMPAIGN_FROM_ADDRESS",
	}
}

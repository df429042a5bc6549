package config

import (
	"fmt"
	"os"
)

// Validator validates configuration comprehensively with clear error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at first error).
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}

	if err := v.validateMCPServers(); err != nil {
		return fmt.Errorf("MCP server validation failed: %w", err)
	}

	if err := v.validateLLMProviders(); err != nil {
		return fmt.Errorf("LLM provider validation failed: %w", err)
	}

	if err := v.validateDefaults(); err != nil {
		return fmt.Errorf("defaults validation failed: %w", err)
	}

	if err := v.validateAllowlist(); err != nil {
		return fmt.Errorf("allowlist validation failed: %w", err)
	}

	if err := v.validateRemap(); err != nil {
		return fmt.Errorf("remap validation failed: %w", err)
	}

	if err := v.validateWarehouse(); err != nil {
		return fmt.Errorf("warehouse validation failed: %w", err)
	}

	if err := v.validateEnrichment(); err != nil {
		return fmt.Errorf("enrichment validation failed: %w", err)
	}

	if err := v.validateCampaign(); err != nil {
		return fmt.Errorf("campaign validation failed: %w", err)
	}

	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q == nil {
		return fmt.Errorf("queue configuration is nil")
	}

	if q.MaxConcurrentTurns < 1 {
		return fmt.Errorf("max_concurrent_turns must be at least 1, got %d", q.MaxConcurrentTurns)
	}
	if q.ChatTimeout <= 0 {
		return fmt.Errorf("chat_timeout must be positive, got %v", q.ChatTimeout)
	}
	if q.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %v", q.HeartbeatInterval)
	}
	if q.HeartbeatInterval >= q.ChatTimeout {
		return fmt.Errorf("heartbeat_interval must be less than chat_timeout, got heartbeat=%v timeout=%v", q.HeartbeatInterval, q.ChatTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}
	if q.InFlightTurnTTL <= 0 {
		return fmt.Errorf("in_flight_turn_ttl must be positive, got %v", q.InFlightTurnTTL)
	}
	if q.GCInterval <= 0 {
		return fmt.Errorf("gc_interval must be positive, got %v", q.GCInterval)
	}
	if q.GCInterval >= q.InFlightTurnTTL {
		return fmt.Errorf("gc_interval must be less than in_flight_turn_ttl to recover turns promptly, got gc=%v ttl=%v", q.GCInterval, q.InFlightTurnTTL)
	}

	return nil
}

func (v *Validator) validateDefaults() error {
	defaults := v.cfg.Defaults
	if defaults == nil {
		return nil
	}

	if defaults.LLMProvider != "" && !v.cfg.LLMProviderRegistry.Has(defaults.LLMProvider) {
		return NewValidationError("defaults", "", "llm_provider",
			fmt.Errorf("LLM provider '%s' not found", defaults.LLMProvider))
	}
	if defaults.MaxIterations != nil && *defaults.MaxIterations < 1 {
		return NewValidationError("defaults", "", "max_iterations", fmt.Errorf("must be at least 1"))
	}
	if defaults.RowCap < 0 {
		return NewValidationError("defaults", "", "row_cap", fmt.Errorf("must be non-negative"))
	}
	if defaults.QueryTimeoutSeconds < 0 {
		return NewValidationError("defaults", "", "query_timeout_seconds", fmt.Errorf("must be non-negative"))
	}
	if defaults.EnrichmentConfirmationThreshold < 0 {
		return NewValidationError("defaults", "", "enrichment_confirmation_threshold", fmt.Errorf("must be non-negative"))
	}

	return nil
}

func (v *Validator) validateMCPServers() error {
	for serverID, server := range v.cfg.MCPServerRegistry.GetAll() {
		if !server.Transport.Type.IsValid() {
			return NewValidationError("mcp_server", serverID, "transport.type", fmt.Errorf("invalid transport type: %s", server.Transport.Type))
		}

		switch server.Transport.Type {
		case TransportTypeStdio:
			if server.Transport.Command == "" {
				return NewValidationError("mcp_server", serverID, "transport.command", fmt.Errorf("command required for stdio transport"))
			}

		case TransportTypeHTTP, TransportTypeSSE:
			if server.Transport.URL == "" {
				return NewValidationError("mcp_server", serverID, "transport.url", fmt.Errorf("url required for %s transport", server.Transport.Type))
			}
		}

		if server.Summarization != nil && server.Summarization.Enabled {
			if server.Summarization.SizeThresholdTokens < 100 {
				return NewValidationError("mcp_server", serverID, "summarization.size_threshold_tokens", fmt.Errorf("must be at least 100"))
			}
			if server.Summarization.SummaryMaxTokenLimit > 0 && server.Summarization.SummaryMaxTokenLimit < 50 {
				return NewValidationError("mcp_server", serverID, "summarization.summary_max_token_limit", fmt.Errorf("must be at least 50 if specified"))
			}
		}
	}

	return nil
}

func (v *Validator) validateLLMProviders() error {
	for name, provider := range v.cfg.LLMProviderRegistry.GetAll() {
		if !provider.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", fmt.Errorf("invalid provider type: %s", provider.Type))
		}
		if provider.Model == "" {
			return NewValidationError("llm_provider", name, "model", fmt.Errorf("model required"))
		}
		if provider.APIKeyEnv != "" && name == v.cfg.Defaults.LLMProvider {
			if value := os.Getenv(provider.APIKeyEnv); value == "" {
				return NewValidationError("llm_provider", name, "api_key_env", fmt.Errorf("environment variable %s is not set", provider.APIKeyEnv))
			}
		}
		if provider.MaxToolResultTokens < 1000 {
			return NewValidationError("llm_provider", name, "max_tool_result_tokens", fmt.Errorf("must be at least 1000"))
		}
		if provider.Type == LLMProviderTypeGoogle && provider.NativeTools != nil {
			for tool := range provider.NativeTools {
				if !tool.IsValid() {
					return NewValidationError("llm_provider", name, "native_tools", fmt.Errorf("invalid native tool: %s", tool))
				}
			}
		}
	}

	return nil
}

// validateAllowlist ensures the Query Guard (§4.A) has at least one
// reachable table — an empty allow-list would make every query guard
// rejection, which is never an intentional deployment state.
func (v *Validator) validateAllowlist() error {
	if v.cfg.Allowlist == nil || v.cfg.Allowlist.Len() == 0 {
		return NewValidationError("allowlist", "", "tables", fmt.Errorf("at least one table must be allow-listed"))
	}
	return nil
}

// validateRemap ensures the Field Remapper's (§4.B) tables stay internally
// consistent across a merge, not just as authored.
func (v *Validator) validateRemap() error {
	if v.cfg.Remap == nil {
		return NewValidationError("remap", "", "", fmt.Errorf("remap configuration is nil"))
	}
	return v.cfg.Remap.Validate()
}

func (v *Validator) validateWarehouse() error {
	w := v.cfg.Warehouse
	if w == nil {
		return NewValidationError("warehouse", "", "", fmt.Errorf("warehouse configuration is nil"))
	}
	if w.MaxOpenConns < 1 {
		return NewValidationError("warehouse", "", "max_open_conns", fmt.Errorf("must be at least 1"))
	}
	if w.MaxIdleConns < 0 || w.MaxIdleConns > w.MaxOpenConns {
		return NewValidationError("warehouse", "", "max_idle_conns", fmt.Errorf("must be between 0 and max_open_conns"))
	}
	if w.ConnMaxLifetime <= 0 {
		return NewValidationError("warehouse", "", "conn_max_lifetime", fmt.Errorf("must be positive"))
	}
	return nil
}

func (v *Validator) validateEnrichment() error {
	e := v.cfg.Enrichment
	if e == nil {
		return NewValidationError("enrichment", "", "", fmt.Errorf("enrichment configuration is nil"))
	}
	if e.CostPerEnrichment <= 0 {
		return NewValidationError("enrichment", "", "cost_per_enrichment", fmt.Errorf("must be positive"))
	}
	if e.DailyBudgetLimit <= 0 {
		return NewValidationError("enrichment", "", "daily_budget_limit", fmt.Errorf("must be positive"))
	}
	if e.RequireConfirmationOver <= 0 || e.RequireConfirmationOver > e.DailyBudgetLimit {
		return NewValidationError("enrichment", "", "require_confirmation_over", fmt.Errorf("must be positive and at most daily_budget_limit"))
	}
	if e.StalenessWindow <= 0 {
		return NewValidationError("enrichment", "", "staleness_window", fmt.Errorf("must be positive"))
	}
	if e.BatchCap < 1 {
		return NewValidationError("enrichment", "", "batch_cap", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func (v *Validator) validateCampaign() error {
	c := v.cfg.Campaign
	if c == nil {
		return NewValidationError("campaign", "", "", fmt.Errorf("campaign configuration is nil"))
	}
	if c.BatchSize < 1 {
		return NewValidationError("campaign", "", "batch_size", fmt.Errorf("must be at least 1"))
	}
	if c.RecipientCap < 1 {
		return NewValidationError("campaign", "", "recipient_cap", fmt.Errorf("must be at least 1"))
	}
	if c.BatchSize > c.RecipientCap {
		return NewValidationError("campaign", "", "batch_size", fmt.Errorf("must not exceed recipient_cap"))
	}
	return nil
}

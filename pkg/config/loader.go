package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// GatewayYAMLConfig represents the complete gateway.yaml file structure.
type GatewayYAMLConfig struct {
	System     *SystemYAMLConfig          `yaml:"system"`
	MCPServers map[string]MCPServerConfig `yaml:"mcp_servers"`
	Defaults   *Defaults                  `yaml:"defaults"`
	Queue      *QueueConfig               `yaml:"queue"`
	Allowlist  *AllowlistConfig           `yaml:"allowlist"`
	Remap      *RemapConfig               `yaml:"remap"`
}

// SystemYAMLConfig groups system-wide infrastructure settings.
type SystemYAMLConfig struct {
	CORS       *CORSYAMLConfig  `yaml:"cors"`
	Retention  *RetentionConfig `yaml:"retention"`
	Warehouse  *WarehouseConfig `yaml:"warehouse"`
	Enrichment *EnrichmentConfig `yaml:"enrichment"`
	Campaign   *CampaignConfig  `yaml:"campaign"`
}

// CORSYAMLConfig holds HTTP CORS settings from YAML.
type CORSYAMLConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined configurations
//  5. Apply MCP server defaults (e.g. size_threshold_tokens)
//  6. Build in-memory registries
//  7. Apply default values
//  8. Validate all configuration
//  9. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"mcp_servers", stats.MCPServers,
		"llm_providers", stats.LLMProviders,
		"allowlist_tables", stats.AllowlistTables)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	gatewayConfig, err := loader.loadGatewayYAML()
	if err != nil {
		return nil, NewLoadError("gateway.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()

	mcpServers := mergeMCPServers(builtin.MCPServers, gatewayConfig.MCPServers)
	llmProvidersMerged := mergeLLMProviders(builtin.LLMProviders, llmProviders)

	userAllowlist := AllowlistConfig{}
	if gatewayConfig.Allowlist != nil {
		userAllowlist = *gatewayConfig.Allowlist
	}
	allowlist := mergeAllowlist(builtin.Allowlist, userAllowlist)

	userRemap := RemapConfig{}
	if gatewayConfig.Remap != nil {
		userRemap = *gatewayConfig.Remap
	}
	remap := mergeRemap(builtin.Remap, userRemap)
	if err := remap.Validate(); err != nil {
		return nil, err
	}

	for _, server := range mcpServers {
		if server.Summarization != nil && server.Summarization.Enabled && server.Summarization.SizeThresholdTokens == 0 {
			server.Summarization.SizeThresholdTokens = DefaultSizeThresholdTokens
		}
	}

	mcpServerRegistry := NewMCPServerRegistry(mcpServers)
	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)
	allowlistRegistry := NewAllowlistRegistry(allowlist.Tables)

	defaults := gatewayConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.LLMProvider == "" {
		defaults.LLMProvider = "gemini-default"
	}
	if defaults.ModelID == "" {
		defaults.ModelID = "gemini-2.5-flash"
	}
	if defaults.MaxOutputTokens == 0 {
		defaults.MaxOutputTokens = 4096
	}
	if defaults.RowCap == 0 {
		defaults.RowCap = 1000
	}
	if defaults.QueryTimeoutSeconds == 0 {
		defaults.QueryTimeoutSeconds = 30
	}
	if defaults.EnrichmentConfirmationThreshold == 0 {
		defaults.EnrichmentConfirmationThreshold = DefaultEnrichmentConfig().RequireConfirmationOver
	}

	queueConfig := DefaultQueueConfig()
	if gatewayConfig.Queue != nil {
		if err := mergo.Merge(queueConfig, gatewayConfig.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}

	corsCfg := resolveCORSConfig(gatewayConfig.System)
	retentionCfg := resolveRetentionConfig(gatewayConfig.System)
	warehouseCfg := resolveWarehouseConfig(gatewayConfig.System)
	enrichmentCfg := resolveEnrichmentConfig(gatewayConfig.System)
	campaignCfg := resolveCampaignConfig(gatewayConfig.System)

	return &Config{
		configDir:           configDir,
		Defaults:            defaults,
		Queue:               queueConfig,
		Retention:           retentionCfg,
		Warehouse:           warehouseCfg,
		Enrichment:          enrichmentCfg,
		Campaign:            campaignCfg,
		CORS:                corsCfg,
		MCPServerRegistry:   mcpServerRegistry,
		LLMProviderRegistry: llmProviderRegistry,
		Allowlist:           allowlistRegistry,
		Remap:               &remap,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadGatewayYAML() (*GatewayYAMLConfig, error) {
	var cfg GatewayYAMLConfig
	cfg.MCPServers = make(map[string]MCPServerConfig)

	if err := l.loadYAML("gateway.yaml", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var cfg LLMProvidersYAMLConfig
	cfg.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &cfg); err != nil {
		return nil, err
	}

	return cfg.LLMProviders, nil
}

// resolveCORSConfig resolves HTTP CORS configuration from system YAML.
func resolveCORSConfig(sys *SystemYAMLConfig) *CORSConfig {
	cfg := &CORSConfig{}
	if sys != nil && sys.CORS != nil {
		cfg.AllowedOrigins = sys.CORS.AllowedOrigins
	}
	return cfg
}

// resolveRetentionConfig resolves retention configuration from system YAML, applying defaults.
func resolveRetentionConfig(sys *SystemYAMLConfig) *RetentionConfig {
	cfg := DefaultRetentionConfig()
	if sys == nil || sys.Retention == nil {
		return cfg
	}

	r := sys.Retention
	if r.SessionRetentionDays > 0 {
		cfg.SessionRetentionDays = r.SessionRetentionDays
	}
	if r.MessageRetention > 0 {
		cfg.MessageRetention = r.MessageRetention
	}
	if r.RecentlyDeletedWindow > 0 {
		cfg.RecentlyDeletedWindow = r.RecentlyDeletedWindow
	}
	if r.CleanupInterval > 0 {
		cfg.CleanupInterval = r.CleanupInterval
	}

	return cfg
}

// resolveWarehouseConfig resolves warehouse connection configuration from
// system YAML, applying defaults.
func resolveWarehouseConfig(sys *SystemYAMLConfig) *WarehouseConfig {
	cfg := DefaultWarehouseConfig()
	if sys == nil || sys.Warehouse == nil {
		return cfg
	}

	w := sys.Warehouse
	if w.Account != "" {
		cfg.Account = w.Account
	}
	if w.Database != "" {
		cfg.Database = w.Database
	}
	if w.Schema != "" {
		cfg.Schema = w.Schema
	}
	if w.Warehouse != "" {
		cfg.Warehouse = w.Warehouse
	}
	if w.RoleEnv != "" {
		cfg.RoleEnv = w.RoleEnv
	}
	if w.QueryTagPrefix != "" {
		cfg.QueryTagPrefix = w.QueryTagPrefix
	}
	if w.MaxOpenConns > 0 {
		cfg.MaxOpenConns = w.MaxOpenConns
	}
	if w.MaxIdleConns > 0 {
		cfg.MaxIdleConns = w.MaxIdleConns
	}
	if w.ConnMaxLifetime > 0 {
		cfg.ConnMaxLifetime = w.ConnMaxLifetime
	}

	return cfg
}

// resolveEnrichmentConfig resolves enrichment coordinator configuration
// from system YAML, applying defaults.
func resolveEnrichmentConfig(sys *SystemYAMLConfig) *EnrichmentConfig {
	cfg := DefaultEnrichmentConfig()
	if sys == nil || sys.Enrichment == nil {
		return cfg
	}

	e := sys.Enrichment
	if e.CostPerEnrichment > 0 {
		cfg.CostPerEnrichment = e.CostPerEnrichment
	}
	if e.DailyBudgetLimit > 0 {
		cfg.DailyBudgetLimit = e.DailyBudgetLimit
	}
	if e.RequireConfirmationOver > 0 {
		cfg.RequireConfirmationOver = e.RequireConfirmationOver
	}
	if e.StalenessWindow > 0 {
		cfg.StalenessWindow = e.StalenessWindow
	}
	if e.BatchCap > 0 {
		cfg.BatchCap = e.BatchCap
	}
	if e.ProviderBaseURL != "" {
		cfg.ProviderBaseURL = e.ProviderBaseURL
	}
	if e.APIKeyEnv != "" {
		cfg.APIKeyEnv = e.APIKeyEnv
	}

	return cfg
}

// resolveCampaignConfig resolves campaign engine configuration from system
// YAML, applying defaults.
func resolveCampaignConfig(sys *SystemYAMLConfig) *CampaignConfig {
	cfg := DefaultCampaignConfig()
	if sys == nil || sys.Campaign == nil {
		return cfg
	}

	c := sys.Campaign
	if c.BatchSize > 0 {
		cfg.BatchSize = c.BatchSize
	}
	if c.RecipientCap > 0 {
		cfg.RecipientCap = c.RecipientCap
	}
	if c.FromAddressEnv != "" {
		cfg.FromAddressEnv = c.FromAddressEnv
	}
	if c.DocumentBaseURL != "" {
		cfg.DocumentBaseURL = c.DocumentBaseURL
	}
	if c.WebhookPathToken != "" {
		cfg.WebhookPathToken = c.WebhookPathToken
	}

	return cfg
}

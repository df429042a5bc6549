package config

import (
	"sync"
)

// BuiltinConfig holds all built-in configuration data: the default MCP tool
// servers, LLM providers, allow-list, and field mappings shipped with the
// gateway. A deployment's YAML overlays on top of this via mergeMCPServers/
// mergeLLMProviders/mergeAllowlist/mergeRemap.
type BuiltinConfig struct {
	MCPServers   map[string]MCPServerConfig
	LLMProviders map[string]LLMProviderConfig
	Allowlist    AllowlistConfig
	Remap        RemapConfig
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration (thread-safe, lazy-initialized).
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		MCPServers:   initBuiltinMCPServers(),
		LLMProviders: initBuiltinLLMProviders(),
		Allowlist:    *DefaultAllowlistConfig(),
		Remap:        *DefaultRemapConfig(),
	}
}

// initBuiltinMCPServers returns the five tool servers the Agent Adapter
// (§4.G) registers by default: the warehouse, geocoding, web search,
// enrichment, and document servers named in §6's external interfaces.
func initBuiltinMCPServers() map[string]MCPServerConfig {
	return map[string]MCPServerConfig{
		"warehouse": {
			Transport: TransportConfig{
				Type:    TransportTypeStdio,
				Command: "gateway-mcp-warehouse",
				Timeout: 30,
			},
			Instructions: "Exposes warehouse_select for read-only SELECT queries against voter, " +
				"geocoded-address, and donation data. Every query passes through the Query Guard " +
				"and Field Remapper before execution; rejected queries return a guard_reject reason " +
				"instead of an error.",
			Summarization: &SummarizationConfig{
				Enabled:              true,
				SizeThresholdTokens:  4000,
				SummaryMaxTokenLimit: 800,
			},
		},
		"geocode": {
			Transport: TransportConfig{
				Type:    TransportTypeStdio,
				Command: "gateway-mcp-geocode",
				Timeout: 15,
			},
			Instructions: "Exposes geocode for forward/reverse address lookups backed by the " +
				"external geocoding provider named in the deployment's secrets.",
		},
		"websearch": {
			Transport: TransportConfig{
				Type:    TransportTypeStdio,
				Command: "gateway-mcp-websearch",
				Timeout: 20,
			},
			Instructions: "Exposes web_search for open-web lookups unrelated to warehouse data, " +
				"such as candidate biography or election-date questions.",
		},
		"enrichment": {
			Transport: TransportConfig{
				Type:    TransportTypeStdio,
				Command: "gateway-mcp-enrichment",
				Timeout: 30,
			},
			Instructions: "Exposes enrich_one and enrich_batch for third-party profile enrichment. " +
				"Batch calls above the configured confirmation threshold return " +
				"confirmation_required and must be retried with confirm=true.",
		},
		"documents": {
			Transport: TransportConfig{
				Type:    TransportTypeStdio,
				Command: "gateway-mcp-documents",
				Timeout: 15,
			},
			Instructions: "Exposes doc_create, doc_get, doc_update, and doc_list against the " +
				"user-delegated document service used as campaign email bodies.",
		},
	}
}

// initBuiltinLLMProviders returns the default Gemini provider used unless a
// deployment's gateway.yaml overrides it.
func initBuiltinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"gemini-default": {
			Type:                LLMProviderTypeGoogle,
			Model:               "gemini-2.5-flash",
			APIKeyEnv:           "GEMINI_API_KEY",
			MaxToolResultTokens: 8000,
		},
	}
}

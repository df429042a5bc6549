package config

// Defaults contains system-wide default configurations applied when a
// session or saved query doesn't override them.
type Defaults struct {
	// LLMProvider names the entry in the LLMProviderRegistry used when a
	// session doesn't pick one explicitly.
	LLMProvider string `yaml:"llm_provider,omitempty"`

	// ModelID is the model identifier recorded on a new Session (§3) when
	// the caller doesn't request one.
	ModelID string `yaml:"model_id,omitempty"`

	// MaxOutputTokens caps a single assistant turn's generation length.
	MaxOutputTokens int `yaml:"max_output_tokens,omitempty" validate:"omitempty,min=1"`

	// MaxIterations bounds the Agent Adapter's tool-call loop (§4.G) before
	// it's forced to conclude with whatever text it has produced.
	MaxIterations *int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`

	// RowCap is the default maximum rows the Query Executor (§4.C) returns
	// from a single SELECT before truncating.
	RowCap int `yaml:"row_cap,omitempty" validate:"omitempty,min=1"`

	// QueryTimeoutSeconds bounds how long the Query Executor waits on the
	// warehouse before returning a Timeout error kind (§7).
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds,omitempty" validate:"omitempty,min=1"`

	// EnrichmentConfirmationThreshold is the dollar amount above which a
	// batch enrichment request requires explicit confirmation (§4.H),
	// mirrored here so it can be overridden per deployment.
	EnrichmentConfirmationThreshold float64 `yaml:"enrichment_confirmation_threshold,omitempty"`
}

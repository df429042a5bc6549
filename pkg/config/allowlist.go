package config

import (
	"fmt"
	"strings"
	"sync"
)

// AllowlistConfig lists the fully-qualified tables the Query Guard (§4.A)
// permits a SELECT to reference. Comparison is case-insensitive, matching
// tables_within_allowlist in the system this gateway distills.
type AllowlistConfig struct {
	Tables []string `yaml:"tables"`
}

// AllowlistRegistry is a thread-safe, case-folded lookup over the
// configured table allow-list.
type AllowlistRegistry struct {
	mu     sync.RWMutex
	tables map[string]struct{}
}

func normalizeTableKey(table string) string {
	return strings.ToLower(table)
}

// NewAllowlistRegistry builds a registry from a table list, case-folding
// every entry once up front so lookups never allocate.
func NewAllowlistRegistry(tables []string) *AllowlistRegistry {
	set := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		set[strings.ToLower(t)] = struct{}{}
	}
	return &AllowlistRegistry{tables: set}
}

// Allows reports whether a fully-qualified table reference is permitted.
func (r *AllowlistRegistry) Allows(table string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tables[strings.ToLower(table)]
	return ok
}

// Len returns the number of allow-listed tables.
func (r *AllowlistRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// DefaultAllowlistConfig returns the built-in allow-list, grounded on the
// voter/geocode/donation tables named in the warehouse schema this gateway
// queries.
func DefaultAllowlistConfig() *AllowlistConfig {
	return &AllowlistConfig{
		Tables: []string{
			"voters.public.voter_file",
			"voters.public.geocoded_addresses",
			"voters.public.donations",
			"voters.public.enrichment_view",
		},
	}
}

// RemapConfig holds the Field Remapper's (§4.B) identifier and literal
// rewrite tables, plus the set of tables excluded from remapping (because
// they already use the public names — the enrichment view, in the system
// this gateway distills).
type RemapConfig struct {
	IdentifierMap    map[string]string `yaml:"identifier_map"`
	LiteralMap       map[string]string `yaml:"literal_map"`
	ExcludedContexts []string          `yaml:"excluded_contexts"`
}

// DefaultRemapConfig returns the built-in field mapping table, lifted
// verbatim from the FIELD_MAPPINGS table in the system this gateway
// distills.
func DefaultRemapConfig() *RemapConfig {
	return &RemapConfig{
		IdentifierMap: map[string]string{
			"party":           "demo_party",
			"voter_id":        "id",
			"address":         "addr_residential_line1",
			"city":            "addr_residential_city",
			"zip":             "addr_residential_zip_code",
			"first_name":      "name_first",
			"last_name":       "name_last",
			"birth_date":      "demo_birth_date",
			"gender":          "demo_gender",
			"race":            "demo_race",
			"registration_id": "voter_registration_number",
		},
		LiteralMap: map[string]string{
			"Democratic":  "DEMOCRAT",
			"Democrats":   "DEMOCRAT",
			"Democrat":    "DEMOCRAT",
			"Republicans": "REPUBLICAN",
			"Republican":  "REPUBLICAN",
			"Independent": "UNAFFILIATED",
			"NJ-07":       "NJ CONGRESSIONAL DISTRICT 07",
			"NJ-7":        "NJ CONGRESSIONAL DISTRICT 07",
			"NJ07":        "NJ CONGRESSIONAL DISTRICT 07",
			"District 7":  "NJ CONGRESSIONAL DISTRICT 07",
		},
		ExcludedContexts: []string{"voters.public.enrichment_view"},
	}
}

// Validate reports a config error if the remap table is internally
// inconsistent (an identifier mapped to itself is always a mistake, not a
// no-op the caller intended).
func (c *RemapConfig) Validate() error {
	for from, to := range c.IdentifierMap {
		if strings.EqualFold(from, to) {
			return fmt.Errorf("%w: identifier %q maps to itself", ErrInvalidValue, from)
		}
	}
	return nil
}

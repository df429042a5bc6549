// Package queryguard implements the syntactic and semantic gate every
// warehouse-bound SQL statement must pass before it reaches the executor
// or is persisted as a saved query: SELECT-only, no forbidden keywords,
// and every fully-qualified table reference allow-listed.
package queryguard

import (
	"regexp"
	"strings"

	"github.com/njvoter/gateway/pkg/config"
)

// RejectReason classifies why a statement was rejected.
type RejectReason string

const (
	NotSelect        RejectReason = "not_select"
	ForbiddenKeyword RejectReason = "forbidden_keyword"
	OffAllowlist     RejectReason = "off_allowlist"
)

// Result is the outcome of Validate.
type Result struct {
	OK             bool
	EffectiveSQL   string
	RejectedReason RejectReason
	Detail         string
}

var (
	selectPrefix = regexp.MustCompile(`(?is)^\s*(?:--[^\n]*\n\s*|/\*.*?\*/\s*)*select\b`)

	// tableRefPattern matches <project>.<dataset>.<table>, optionally
	// back-tick quoted, with identifiers drawn from the charset the
	// warehouse accepts for unquoted object names.
	tableRefPattern = regexp.MustCompile("(?i)`?([a-z0-9_-]+)\\.([a-z0-9_-]+)\\.([a-z0-9_-]+)`?")

	forbiddenKeywordNames = []string{
		"INSERT", "UPDATE", "DELETE", "MERGE", "CREATE",
		"ALTER", "DROP", "TRUNCATE", "REPLACE",
	}

	forbiddenKeywordPatterns = compileForbiddenKeywords(forbiddenKeywordNames)
)

func compileForbiddenKeywords(names []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(names))
	for _, name := range names {
		patterns[name] = regexp.MustCompile(`(?i)\b` + name + `\b`)
	}
	return patterns
}

// Guard validates SQL against the configured table allow-list.
type Guard struct {
	allowlist *config.AllowlistRegistry
}

// New creates a Guard backed by the given allow-list registry.
func New(allowlist *config.AllowlistRegistry) *Guard {
	return &Guard{allowlist: allowlist}
}

// Validate checks sql for SELECT-only shape, forbidden keywords, and
// allow-listed table references. It never mutates sql; EffectiveSQL on a
// successful result is the input unchanged (remapping is a separate
// concern, see pkg/remap).
func (g *Guard) Validate(sql string) Result {
	if !selectPrefix.MatchString(sql) {
		return Result{RejectedReason: NotSelect, Detail: "statement must begin with SELECT"}
	}

	for _, kw := range forbiddenKeywordNames {
		if forbiddenKeywordPatterns[kw].MatchString(sql) {
			return Result{
				RejectedReason: ForbiddenKeyword,
				Detail:         "statement contains forbidden keyword: " + kw,
			}
		}
	}

	refs := extractTableRefs(sql)
	var illegal []string
	for _, ref := range refs {
		if !g.allowlist.Allows(ref) {
			illegal = append(illegal, ref)
		}
	}
	if len(illegal) > 0 {
		return Result{
			RejectedReason: OffAllowlist,
			Detail:         "statement references non-allowlisted tables: " + strings.Join(illegal, ", "),
		}
	}

	return Result{OK: true, EffectiveSQL: sql}
}

// extractTableRefs returns the deduplicated, lower-cased set of
// fully-qualified table references found in sql. A statement with no
// extracted references yields an empty slice — the guard is a tokenizer,
// not a parser, and defers malformed SQL to the warehouse.
func extractTableRefs(sql string) []string {
	matches := tableRefPattern.FindAllStringSubmatch(sql, -1)
	seen := make(map[string]struct{}, len(matches))
	var refs []string
	for _, m := range matches {
		ref := strings.ToLower(m[1] + "." + m[2] + "." + m[3])
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

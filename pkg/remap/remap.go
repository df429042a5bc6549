// Package remap implements the Field Remapper: a best-effort, pure
// rewrite of ergonomic identifiers and literal values into the
// warehouse's canonical schema, applied after the Query Guard accepts a
// statement and before it reaches the executor.
package remap

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/njvoter/gateway/pkg/config"
)

// Result carries both SQL forms, matching the Executor's requirement to
// record original_sql and effective_sql.
type Result struct {
	OriginalSQL  string
	EffectiveSQL string
}

// Remapper rewrites identifiers and literals according to a RemapConfig.
type Remapper struct {
	cfg *config.RemapConfig

	mu               sync.Mutex
	identifierRegexp map[string]*regexp.Regexp
	literalRegexp    map[string]*regexp.Regexp
	excluded         map[string]struct{}
}

// New creates a Remapper from cfg. Patterns are compiled lazily on first
// use and cached, since a config reload is rare relative to query volume.
func New(cfg *config.RemapConfig) *Remapper {
	excluded := make(map[string]struct{}, len(cfg.ExcludedContexts))
	for _, ctx := range cfg.ExcludedContexts {
		excluded[strings.ToLower(ctx)] = struct{}{}
	}
	return &Remapper{
		cfg:              cfg,
		identifierRegexp: make(map[string]*regexp.Regexp, len(cfg.IdentifierMap)),
		literalRegexp:    make(map[string]*regexp.Regexp, len(cfg.LiteralMap)),
		excluded:         excluded,
	}
}

// Apply rewrites sql per the configured identifier and literal maps,
// suppressing identifier substitutions when sql references a protected
// context (§4.B rule 3).
func (r *Remapper) Apply(sql string) Result {
	out := sql

	if !r.referencesExcludedContext(sql) {
		out = r.applyIdentifiers(out)
	}
	out = r.applyLiterals(out)

	return Result{OriginalSQL: sql, EffectiveSQL: out}
}

func (r *Remapper) referencesExcludedContext(sql string) bool {
	lowered := strings.ToLower(sql)
	for ctx := range r.excluded {
		if strings.Contains(lowered, ctx) {
			return true
		}
	}
	return false
}

// applyIdentifiers substitutes mapped identifiers outside of single-quoted
// string literals. A bare whole-sql regex would also rewrite an identifier
// token that happens to appear inside literal text (e.g. a free-text note
// containing the word "party"); splitting on literal spans first keeps
// identifier substitution scoped to statement syntax, per §4.B rule 2.
func (r *Remapper) applyIdentifiers(sql string) string {
	var b strings.Builder
	for _, seg := range splitLiteralSpans(sql) {
		if seg.literal {
			b.WriteString(seg.text)
			continue
		}
		out := seg.text
		for from, to := range r.cfg.IdentifierMap {
			out = r.identifierPattern(from).ReplaceAllString(out, to)
		}
		b.WriteString(out)
	}
	return b.String()
}

// span is a contiguous slice of a SQL string, marked literal when it falls
// inside single quotes (inclusive of the quotes themselves).
type span struct {
	text    string
	literal bool
}

var literalSpanPattern = regexp.MustCompile(`'(?:[^']|'')*'`)

// splitLiteralSpans breaks sql into alternating non-literal/literal spans,
// treating doubled single quotes as an escaped quote within a literal
// rather than a literal boundary.
func splitLiteralSpans(sql string) []span {
	matches := literalSpanPattern.FindAllStringIndex(sql, -1)
	if matches == nil {
		return []span{{text: sql}}
	}

	spans := make([]span, 0, len(matches)*2+1)
	prev := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > prev {
			spans = append(spans, span{text: sql[prev:start]})
		}
		spans = append(spans, span{text: sql[start:end], literal: true})
		prev = end
	}
	if prev < len(sql) {
		spans = append(spans, span{text: sql[prev:]})
	}
	return spans
}

func (r *Remapper) applyLiterals(sql string) string {
	out := sql
	for from, to := range r.cfg.LiteralMap {
		out = r.literalPattern(from).ReplaceAllString(out, "'"+to+"'")
	}
	return out
}

// identifierPattern matches name as a whole token, case-insensitive. Callers
// apply it only to non-literal spans (see splitLiteralSpans).
func (r *Remapper) identifierPattern(name string) *regexp.Regexp {
	r.mu.Lock()
	defer r.mu.Unlock()
	if re, ok := r.identifierRegexp[name]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
	r.identifierRegexp[name] = re
	return re
}

// literalPattern matches name's value inside single quotes, case-insensitive.
func (r *Remapper) literalPattern(value string) *regexp.Regexp {
	r.mu.Lock()
	defer r.mu.Unlock()
	if re, ok := r.literalRegexp[value]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)'` + regexp.QuoteMeta(value) + `'`)
	r.literalRegexp[value] = re
	return re
}

// Describe renders a human-readable summary of the active maps, used by
// diagnostics endpoints and tests.
func (r *Remapper) Describe() string {
	return fmt.Sprintf("identifiers=%d literals=%d excluded_contexts=%d",
		len(r.cfg.IdentifierMap), len(r.cfg.LiteralMap), len(r.excluded))
}

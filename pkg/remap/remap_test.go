package remap

import (
	"testing"

	"github.com/njvoter/gateway/pkg/config"
	"github.com/stretchr/testify/assert"
)

func testRemapper() *Remapper {
	return New(config.DefaultRemapConfig())
}

func TestRemapper_Apply_IdentifierSubstitution(t *testing.T) {
	r := testRemapper()

	result := r.Apply("SELECT COUNT(*) FROM voters.public.voter_file WHERE party = 'Republican'")

	assert.Contains(t, result.EffectiveSQL, "demo_party")
	assert.Contains(t, result.EffectiveSQL, "'REPUBLICAN'")
	assert.Equal(t, "SELECT COUNT(*) FROM voters.public.voter_file WHERE party = 'Republican'", result.OriginalSQL)
}

func TestRemapper_Apply_DistrictLiteral(t *testing.T) {
	r := testRemapper()

	result := r.Apply("SELECT * FROM voters.public.voter_file WHERE congressional_district = 'NJ-07'")

	assert.Contains(t, result.EffectiveSQL, "'NJ CONGRESSIONAL DISTRICT 07'")
}

func TestRemapper_Apply_WholeWordOnly(t *testing.T) {
	r := testRemapper()

	// "party_favor" must not become "demo_party_favor"
	result := r.Apply("SELECT party_favor FROM voters.public.voter_file")

	assert.Equal(t, "SELECT party_favor FROM voters.public.voter_file", result.EffectiveSQL)
}

func TestRemapper_Apply_ExcludedContextSuppressesIdentifiers(t *testing.T) {
	r := testRemapper()

	result := r.Apply("SELECT first_name FROM voters.public.enrichment_view")

	assert.Contains(t, result.EffectiveSQL, "first_name")
	assert.NotContains(t, result.EffectiveSQL, "name_first")
}

func TestRemapper_Apply_LiteralStillAppliesInExcludedContext(t *testing.T) {
	r := testRemapper()

	result := r.Apply("SELECT * FROM voters.public.enrichment_view WHERE party = 'Democrat'")

	assert.Contains(t, result.EffectiveSQL, "party")
	assert.Contains(t, result.EffectiveSQL, "'DEMOCRAT'")
}

func TestRemapper_Apply_CaseInsensitiveIdentifier(t *testing.T) {
	r := testRemapper()

	result := r.Apply("SELECT VOTER_ID FROM voters.public.voter_file")

	assert.Contains(t, result.EffectiveSQL, "id")
}

func TestRemapper_Apply_IdentifierNotSubstitutedInsideLiteral(t *testing.T) {
	r := testRemapper()

	result := r.Apply("SELECT * FROM voters.public.voter_file WHERE note = 'party bus rental'")

	assert.Contains(t, result.EffectiveSQL, "'party bus rental'")
	assert.NotContains(t, result.EffectiveSQL, "demo_party")
}

func TestRemapper_Apply_IdentifierSubstitutedOutsideLiteralEvenWhenNameRecursInsideOne(t *testing.T) {
	r := testRemapper()

	result := r.Apply("SELECT party FROM voters.public.voter_file WHERE note = 'party bus rental'")

	assert.Contains(t, result.EffectiveSQL, "demo_party")
	assert.Contains(t, result.EffectiveSQL, "'party bus rental'")
}

func TestRemapper_Describe(t *testing.T) {
	r := testRemapper()

	assert.Contains(t, r.Describe(), "identifiers=")
}

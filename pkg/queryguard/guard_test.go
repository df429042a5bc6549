package queryguard

import (
	"testing"

	"github.com/njvoter/gateway/pkg/config"
	"github.com/stretchr/testify/assert"
)

func testGuard() *Guard {
	return New(config.NewAllowlistRegistry([]string{
		"voters.public.voter_file",
		"voters.public.donations",
	}))
}

func TestGuard_Validate_Accepts(t *testing.T) {
	g := testGuard()

	result := g.Validate("SELECT id, name_first FROM voters.public.voter_file WHERE county_name = 'ESSEX'")

	assert.True(t, result.OK)
	assert.Empty(t, result.RejectedReason)
}

func TestGuard_Validate_AcceptsLeadingCommentsAndWhitespace(t *testing.T) {
	g := testGuard()

	result := g.Validate("  -- pull registered voters\n  SELECT id FROM voters.public.voter_file")

	assert.True(t, result.OK)
}

func TestGuard_Validate_NoTableRefsIsPermitted(t *testing.T) {
	g := testGuard()

	result := g.Validate("SELECT 1")

	assert.True(t, result.OK)
}

func TestGuard_Validate_RejectsNonSelect(t *testing.T) {
	g := testGuard()

	tests := []string{
		"UPDATE voters.public.voter_file SET id = 1",
		"insert into voters.public.voter_file values (1)",
		"",
	}

	for _, sql := range tests {
		result := g.Validate(sql)
		assert.False(t, result.OK)
		assert.Equal(t, NotSelect, result.RejectedReason)
	}
}

func TestGuard_Validate_RejectsForbiddenKeyword(t *testing.T) {
	g := testGuard()

	result := g.Validate("SELECT * FROM voters.public.voter_file; DROP TABLE voters.public.voter_file")

	assert.False(t, result.OK)
	assert.Equal(t, ForbiddenKeyword, result.RejectedReason)
}

func TestGuard_Validate_RejectsOffAllowlist(t *testing.T) {
	g := testGuard()

	result := g.Validate("SELECT * FROM voters.public.secret_table")

	assert.False(t, result.OK)
	assert.Equal(t, OffAllowlist, result.RejectedReason)
	assert.Contains(t, result.Detail, "voters.public.secret_table")
}

func TestGuard_Validate_BacktickQuotedReference(t *testing.T) {
	g := testGuard()

	result := g.Validate("SELECT * FROM `voters.public.voter_file`")

	assert.True(t, result.OK)
}

func TestGuard_Validate_CaseInsensitiveAllowlist(t *testing.T) {
	g := testGuard()

	result := g.Validate("SELECT * FROM VOTERS.PUBLIC.VOTER_FILE")

	assert.True(t, result.OK)
}

func TestExtractTableRefs_Dedup(t *testing.T) {
	refs := extractTableRefs(`SELECT a.id FROM voters.public.voter_file a
		JOIN voters.public.voter_file b ON a.id = b.id
		JOIN voters.public.donations d ON a.id = d.id`)

	assert.ElementsMatch(t, []string{"voters.public.voter_file", "voters.public.donations"}, refs)
}

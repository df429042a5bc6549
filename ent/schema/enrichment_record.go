package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// EnrichmentRecord holds the schema definition for a third-party profile
// bound to a warehouse person_id (SPEC_FULL.md §3/§4.H). Multiple rows per
// person_id are retained for audit; "fresh" is computed at read time from
// enriched_at against the configured staleness window.
type EnrichmentRecord struct {
	ent.Schema
}

// Fields of the EnrichmentRecord.
func (EnrichmentRecord) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("record_id").
			Unique().
			Immutable(),
		field.String("person_id").
			Immutable(),
		field.String("provider_record_id"),
		field.Float("match_likelihood").
			Comment("In [0,10]"),
		field.JSON("payload", map[string]interface{}{}).
			Comment("Opaque structured blob from the provider"),

		field.Bool("has_email").Default(false),
		field.Bool("has_phone").Default(false),
		field.Bool("has_linkedin").Default(false),
		field.Bool("has_job").Default(false),
		field.Bool("has_education").Default(false),

		field.String("email").Optional().Nillable(),
		field.String("phone").Optional().Nillable(),
		field.String("job_title").Optional().Nillable(),
		field.String("employer").Optional().Nillable(),

		field.Time("enriched_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the EnrichmentRecord.
func (EnrichmentRecord) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("person_id", "enriched_at"),
	}
}

package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SavedQuery holds the schema definition for a reusable, re-executable
// SELECT definition scoped to its owning user (the "voter list" of
// SPEC_FULL.md §3, Result Artifact Store of §4.D).
type SavedQuery struct {
	ent.Schema
}

// Fields of the SavedQuery.
func (SavedQuery) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("list_id").
			Unique().
			Immutable(),
		field.String("owner_user_id").
			Immutable(),
		field.String("name"),
		field.Text("description").
			Optional().
			Nillable(),
		field.Text("sql_text").
			Comment("A SELECT accepted by the Query Guard"),
		field.Text("natural_language_prompt").
			Optional().
			Nillable(),
		field.Int("row_count").
			Optional().
			Nillable().
			Comment("Last observed; may be stale"),
		field.Bool("is_active").
			Default(true),
		field.Int("access_count").
			Default(0),
		field.Time("last_accessed_at").
			Optional().
			Nillable(),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}

// Edges of the SavedQuery.
func (SavedQuery) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("campaigns", Campaign.Type).
			Annotations(entsql.OnDelete(entsql.Restrict)),
	}
}

// Indexes of the SavedQuery.
func (SavedQuery) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("owner_user_id", "is_active", "updated_at"),
	}
}

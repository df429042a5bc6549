package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// ToolInteraction holds the schema definition for one MCP tool call made
// during a turn (warehouse_select, geocode, web_search, save_list,
// enrich_one, enrich_batch, doc_*). Kept for observability only.
type ToolInteraction struct {
	ent.Schema
}

// Fields of the ToolInteraction.
func (ToolInteraction) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("interaction_id").
			Unique().
			Immutable(),
		field.String("session_id").
			Immutable(),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),

		field.Enum("interaction_type").
			Values("tool_call", "tool_list"),
		field.String("server_name").
			Comment("e.g. 'warehouse', 'enrichment', 'documents'"),
		field.String("tool_name").
			Optional().
			Nillable(),

		field.JSON("tool_arguments", map[string]interface{}{}).
			Optional(),
		field.JSON("tool_result", map[string]interface{}{}).
			Optional(),
		field.JSON("available_tools", []interface{}{}).
			Optional().
			Comment("For tool_list type"),

		field.Int("duration_ms").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable(),
	}
}

// Edges of the ToolInteraction.
func (ToolInteraction) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("session", Session.Type).
			Ref("tool_interactions").
			Field("session_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the ToolInteraction.
func (ToolInteraction) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "created_at"),
	}
}

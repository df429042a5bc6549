package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LLMInteraction holds the schema definition for one model call made while
// handling a turn. Kept for observability (debug/trace surfaces); never
// read back into the live conversation — Message.tool_calls carries what
// the orchestrator needs to rebuild context.
type LLMInteraction struct {
	ent.Schema
}

// Fields of the LLMInteraction.
func (LLMInteraction) Fields() []ent.Field {
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

		field.String("model_name").
			Comment("e.g. 'gemini-2.5-flash', resolved model_id for the turn"),

		field.String("last_message_id").
			Optional().
			Nillable().
			Comment("User message that triggered this iteration"),

		field.JSON("llm_request", map[string]interface{}{}).
			Comment("Full request payload sent to the runtime"),
		field.JSON("llm_response", map[string]interface{}{}).
			Comment("Full normalized response payload"),
		field.Text("thinking_content").
			Optional().
			Nillable(),

		field.Int("input_tokens").
			Optional().
			Nillable(),
		field.Int("output_tokens").
			Optional().
			Nillable(),
		field.Int("duration_ms").
			Optional().
			Nillable(),
		field.String("error_message").
			Optional().
			Nillable().
			Comment("null = success"),
	}
}

// Edges of the LLMInteraction.
func (LLMInteraction) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("session", Session.Type).
			Ref("llm_interactions").
			Field("session_id").
			Unique().
			Required().
			Immutable(),
		edge.From("last_message", Message.Type).
			Ref("llm_interactions").
			Field("last_message_id").
			Unique(),
	}
}

// Indexes of the LLMInteraction.
func (LLMInteraction) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "created_at"),
	}
}

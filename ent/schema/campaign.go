package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Campaign holds the schema definition for an email send unit
// (SPEC_FULL.md §3/§4.I).
type Campaign struct {
	ent.Schema
}

// Fields of the Campaign.
func (Campaign) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("campaign_id").
			Unique().
			Immutable(),
		field.String("owner_user_id").
			Immutable(),
		field.String("list_id").
			Immutable().
			Comment("References SavedQuery by id, not by snapshot"),
		field.String("session_id").
			Optional().
			Nillable().
			Comment("Session that created this campaign, if any"),

		field.String("subject"),
		field.String("document_ref").
			Comment("External document service reference for the body"),

		field.Enum("status").
			Values("draft", "sending", "partial", "sent", "failed").
			Default("draft"),
		field.String("batch_id").
			Optional().
			Nillable().
			Comment("Set when dispatch begins"),

		field.Int("stat_total_recipients").Default(0),
		field.Int("stat_sent").Default(0),
		field.Int("stat_delivered").Default(0),
		field.Int("stat_opened").Default(0),
		field.Int("stat_clicked").Default(0),
		field.Int("stat_bounced").Default(0),
		field.Int("stat_unsubscribed").Default(0),
		field.Time("stat_last_updated").
			Optional().
			Nillable(),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.Time("sent_at").
			Optional().
			Nillable(),
	}
}

// Edges of the Campaign.
func (Campaign) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("saved_query", SavedQuery.Type).
			Ref("campaigns").
			Field("list_id").
			Unique().
			Required().
			Immutable(),
		edge.From("session", Session.Type).
			Ref("campaigns").
			Field("session_id").
			Unique(),
		edge.To("events", CampaignEvent.Type).
			Annotations(entsql.OnDelete(entsql.Cascade)),
	}
}

// Indexes of the Campaign.
func (Campaign) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("owner_user_id", "created_at"),
		index.Fields("status"),
	}
}

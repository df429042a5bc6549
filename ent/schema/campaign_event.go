package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// CampaignEvent holds the schema definition for an append-only
// provider-reported interaction record (SPEC_FULL.md §3/§4.I).
// Duplicates from the provider are idempotently ignored via the unique
// index on (campaign_id, person_id, event_type, provider_event_id).
type CampaignEvent struct {
	ent.Schema
}

// Fields of the CampaignEvent.
func (CampaignEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			StorageKey("event_id").
			Unique().
			Immutable(),
		field.String("campaign_id").
			Immutable(),
		field.String("person_id").
			Immutable(),
		field.Enum("event_type").
			Values("email_sent", "delivered", "opened", "clicked", "bounced", "unsubscribed").
			Immutable(),
		field.String("provider_event_id").
			Immutable().
			Comment("Provider's own event identifier, used for idempotency"),
		field.JSON("raw_payload", map[string]interface{}{}).
			Optional(),
		field.Time("occurred_at").
			Default(time.Now).
			Immutable(),
	}
}

// Edges of the CampaignEvent.
func (CampaignEvent) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("campaign", Campaign.Type).
			Ref("events").
			Field("campaign_id").
			Unique().
			Required().
			Immutable(),
	}
}

// Indexes of the CampaignEvent.
func (CampaignEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("campaign_id", "person_id", "event_type", "provider_event_id").
			Unique(),
	}
}

package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// EventPublisher broadcasts chat events to whichever replica holds the
// destination WebSocket connection, via pg_notify. Nothing published
// through EventPublisher is persisted — message_chunk/message_end frames
// are derived from the Chat Orchestrator's in-memory turn state, and a
// reconnecting client recovers via recover_message, not event replay.
type EventPublisher struct {
	db *sql.DB
}

// NewEventPublisher creates a new EventPublisher.
// The db parameter should be the *sql.DB from database.Client.DB().
func NewEventPublisher(db *sql.DB) *EventPublisher {
	return &EventPublisher{db: db}
}

// PublishSessionCreated notifies the session channel that a new session
// was created for this turn.
func (p *EventPublisher) PublishSessionCreated(ctx context.Context, sessionID string, payload SessionCreatedPayload) error {
	return p.publish(ctx, SessionChannel(sessionID), payload)
}

// PublishMessageConfirmed notifies the session channel that the user's
// message was accepted and assigned a message ID.
func (p *EventPublisher) PublishMessageConfirmed(ctx context.Context, sessionID string, payload MessageConfirmedPayload) error {
	return p.publish(ctx, SessionChannel(sessionID), payload)
}

// PublishMessageChunk notifies the session channel of one incremental
// slice of assistant output. High frequency; never persisted.
func (p *EventPublisher) PublishMessageChunk(ctx context.Context, sessionID string, payload MessageChunkPayload) error {
	return p.publish(ctx, SessionChannel(sessionID), payload)
}

// PublishMessageEnd notifies the session channel that a turn finished.
func (p *EventPublisher) PublishMessageEnd(ctx context.Context, sessionID string, payload MessageEndPayload) error {
	return p.publish(ctx, SessionChannel(sessionID), payload)
}

// PublishMessageRecovery replies to a recover_message request on the
// session channel.
func (p *EventPublisher) PublishMessageRecovery(ctx context.Context, sessionID string, payload MessageRecoveryPayload) error {
	return p.publish(ctx, SessionChannel(sessionID), payload)
}

// PublishSessionModelUpdated acknowledges update_session_model.
func (p *EventPublisher) PublishSessionModelUpdated(ctx context.Context, sessionID string, payload SessionModelUpdatedPayload) error {
	return p.publish(ctx, SessionChannel(sessionID), payload)
}

// PublishError reports a rejected or failed request on the session channel.
func (p *EventPublisher) PublishError(ctx context.Context, sessionID string, payload ErrorPayload) error {
	return p.publish(ctx, SessionChannel(sessionID), payload)
}

// publish marshals v and broadcasts it via pg_notify, truncating if the
// payload exceeds PostgreSQL's NOTIFY size limit.
func (p *EventPublisher) publish(ctx context.Context, channel string, v any) error {
	payloadJSON, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	notifyPayload, err := truncateIfNeeded(string(payloadJSON))
	if err != nil {
		return err
	}

	if _, err := p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", channel, notifyPayload); err != nil {
		return fmt.Errorf("pg_notify failed: %w", err)
	}
	return nil
}

// truncateIfNeeded returns the payload string as-is if it fits within
// PostgreSQL's 8000-byte NOTIFY limit, otherwise returns a minimal
// truncation envelope with only the routing fields a client needs to
// recognize that a frame was dropped.
func truncateIfNeeded(payloadStr string) (string, error) {
	if len(payloadStr) <= 7900 {
		return payloadStr, nil
	}
	return buildTruncatedPayload([]byte(payloadStr))
}

func buildTruncatedPayload(payloadBytes []byte) (string, error) {
	var routing struct {
		Type      string `json:"type"`
		MessageID string `json:"message_id"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(payloadBytes, &routing); err != nil {
		return "", fmt.Errorf("failed to extract routing fields for truncation: %w", err)
	}

	truncated := map[string]any{
		"type":       routing.Type,
		"message_id": routing.MessageID,
		"session_id": routing.SessionID,
		"truncated":  true,
	}
	truncBytes, err := json.Marshal(truncated)
	if err != nil {
		return "", fmt.Errorf("failed to marshal truncated payload: %w", err)
	}
	return string(truncBytes), nil
}

package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionChannel(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		want      string
	}{
		{name: "formats session channel correctly", sessionID: "abc-123", want: "session:abc-123"},
		{name: "handles UUID format", sessionID: "550e8400-e29b-41d4-a716-446655440000", want: "session:550e8400-e29b-41d4-a716-446655440000"},
		{name: "handles empty string", sessionID: "", want: "session:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionChannel(tt.sessionID))
		})
	}
}

func TestGlobalSessionsChannel(t *testing.T) {
	assert.Equal(t, "sessions", GlobalSessionsChannel)
}

func TestActionConstants(t *testing.T) {
	actions := []string{
		ActionSendMessage,
		ActionRecoverMessage,
		ActionUpdateSessionModel,
		ActionTypingStart,
		ActionTypingStop,
	}
	seen := make(map[string]bool)
	for _, a := range actions {
		assert.NotEmpty(t, a)
		assert.False(t, seen[a], "duplicate action: %s", a)
		seen[a] = true
	}
}

func TestTypeConstants(t *testing.T) {
	types := []string{
		TypeSessionCreated,
		TypeMessageConfirmed,
		TypeMessageChunk,
		TypeMessageEnd,
		TypeMessageRecovery,
		TypeSessionModelUpdated,
		TypeError,
	}
	seen := make(map[string]bool)
	for _, typ := range types {
		assert.NotEmpty(t, typ)
		assert.False(t, seen[typ], "duplicate type: %s", typ)
		seen[typ] = true
	}
}

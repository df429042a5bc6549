package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPayloadsCarrySessionID is a contract test between this package and
// any client: every payload broadcast on a session channel must carry a
// non-empty session_id in its JSON, since the client routes frames by it.
func TestPayloadsCarrySessionID(t *testing.T) {
	const sid = "sess-contract-test"

	tests := []struct {
		name    string
		payload any
	}{
		{"SessionCreatedPayload", SessionCreatedPayload{Type: TypeSessionCreated, SessionID: sid, ModelID: "gpt-5"}},
		{"MessageConfirmedPayload", MessageConfirmedPayload{Type: TypeMessageConfirmed, SessionID: sid, MessageID: "m1"}},
		{"SessionModelUpdatedPayload", SessionModelUpdatedPayload{Type: TypeSessionModelUpdated, SessionID: sid, ModelID: "gpt-5"}},
		{"ErrorPayload", ErrorPayload{Type: TypeError, Code: "guard_reject", Message: "bad query", SessionID: sid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.payload)
			require.NoError(t, err)

			var parsed map[string]any
			require.NoError(t, json.Unmarshal(data, &parsed))

			got, ok := parsed["session_id"]
			assert.True(t, ok, "%s is missing session_id", tt.name)
			assert.Equal(t, sid, got)
		})
	}
}

func TestMessageChunkPayload_OmitsSessionID(t *testing.T) {
	// message_chunk/message_end/message_recovery route by message_id, not
	// session_id — they are always sent after a send_message/recover_message
	// that already tied the connection to the session channel.
	payload := MessageChunkPayload{Type: TypeMessageChunk, MessageID: "m1", Delta: "hello"}

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message_id":"m1"`)
	assert.Contains(t, string(data), `"delta":"hello"`)
}

func TestMessageEndPayload(t *testing.T) {
	payload := MessageEndPayload{Type: TypeMessageEnd, MessageID: "m1", FullText: "the full answer"}

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded MessageEndPayload
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "the full answer", decoded.FullText)
}

func TestMessageRecoveryPayload_IsComplete(t *testing.T) {
	incomplete := MessageRecoveryPayload{Type: TypeMessageRecovery, MessageID: "m1", RecoveredText: "partial", IsComplete: false}
	complete := MessageRecoveryPayload{Type: TypeMessageRecovery, MessageID: "m1", RecoveredText: "full answer", IsComplete: true}

	assert.False(t, incomplete.IsComplete)
	assert.True(t, complete.IsComplete)
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEnvelope() RequestEnvelope {
	return RequestEnvelope{
		V:             ProtocolVersion,
		Kind:          KindHookEvent,
		RequestID:     "req-1",
		TS:            1700000000000,
		SessionID:     "sess-1",
		HookEventName: HookPreToolUse,
		Payload:       json.RawMessage(`{"tool_name":"Bash"}`),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RequestEnvelope)
		wantErr error
	}{
		{name: "valid", mutate: func(*RequestEnvelope) {}},
		{
			name:   "leading whitespace before object",
			mutate: func(e *RequestEnvelope) { e.Payload = json.RawMessage("  \n\t{}") },
		},
		{
			name:    "wrong version",
			mutate:  func(e *RequestEnvelope) { e.V = 2 },
			wantErr: ErrBadVersion,
		},
		{
			name:    "zero version",
			mutate:  func(e *RequestEnvelope) { e.V = 0 },
			wantErr: ErrBadVersion,
		},
		{
			name:    "wrong kind",
			mutate:  func(e *RequestEnvelope) { e.Kind = KindHookResult },
			wantErr: ErrBadKind,
		},
		{
			name:    "missing request id",
			mutate:  func(e *RequestEnvelope) { e.RequestID = "" },
			wantErr: ErrNoRequestID,
		},
		{
			name:    "missing hook name",
			mutate:  func(e *RequestEnvelope) { e.HookEventName = "" },
			wantErr: ErrBadHookName,
		},
		{
			name:    "missing payload",
			mutate:  func(e *RequestEnvelope) { e.Payload = nil },
			wantErr: ErrNoPayload,
		},
		{
			name:    "scalar payload",
			mutate:  func(e *RequestEnvelope) { e.Payload = json.RawMessage(`"hello"`) },
			wantErr: ErrNotJSONObject,
		},
		{
			name:    "array payload",
			mutate:  func(e *RequestEnvelope) { e.Payload = json.RawMessage(`[1,2]`) },
			wantErr: ErrNotJSONObject,
		},
		{
			name:    "whitespace-only payload",
			mutate:  func(e *RequestEnvelope) { e.Payload = json.RawMessage("   ") },
			wantErr: ErrNoPayload,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnvelope()
			tt.mutate(&env)
			err := env.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestReplyHelpers(t *testing.T) {
	assert.Equal(t, ReplyPayload{Action: ActionPassthrough}, Passthrough())

	b := BlockWithStderr("no")
	assert.Equal(t, ActionBlockWithStderr, b.Action)
	assert.Equal(t, "no", b.Stderr)

	body := json.RawMessage(`{"x":1}`)
	j := JSONOutput(body)
	assert.Equal(t, ActionJSONOutput, j.Action)
	assert.Equal(t, body, j.StdoutJSON)
}

func TestEnvelopeWireShape(t *testing.T) {
	raw, err := json.Marshal(validEnvelope())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	for _, key := range []string{"v", "kind", "request_id", "ts", "session_id", "hook_event_name", "payload"} {
		assert.Contains(t, doc, key)
	}
}

package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayloadVariants(t *testing.T) {
	tests := []struct {
		hook HookName
		raw  string
		want Payload
	}{
		{
			hook: HookSessionStart,
			raw:  `{"source":"startup","model":"m1"}`,
			want: SessionStartPayload{Source: "startup", Model: "m1"},
		},
		{
			hook: HookUserPromptSubmit,
			raw:  `{"prompt":"fix it"}`,
			want: UserPromptSubmitPayload{Prompt: "fix it"},
		},
		{
			hook: HookPreToolUse,
			raw:  `{"tool_name":"Bash","tool_input":{"command":"ls"},"tool_use_id":"tu-1"}`,
			want: PreToolUsePayload{
				ToolName:  "Bash",
				ToolInput: json.RawMessage(`{"command":"ls"}`),
				ToolUseID: "tu-1",
			},
		},
		{
			hook: HookPostToolUseFailure,
			raw:  `{"tool_name":"Bash","error":"exit 1","is_interrupt":true}`,
			want: PostToolUseFailurePayload{ToolName: "Bash", Error: "exit 1", IsInterrupt: true},
		},
		{
			hook: HookSubagentStop,
			raw:  `{"agent_id":"a1","status":"done","transcript_path":"/tmp/t.jsonl"}`,
			want: SubagentStopPayload{AgentID: "a1", Status: "done", TranscriptPath: "/tmp/t.jsonl"},
		},
		{
			hook: HookNotification,
			raw:  `{"message":"heads up","level":"warning"}`,
			want: NotificationPayload{Message: "heads up", Level: "warning"},
		},
	}
	for _, tt := range tests {
		t.Run(string(tt.hook), func(t *testing.T) {
			got, err := DecodePayload(tt.hook, json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePayloadUnknownHookNeverFails(t *testing.T) {
	raw := json.RawMessage(`{"whatever":true}`)
	got, err := DecodePayload(HookName("BrandNewHook"), raw)
	require.NoError(t, err)
	assert.Equal(t, UnknownPayload{Raw: raw}, got)
}

func TestDecodePayloadBadBody(t *testing.T) {
	_, err := DecodePayload(HookPreToolUse, json.RawMessage(`{"tool_name":42}`))
	assert.Error(t, err)
}

func TestRuntimeEventAccessors(t *testing.T) {
	env := RequestEnvelope{
		V:             ProtocolVersion,
		Kind:          KindHookEvent,
		RequestID:     "req-1",
		SessionID:     "sess-1",
		HookEventName: HookPreToolUse,
		Payload:       json.RawMessage(`{"tool_name":"Edit","tool_use_id":"tu-1"}`),
	}
	ev, err := NewRuntimeEvent(env, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "req-1", ev.RequestID())
	assert.Equal(t, "sess-1", ev.SessionID())
	assert.Equal(t, "Edit", ev.ToolName())
	assert.Equal(t, "tu-1", ev.ToolUseID())
	assert.True(t, ev.Meta.ExpectsDecision)
}

func TestAccessorsEmptyForNonToolHooks(t *testing.T) {
	env := RequestEnvelope{
		V:             ProtocolVersion,
		Kind:          KindHookEvent,
		RequestID:     "req-1",
		HookEventName: HookStop,
		Payload:       json.RawMessage(`{"reason":"end_turn"}`),
	}
	ev, err := NewRuntimeEvent(env, time.Now())
	require.NoError(t, err)
	assert.Empty(t, ev.ToolName())
	assert.Empty(t, ev.ToolUseID())
}

func TestHookMeta(t *testing.T) {
	assert.True(t, HookPreToolUse.Known())
	assert.False(t, HookName("Bogus").Known())

	assert.Equal(t, 250*time.Millisecond, HookPermissionRequest.Meta().DecisionWindow)
	assert.True(t, HookStop.Meta().CanBlock)
	assert.Zero(t, HookName("Bogus").Meta())
}

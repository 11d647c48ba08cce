package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vburojevic/hookd/internal/domain"
	"github.com/vburojevic/hookd/internal/rules"
)

func newTestPipeline(t *testing.T, ruleSet []rules.Rule) (*Pipeline, *clock.Mock) {
	t.Helper()
	store := rules.NewStore(zap.NewNop())
	store.Replace(ruleSet)
	mock := clock.NewMock()
	p := New(Options{Rules: store, Clock: mock})
	t.Cleanup(p.Close)
	return p, mock
}

func envelope(hook domain.HookName, requestID string, payload any) domain.RequestEnvelope {
	raw, _ := json.Marshal(payload)
	return domain.RequestEnvelope{
		V:             domain.ProtocolVersion,
		Kind:          domain.KindHookEvent,
		RequestID:     requestID,
		TS:            time.Now().UnixMilli(),
		SessionID:     "sess-1",
		HookEventName: hook,
		Payload:       raw,
	}
}

func preToolEnvelope(requestID, tool, command string) domain.RequestEnvelope {
	input, _ := json.Marshal(map[string]string{"command": command})
	return envelope(domain.HookPreToolUse, requestID, domain.PreToolUsePayload{
		ToolName:  tool,
		ToolInput: input,
		ToolUseID: "tu-" + requestID,
	})
}

func feedKinds(p *Pipeline) []domain.FeedKind {
	events := p.Events()
	out := make([]domain.FeedKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestDenyRuleBlocksPermissionPrompt(t *testing.T) {
	p, _ := newTestPipeline(t, []rules.Rule{
		{ToolName: "Bash", Action: rules.ActionDeny, AddedBy: "policy"},
	})

	reply := p.Handle(context.Background(), envelope(domain.HookPermissionRequest, "req-1",
		domain.PermissionRequestPayload{ToolName: "Bash"}))

	assert.Equal(t, domain.ActionBlockWithStderr, reply.Action)
	assert.Contains(t, reply.Stderr, "Blocked by rule")
	assert.Contains(t, reply.Stderr, "policy")

	// The block is surfaced as a deny decision correlated to the prompt.
	var sawDeny bool
	for _, e := range p.Events() {
		if e.Kind == domain.FeedDecision && e.Data["outcome"] == "deny" {
			sawDeny = true
			assert.Equal(t, string(domain.SourceRule), e.Data["source"])
		}
	}
	assert.True(t, sawDeny)
}

func TestPermissionPromptAutoAllows(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	reply := p.Handle(context.Background(), envelope(domain.HookPermissionRequest, "req-1",
		domain.PermissionRequestPayload{ToolName: "Bash"}))

	require.Equal(t, domain.ActionJSONOutput, reply.Action)
	assert.Contains(t, string(reply.StdoutJSON), `"permissionDecision":"allow"`)
	assert.Contains(t, string(reply.StdoutJSON), string(domain.HookPermissionRequest))

	// Auto-allowed prompts leave no feed entry of their own.
	assert.NotContains(t, feedKinds(p), domain.FeedPermissionPrompt)
}

func TestApproveRuleAllowsTool(t *testing.T) {
	p, _ := newTestPipeline(t, []rules.Rule{
		{ID: "allow-bash", ToolName: "Bash", Action: rules.ActionApprove, AddedBy: "ops"},
	})

	reply := p.Handle(context.Background(), preToolEnvelope("req-1", "Bash", "ls"))

	require.Equal(t, domain.ActionJSONOutput, reply.Action)
	assert.Contains(t, string(reply.StdoutJSON), "approved by rule")
	assert.Contains(t, string(reply.StdoutJSON), "ops")
}

func TestDenyRuleBlocksTool(t *testing.T) {
	p, _ := newTestPipeline(t, []rules.Rule{
		{ID: "no-bash", ToolName: "Bash", Action: rules.ActionDeny, AddedBy: "policy"},
	})

	reply := p.Handle(context.Background(), preToolEnvelope("req-1", "Bash", "ls"))

	assert.Equal(t, domain.ActionBlockWithStderr, reply.Action)
	assert.Contains(t, reply.Stderr, "no-bash")
}

func TestDenyRuleOutranksSafeTool(t *testing.T) {
	p, _ := newTestPipeline(t, []rules.Rule{
		{ToolName: "Read", Action: rules.ActionDeny, AddedBy: "policy"},
	})

	reply := p.Handle(context.Background(), preToolEnvelope("req-1", "Read", ""))
	assert.Equal(t, domain.ActionBlockWithStderr, reply.Action)
}

func TestSafeToolAllowedExplicitly(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	reply := p.Handle(context.Background(), preToolEnvelope("req-1", "Read", ""))

	require.Equal(t, domain.ActionJSONOutput, reply.Action)
	assert.Contains(t, string(reply.StdoutJSON), "read-only tool")
	assert.Zero(t, p.Queues().Permission.Len())
}

func TestPermissionRequiredResolvedInWindow(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	replies := make(chan domain.ReplyPayload, 1)
	go func() {
		replies <- p.Handle(context.Background(), preToolEnvelope("req-1", "Bash", "rm -rf build"))
	}()

	require.Eventually(t, func() bool {
		return p.Queues().Permission.Len() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	item, _, ok := p.Queues().Permission.Peek()
	require.True(t, ok)
	assert.Equal(t, "Bash", item.ToolName)

	require.True(t, p.Respond("req-1", domain.Decision{
		Type:   domain.DecisionBlock,
		Source: domain.SourceUser,
		Intent: &domain.DecisionIntent{Allow: false, Reason: "not on my machine"},
		Stderr: "not on my machine",
	}))

	reply := <-replies
	assert.Equal(t, domain.ActionBlockWithStderr, reply.Action)
	assert.Equal(t, "not on my machine", reply.Stderr)
	assert.Zero(t, p.Queues().Permission.Len())
}

func TestPermissionWindowLapsesToPassthrough(t *testing.T) {
	p, mock := newTestPipeline(t, nil)

	replies := make(chan domain.ReplyPayload, 1)
	go func() {
		replies <- p.Handle(context.Background(), preToolEnvelope("req-1", "Bash", "make deploy"))
	}()

	require.Eventually(t, func() bool {
		return p.Queues().Permission.Len() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	mock.Add(time.Second)

	reply := <-replies
	assert.Equal(t, domain.ActionPassthrough, reply.Action)

	// The host already proceeded, but a late human answer still lands in
	// the feed.
	require.True(t, p.Respond("req-1", domain.Decision{
		Type:   domain.DecisionBlock,
		Source: domain.SourceUser,
		Intent: &domain.DecisionIntent{Allow: false, Reason: "too late"},
	}))

	var outcomes []string
	for _, e := range p.Events() {
		if e.Kind == domain.FeedDecision {
			outcomes = append(outcomes, e.Data["outcome"].(string))
		}
	}
	assert.Equal(t, []string{"no_opinion", "deny"}, outcomes)
}

func TestQuestionQueuedSeparately(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	input, _ := json.Marshal(map[string]string{"question": "which branch?"})
	replies := make(chan domain.ReplyPayload, 1)
	go func() {
		replies <- p.Handle(context.Background(), envelope(domain.HookPreToolUse, "req-1",
			domain.PreToolUsePayload{ToolName: "AskUserQuestion", ToolInput: input}))
	}()

	require.Eventually(t, func() bool {
		return p.Queues().Question.Len() == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, p.Queues().Permission.Len())

	answer := json.RawMessage(`{"answer":"main"}`)
	require.True(t, p.Respond("req-1", domain.Decision{
		Type:   domain.DecisionJSON,
		Source: domain.SourceUser,
		Intent: &domain.DecisionIntent{Allow: true},
		Body:   answer,
	}))

	reply := <-replies
	require.Equal(t, domain.ActionJSONOutput, reply.Action)
	assert.JSONEq(t, string(answer), string(reply.StdoutJSON))
}

func TestInformationalHookPassesThroughImmediately(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	// Zero decision window: no queue, no waiting, immediate reply.
	reply := p.Handle(context.Background(), envelope(domain.HookNotification, "req-1",
		domain.NotificationPayload{Message: "compacting soon", Level: "warning"}))

	assert.Equal(t, domain.ActionPassthrough, reply.Action)
	assert.Zero(t, p.Queues().Permission.Len())
}

func TestSubagentStopEnrichesFromTranscript(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	lines := []string{
		`{"type":"user","message":{"content":[{"type":"text","text":"do it"}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Bash"},{"type":"text","text":"done"}]}}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	reply := p.Handle(context.Background(), envelope(domain.HookSubagentStop, "req-1",
		domain.SubagentStopPayload{AgentID: "agent-1", Status: "done", TranscriptPath: path}))
	assert.Equal(t, domain.ActionPassthrough, reply.Action)

	require.Eventually(t, func() bool {
		for _, e := range p.Events() {
			if e.Kind == domain.FeedSubagentStop {
				_, ok := e.Data["transcript"]
				return ok
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestUnreadableTranscriptAttachesErrorMarker(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	p.Handle(context.Background(), envelope(domain.HookSubagentStop, "req-1",
		domain.SubagentStopPayload{AgentID: "agent-1", TranscriptPath: filepath.Join(t.TempDir(), "missing.jsonl")}))

	require.Eventually(t, func() bool {
		for _, e := range p.Events() {
			if e.Kind == domain.FeedSubagentStop {
				_, ok := e.Data["enrichment_error"]
				return ok
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestUndecodablePayloadFallsThrough(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	env := envelope(domain.HookPreToolUse, "req-1", nil)
	env.Payload = json.RawMessage(`{"tool_name":42}`)

	reply := p.Handle(context.Background(), env)
	assert.Equal(t, domain.ActionPassthrough, reply.Action)
	assert.Contains(t, feedKinds(p), domain.FeedUnknown)

	// The event was already fail-opened: it must not park on a queue as a
	// phantom pending permission.
	assert.Zero(t, p.Queues().Permission.Len())
	assert.Zero(t, p.Queues().Question.Len())
	assert.False(t, p.Respond("req-1", domain.Decision{
		Type:   domain.DecisionBlock,
		Source: domain.SourceUser,
		Intent: &domain.DecisionIntent{Allow: false},
	}))
}

func TestUndecodablePermissionRequestFailsOpen(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	env := envelope(domain.HookPermissionRequest, "req-1", nil)
	env.Payload = json.RawMessage(`{"tool_name":["Bash"]}`)

	// No structured auto-allow for a body whose shape is unknown.
	reply := p.Handle(context.Background(), env)
	assert.Equal(t, domain.ActionPassthrough, reply.Action)
	assert.Empty(t, reply.StdoutJSON)
	assert.Contains(t, feedKinds(p), domain.FeedUnknown)
}

func TestCanceledContextFailsOpen(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	replies := make(chan domain.ReplyPayload, 1)
	go func() {
		replies <- p.Handle(ctx, preToolEnvelope("req-1", "Bash", "sleep 60"))
	}()

	require.Eventually(t, func() bool {
		return p.Queues().Permission.Len() == 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	reply := <-replies
	assert.Equal(t, domain.ActionPassthrough, reply.Action)
}

func TestRuleChangeAppliesToNextEvent(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	reply := p.Handle(context.Background(), envelope(domain.HookPermissionRequest, "req-1",
		domain.PermissionRequestPayload{ToolName: "Bash"}))
	require.Equal(t, domain.ActionJSONOutput, reply.Action)

	p.rules.Add(rules.Rule{ToolName: "Bash", Action: rules.ActionDeny, AddedBy: "policy"})

	reply = p.Handle(context.Background(), envelope(domain.HookPermissionRequest, "req-2",
		domain.PermissionRequestPayload{ToolName: "Bash"}))
	assert.Equal(t, domain.ActionBlockWithStderr, reply.Action)
}

func TestActiveSessionTracksLastEvent(t *testing.T) {
	p, _ := newTestPipeline(t, nil)

	p.Handle(context.Background(), envelope(domain.HookSessionStart, "req-1",
		domain.SessionStartPayload{Source: "startup"}))
	assert.Equal(t, "sess-1", p.ActiveSession())

	sess, ok := p.Session()
	require.True(t, ok)
	assert.Equal(t, "sess-1", sess.SessionID)
}

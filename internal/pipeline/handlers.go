package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/vburojevic/hookd/internal/domain"
	"github.com/vburojevic/hookd/internal/feed"
	"github.com/vburojevic/hookd/internal/risk"
	"github.com/vburojevic/hookd/internal/rules"
)

// outcome is what one chain handler produces: an immediate reply or a
// deferred decision channel, plus how the event should be surfaced.
type outcome struct {
	reply    *domain.ReplyPayload
	wait     <-chan domain.Decision
	opts     feed.ApplyOpts
	decision *domain.Decision // synchronous decision to surface
}

// chainEntry is one (predicate, handler) pair. The chain is an explicit
// ordered list so precedence stays readable and individually testable.
type chainEntry struct {
	name   string
	match  func(*domain.RuntimeEvent) bool
	handle func(*domain.RuntimeEvent) outcome
}

func (p *Pipeline) buildChain() []chainEntry {
	return []chainEntry{
		{
			name:   "subagent-completion",
			match:  func(ev *domain.RuntimeEvent) bool { return ev.Hook == domain.HookSubagentStop },
			handle: p.handleSubagentStop,
		},
		{
			name: "permission-prompt",
			match: func(ev *domain.RuntimeEvent) bool {
				_, ok := ev.Payload.(domain.PermissionRequestPayload)
				return ok
			},
			handle: p.handlePermissionPrompt,
		},
		{
			name: "structured-question",
			match: func(ev *domain.RuntimeEvent) bool {
				return isPreToolUse(ev) && ev.ToolName() == "AskUserQuestion"
			},
			handle: p.handleQuestion,
		},
		{
			name: "rule-match",
			match: func(ev *domain.RuntimeEvent) bool {
				if !isPreToolUse(ev) {
					return false
				}
				_, ok := p.rules.Snapshot().Match(ev.ToolName())
				return ok
			},
			handle: p.handleRuleMatch,
		},
		{
			name: "safe-tool",
			match: func(ev *domain.RuntimeEvent) bool {
				return isPreToolUse(ev) && risk.IsSafeTool(ev.ToolName())
			},
			handle: p.handleSafeTool,
		},
		{
			name:   "permission-required",
			match:  isPreToolUse,
			handle: p.handlePermissionRequired,
		},
		{
			name:   "default",
			match:  func(*domain.RuntimeEvent) bool { return true },
			handle: p.handleDefault,
		},
	}
}

// isPreToolUse requires the decoded payload, not just the hook name: a
// PreToolUse whose body failed to decode carries UnknownPayload and must
// fall through to the default handler rather than park on a queue with an
// empty tool name.
func isPreToolUse(ev *domain.RuntimeEvent) bool {
	_, ok := ev.Payload.(domain.PreToolUsePayload)
	return ok
}

// handleSubagentStop surfaces the completion; bookkeep triggers the
// fire-and-forget transcript enrichment once the feed event exists.
func (p *Pipeline) handleSubagentStop(*domain.RuntimeEvent) outcome {
	reply := domain.Passthrough()
	return outcome{reply: &reply}
}

// handlePermissionPrompt answers the host's native permission prompt. A
// matching deny rule blocks immediately; otherwise the prompt auto-allows
// and deliberately leaves no feed entry: the PreToolUse that follows
// carries the surfaced event.
func (p *Pipeline) handlePermissionPrompt(ev *domain.RuntimeEvent) outcome {
	tool := ev.ToolName()
	if r, ok := p.rules.Snapshot().Match(tool); ok && r.Action == rules.ActionDeny {
		reason := blockReason(r)
		reply := domain.BlockWithStderr(reason)
		return outcome{
			reply: &reply,
			decision: &domain.Decision{
				Type:   domain.DecisionBlock,
				Source: domain.SourceRule,
				Intent: &domain.DecisionIntent{Allow: false, Reason: reason},
				Stderr: reason,
			},
		}
	}
	reply := domain.JSONOutput(permissionAllow(string(ev.Hook), "auto-allowed"))
	return outcome{reply: &reply, opts: feed.ApplyOpts{SuppressEvent: true}}
}

// handleQuestion parks a structured question for the human.
func (p *Pipeline) handleQuestion(ev *domain.RuntimeEvent) outcome {
	pl, _ := ev.Payload.(domain.PreToolUsePayload)
	p.queues.Question.Enqueue(domain.QueueItem{
		RequestID: ev.RequestID(),
		TS:        p.clock.Now(),
		ToolName:  pl.ToolName,
		ToolInput: pl.ToolInput,
		ToolUseID: pl.ToolUseID,
	})
	return outcome{wait: p.pending.Register(ev.RequestID(), ev.Meta.DecisionWindow)}
}

// handleRuleMatch answers a pre-execution request per the winning rule.
func (p *Pipeline) handleRuleMatch(ev *domain.RuntimeEvent) outcome {
	r, _ := p.rules.Snapshot().Match(ev.ToolName())
	if r.Action == rules.ActionDeny {
		reason := blockReason(r)
		reply := domain.BlockWithStderr(reason)
		return outcome{
			reply: &reply,
			decision: &domain.Decision{
				Type:   domain.DecisionBlock,
				Source: domain.SourceRule,
				Intent: &domain.DecisionIntent{Allow: false, Reason: reason},
				Stderr: reason,
			},
		}
	}
	reason := fmt.Sprintf("approved by rule (added by %s)", r.AddedBy)
	reply := domain.JSONOutput(permissionAllow(string(ev.Hook), reason))
	return outcome{
		reply: &reply,
		decision: &domain.Decision{
			Type:   domain.DecisionJSON,
			Source: domain.SourceRule,
			Intent: &domain.DecisionIntent{Allow: true, Reason: reason},
		},
	}
}

// handleSafeTool allows a request the risk engine deems safe. The allow is
// explicit, never a silent passthrough, so this policy stays authoritative
// over the host's own judgment.
func (p *Pipeline) handleSafeTool(ev *domain.RuntimeEvent) outcome {
	reason := "read-only tool"
	reply := domain.JSONOutput(permissionAllow(string(ev.Hook), reason))
	return outcome{
		reply: &reply,
		decision: &domain.Decision{
			Type:   domain.DecisionJSON,
			Source: domain.SourceRule,
			Intent: &domain.DecisionIntent{Allow: true, Reason: reason},
		},
	}
}

// handlePermissionRequired parks a pre-execution request with no applicable
// rule on the permission queue and holds the reply open for the decision
// window.
func (p *Pipeline) handlePermissionRequired(ev *domain.RuntimeEvent) outcome {
	pl, _ := ev.Payload.(domain.PreToolUsePayload)
	p.queues.Permission.Enqueue(domain.QueueItem{
		RequestID: ev.RequestID(),
		TS:        p.clock.Now(),
		ToolName:  pl.ToolName,
		ToolInput: pl.ToolInput,
		ToolUseID: pl.ToolUseID,
	})
	return outcome{
		wait: p.pending.Register(ev.RequestID(), ev.Meta.DecisionWindow),
		opts: feed.ApplyOpts{RequiresPermission: true},
	}
}

// handleDefault stores purely informational hooks with an automatic
// timeout-based passthrough.
func (p *Pipeline) handleDefault(ev *domain.RuntimeEvent) outcome {
	return outcome{wait: p.pending.Register(ev.RequestID(), ev.Meta.DecisionWindow)}
}

func blockReason(r rules.Rule) string {
	label := r.ID
	if label == "" {
		label = r.ToolName
	}
	return fmt.Sprintf("Blocked by rule %s (added by %s)", label, r.AddedBy)
}

// hookOutput is the structured allow reply the host understands.
type hookOutput struct {
	HookSpecificOutput hookSpecificOutput `json:"hookSpecificOutput"`
}

type hookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
}

func permissionAllow(hookName, reason string) json.RawMessage {
	out, _ := json.Marshal(hookOutput{
		HookSpecificOutput: hookSpecificOutput{
			HookEventName:            hookName,
			PermissionDecision:       "allow",
			PermissionDecisionReason: reason,
		},
	})
	return out
}

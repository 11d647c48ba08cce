package domain

import "time"

// HookName identifies a lifecycle notification emitted by the host agent.
type HookName string

const (
	HookSessionStart       HookName = "SessionStart"
	HookUserPromptSubmit   HookName = "UserPromptSubmit"
	HookPreToolUse         HookName = "PreToolUse"
	HookPermissionRequest  HookName = "PermissionRequest"
	HookPostToolUse        HookName = "PostToolUse"
	HookPostToolUseFailure HookName = "PostToolUseFailure"
	HookSubagentStart      HookName = "SubagentStart"
	HookSubagentStop       HookName = "SubagentStop"
	HookStop               HookName = "Stop"
	HookPreCompact         HookName = "PreCompact"
	HookSessionEnd         HookName = "SessionEnd"
	HookNotification       HookName = "Notification"
	HookSetup              HookName = "Setup"
)

// knownHooks lists every hook the pipeline understands. Unknown names are
// still accepted on the wire and auto-passthrough (forward compatibility).
var knownHooks = map[HookName]HookMeta{
	HookSessionStart:       {},
	HookUserPromptSubmit:   {CanBlock: true},
	HookPreToolUse:         {ExpectsDecision: true, CanBlock: true, DecisionWindow: 250 * time.Millisecond},
	HookPermissionRequest:  {ExpectsDecision: true, CanBlock: true, DecisionWindow: 250 * time.Millisecond},
	HookPostToolUse:        {},
	HookPostToolUseFailure: {},
	HookSubagentStart:      {},
	HookSubagentStop:       {},
	HookStop:               {CanBlock: true},
	HookPreCompact:         {},
	HookSessionEnd:         {},
	HookNotification:       {},
	HookSetup:              {},
}

// HookMeta describes how the pipeline may interact with a hook: whether the
// host expects a decision in the reply, whether the hook is allowed to block
// the host, and how long the dispatcher may hold the reply open waiting for
// one. A zero DecisionWindow means reply immediately.
type HookMeta struct {
	ExpectsDecision bool
	CanBlock        bool
	DecisionWindow  time.Duration
}

// Known reports whether the hook name is one the pipeline understands.
func (h HookName) Known() bool {
	_, ok := knownHooks[h]
	return ok
}

// Meta returns the interaction metadata for the hook. Unknown hooks get the
// zero value: informational, non-blocking, immediate reply.
func (h HookName) Meta() HookMeta {
	return knownHooks[h]
}

package domain

import (
	"encoding/json"
	"time"
)

// FeedKind tags a feed event variant.
type FeedKind string

const (
	FeedSessionStart     FeedKind = "session_start"
	FeedSessionEnd       FeedKind = "session_end"
	FeedRunStart         FeedKind = "run_start"
	FeedRunEnd           FeedKind = "run_end"
	FeedPrompt           FeedKind = "prompt"
	FeedToolPre          FeedKind = "tool_pre"
	FeedToolPost         FeedKind = "tool_post"
	FeedToolFailed       FeedKind = "tool_failed"
	FeedPermissionPrompt FeedKind = "permission_prompt"
	FeedQuestion         FeedKind = "question"
	FeedDecision         FeedKind = "decision"
	FeedSubagentStart    FeedKind = "subagent_start"
	FeedSubagentStop     FeedKind = "subagent_stop"
	FeedStop             FeedKind = "stop"
	FeedPreCompact       FeedKind = "pre_compact"
	FeedNotification     FeedKind = "notification"
	FeedSetup            FeedKind = "setup"
	FeedUnknown          FeedKind = "unknown"
)

// Level is the display severity of a feed event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Cause links a feed event back to what produced it.
type Cause struct {
	HookRequestID string `json:"hook_request_id"`
	ToolUseID     string `json:"tool_use_id,omitempty"`
	ParentEventID string `json:"parent_event_id,omitempty"`
}

// FeedEvent is the canonical, replayable record of one occurrence. Seq is
// run-scoped and strictly increasing from 1. Events are immutable once
// emitted; enrichment patches go through the mapper, which owns them.
type FeedEvent struct {
	EventID   string          `json:"event_id"`
	Seq       int             `json:"seq"`
	TS        time.Time       `json:"ts"`
	SessionID string          `json:"session_id"`
	RunID     string          `json:"run_id"`
	Kind      FeedKind        `json:"kind"`
	Level     Level           `json:"level"`
	ActorID   string          `json:"actor_id,omitempty"`
	Cause     Cause           `json:"cause"`
	Title     string          `json:"title"`
	Data      map[string]any  `json:"data,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

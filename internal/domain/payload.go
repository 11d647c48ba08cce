package domain

import (
	"encoding/json"
	"fmt"
)

// Payload is the closed set of per-hook request bodies. The mapper switches
// exhaustively over these; a hook name outside the known set decodes to
// UnknownPayload rather than failing.
type Payload interface {
	isPayload()
}

// SessionStartPayload opens a session. Source is one of startup, resume,
// clear, compact.
type SessionStartPayload struct {
	Source    string `json:"source"`
	Model     string `json:"model,omitempty"`
	AgentType string `json:"agent_type,omitempty"`
	Cwd       string `json:"cwd,omitempty"`
}

// UserPromptSubmitPayload carries the user's prompt text.
type UserPromptSubmitPayload struct {
	Prompt string `json:"prompt"`
}

// PreToolUsePayload announces a tool the host is about to run.
type PreToolUsePayload struct {
	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
}

// PermissionRequestPayload is the host's native permission prompt.
type PermissionRequestPayload struct {
	ToolName    string          `json:"tool_name"`
	ToolInput   json.RawMessage `json:"tool_input"`
	ToolUseID   string          `json:"tool_use_id,omitempty"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

// PostToolUsePayload reports a completed tool call.
type PostToolUsePayload struct {
	ToolName     string          `json:"tool_name"`
	ToolInput    json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse json.RawMessage `json:"tool_response,omitempty"`
	ToolUseID    string          `json:"tool_use_id,omitempty"`
	DurationMs   int64           `json:"tool_duration_ms,omitempty"`
}

// PostToolUseFailurePayload reports a failed tool call.
type PostToolUseFailurePayload struct {
	ToolName    string          `json:"tool_name"`
	ToolInput   json.RawMessage `json:"tool_input,omitempty"`
	Error       string          `json:"error,omitempty"`
	IsInterrupt bool            `json:"is_interrupt,omitempty"`
	ToolUseID   string          `json:"tool_use_id,omitempty"`
}

// SubagentStartPayload announces a spawned subagent.
type SubagentStartPayload struct {
	AgentID   string `json:"agent_id"`
	AgentType string `json:"agent_type,omitempty"`
	Task      string `json:"task,omitempty"`
}

// SubagentStopPayload reports a finished subagent, with the path to its
// transcript for later enrichment.
type SubagentStopPayload struct {
	AgentID        string `json:"agent_id"`
	AgentType      string `json:"agent_type,omitempty"`
	Status         string `json:"status,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
}

// StopPayload is the host's end-of-turn signal.
type StopPayload struct {
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// PreCompactPayload precedes a context compaction.
type PreCompactPayload struct {
	Trigger string `json:"trigger,omitempty"` // manual or auto
}

// SessionEndPayload closes a session.
type SessionEndPayload struct {
	Reason         string `json:"reason,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
}

// NotificationPayload is a free-form host notification.
type NotificationPayload struct {
	Message string `json:"message"`
	Level   string `json:"level,omitempty"` // info, warning, error
}

// SetupPayload is emitted once when the host initializes a project.
type SetupPayload struct {
	Cwd       string `json:"cwd,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

// UnknownPayload preserves the body of a hook the pipeline does not know.
type UnknownPayload struct {
	Raw json.RawMessage
}

func (SessionStartPayload) isPayload()       {}
func (UserPromptSubmitPayload) isPayload()   {}
func (PreToolUsePayload) isPayload()         {}
func (PermissionRequestPayload) isPayload()  {}
func (PostToolUsePayload) isPayload()        {}
func (PostToolUseFailurePayload) isPayload() {}
func (SubagentStartPayload) isPayload()      {}
func (SubagentStopPayload) isPayload()       {}
func (StopPayload) isPayload()               {}
func (PreCompactPayload) isPayload()         {}
func (SessionEndPayload) isPayload()         {}
func (NotificationPayload) isPayload()       {}
func (SetupPayload) isPayload()              {}
func (UnknownPayload) isPayload()            {}

// DecodePayload parses the raw payload into the variant for the hook name.
// Unknown hook names never fail: they decode to UnknownPayload.
func DecodePayload(name HookName, raw json.RawMessage) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch name {
	case HookSessionStart:
		var v SessionStartPayload
		err, p = json.Unmarshal(raw, &v), v
	case HookUserPromptSubmit:
		var v UserPromptSubmitPayload
		err, p = json.Unmarshal(raw, &v), v
	case HookPreToolUse:
		var v PreToolUsePayload
		err, p = json.Unmarshal(raw, &v), v
	case HookPermissionRequest:
		var v PermissionRequestPayload
		err, p = json.Unmarshal(raw, &v), v
	case HookPostToolUse:
		var v PostToolUsePayload
		err, p = json.Unmarshal(raw, &v), v
	case HookPostToolUseFailure:
		var v PostToolUseFailurePayload
		err, p = json.Unmarshal(raw, &v), v
	case HookSubagentStart:
		var v SubagentStartPayload
		err, p = json.Unmarshal(raw, &v), v
	case HookSubagentStop:
		var v SubagentStopPayload
		err, p = json.Unmarshal(raw, &v), v
	case HookStop:
		var v StopPayload
		err, p = json.Unmarshal(raw, &v), v
	case HookPreCompact:
		var v PreCompactPayload
		err, p = json.Unmarshal(raw, &v), v
	case HookSessionEnd:
		var v SessionEndPayload
		err, p = json.Unmarshal(raw, &v), v
	case HookNotification:
		var v NotificationPayload
		err, p = json.Unmarshal(raw, &v), v
	case HookSetup:
		var v SetupPayload
		err, p = json.Unmarshal(raw, &v), v
	default:
		return UnknownPayload{Raw: raw}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", name, err)
	}
	return p, nil
}

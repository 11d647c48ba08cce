package domain

import "time"

// Session is one host-reported session, created on SessionStart and closed
// on SessionEnd.
type Session struct {
	SessionID string     `json:"session_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Source    string     `json:"source"`
	Model     string     `json:"model,omitempty"`
	AgentType string     `json:"agent_type,omitempty"`
}

// RunStatus is the terminal (or current) state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunAborted   RunStatus = "aborted"
)

// TriggerType records what opened a run.
type TriggerType string

const (
	TriggerPrompt   TriggerType = "prompt"   // user-submitted prompt
	TriggerResume   TriggerType = "resume"   // session resume
	TriggerImplicit TriggerType = "implicit" // first tool-bearing event
)

// RunTrigger describes the boundary that opened a run.
type RunTrigger struct {
	Type          TriggerType `json:"type"`
	PromptPreview string      `json:"prompt_preview,omitempty"`
}

// RunActors names the agents participating in a run.
type RunActors struct {
	RootAgentID string   `json:"root_agent_id,omitempty"`
	SubagentIDs []string `json:"subagent_ids,omitempty"`
}

// RunCounters aggregates per-run activity.
type RunCounters struct {
	ToolUses           int `json:"tool_uses"`
	ToolFailures       int `json:"tool_failures"`
	PermissionRequests int `json:"permission_requests"`
	Blocks             int `json:"blocks"`
}

// Run is one end-to-end unit of agent work within a session. At most one
// run is open per session; opening a new one force-closes the previous as
// completed.
type Run struct {
	RunID     string      `json:"run_id"`
	SessionID string      `json:"session_id"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   *time.Time  `json:"ended_at,omitempty"`
	Trigger   RunTrigger  `json:"trigger"`
	Status    RunStatus   `json:"status"`
	Actors    RunActors   `json:"actors"`
	Counters  RunCounters `json:"counters"`
}

// ActorKind classifies a registered actor.
type ActorKind string

const (
	ActorRoot     ActorKind = "root"
	ActorSubagent ActorKind = "subagent"
	ActorSystem   ActorKind = "system"
	ActorUser     ActorKind = "user"
)

// Actor is a display-lookup registry entry. Registered once by id
// (idempotent); referenced thereafter by id only.
type Actor struct {
	ActorID   string    `json:"actor_id"`
	Kind      ActorKind `json:"kind"`
	AgentType string    `json:"agent_type,omitempty"`
}

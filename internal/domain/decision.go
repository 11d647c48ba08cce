package domain

import (
	"encoding/json"
	"time"
)

// DecisionType is the shape of the answer sent back over the bridge.
type DecisionType string

const (
	DecisionJSON        DecisionType = "json"
	DecisionPassthrough DecisionType = "passthrough"
	DecisionBlock       DecisionType = "block"
)

// DecisionSource records who answered.
type DecisionSource string

const (
	SourceUser    DecisionSource = "user"
	SourceRule    DecisionSource = "rule"
	SourceTimeout DecisionSource = "timeout"
)

// Decision is the answer to a decision-expecting event, produced
// synchronously by a rule or asynchronously by an external actor.
type Decision struct {
	Type   DecisionType   `json:"type"`
	Source DecisionSource `json:"source"`
	// Intent carries the human-meaningful outcome (allow/deny) and an
	// optional reason, independent of the wire shape.
	Intent *DecisionIntent `json:"intent,omitempty"`
	// Body is the structured reply for DecisionJSON.
	Body json.RawMessage `json:"body,omitempty"`
	// Stderr is the message for DecisionBlock.
	Stderr string `json:"stderr,omitempty"`
}

// DecisionIntent is the display-level outcome of a decision.
type DecisionIntent struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

// QueueItem is the lightweight snapshot held while an event awaits a human
// decision. Deliberately decoupled from the full envelope to bound memory.
type QueueItem struct {
	RequestID   string          `json:"request_id"`
	TS          time.Time       `json:"ts"`
	ToolName    string          `json:"tool_name"`
	ToolInput   json.RawMessage `json:"tool_input,omitempty"`
	ToolUseID   string          `json:"tool_use_id,omitempty"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

package domain

import "time"

// RuntimeEvent is the validated, internal form of a request envelope: the
// envelope itself, its decoded payload variant, and the interaction metadata
// for its hook.
type RuntimeEvent struct {
	Envelope RequestEnvelope
	Hook     HookName
	Payload  Payload
	Meta     HookMeta
	Received time.Time
}

// NewRuntimeEvent decodes the envelope payload and annotates the event. The
// envelope must already have passed Validate.
func NewRuntimeEvent(env RequestEnvelope, received time.Time) (*RuntimeEvent, error) {
	payload, err := DecodePayload(env.HookEventName, env.Payload)
	if err != nil {
		return nil, err
	}
	return &RuntimeEvent{
		Envelope: env,
		Hook:     env.HookEventName,
		Payload:  payload,
		Meta:     env.HookEventName.Meta(),
		Received: received,
	}, nil
}

// RequestID is a convenience accessor for the envelope correlation id.
func (e *RuntimeEvent) RequestID() string { return e.Envelope.RequestID }

// SessionID is a convenience accessor for the host session id.
func (e *RuntimeEvent) SessionID() string { return e.Envelope.SessionID }

// ToolUseID extracts the tool-use correlation id for tool-bearing payloads,
// or "" for everything else.
func (e *RuntimeEvent) ToolUseID() string {
	switch p := e.Payload.(type) {
	case PreToolUsePayload:
		return p.ToolUseID
	case PermissionRequestPayload:
		return p.ToolUseID
	case PostToolUsePayload:
		return p.ToolUseID
	case PostToolUseFailurePayload:
		return p.ToolUseID
	}
	return ""
}

// ToolName extracts the tool name for tool-bearing payloads, or "".
func (e *RuntimeEvent) ToolName() string {
	switch p := e.Payload.(type) {
	case PreToolUsePayload:
		return p.ToolName
	case PermissionRequestPayload:
		return p.ToolName
	case PostToolUsePayload:
		return p.ToolName
	case PostToolUseFailurePayload:
		return p.ToolName
	}
	return ""
}

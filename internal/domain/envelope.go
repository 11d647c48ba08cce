package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion is the wire protocol version carried in every envelope.
const ProtocolVersion = 1

// Envelope kind tags.
const (
	KindHookEvent  = "hook_event"
	KindHookResult = "hook_result"
)

// Reply actions.
const (
	ActionPassthrough     = "passthrough"
	ActionBlockWithStderr = "block_with_stderr"
	ActionJSONOutput      = "json_output"
)

// RequestEnvelope wraps one hook notification for the wire. One envelope per
// connection, newline-terminated.
type RequestEnvelope struct {
	V             int             `json:"v"`
	Kind          string          `json:"kind"`
	RequestID     string          `json:"request_id"`
	TS            int64           `json:"ts"` // epoch ms
	SessionID     string          `json:"session_id"`
	HookEventName HookName        `json:"hook_event_name"`
	Payload       json.RawMessage `json:"payload"`
}

// ReplyEnvelope carries the pipeline's answer back to the forwarder.
type ReplyEnvelope struct {
	V         int          `json:"v"`
	Kind      string       `json:"kind"`
	RequestID string       `json:"request_id"`
	TS        int64        `json:"ts"`
	Payload   ReplyPayload `json:"payload"`
}

// ReplyPayload tells the forwarder how to exit.
type ReplyPayload struct {
	Action     string          `json:"action"`
	Stderr     string          `json:"stderr,omitempty"`
	StdoutJSON json.RawMessage `json:"stdout_json,omitempty"`
}

// Passthrough is the fail-open reply: let the host proceed as if no hook
// pipeline were installed.
func Passthrough() ReplyPayload {
	return ReplyPayload{Action: ActionPassthrough}
}

// BlockWithStderr builds a blocking reply carrying a message for the host.
func BlockWithStderr(msg string) ReplyPayload {
	return ReplyPayload{Action: ActionBlockWithStderr, Stderr: msg}
}

// JSONOutput builds a structured reply whose body the forwarder writes to
// stdout verbatim.
func JSONOutput(body json.RawMessage) ReplyPayload {
	return ReplyPayload{Action: ActionJSONOutput, StdoutJSON: body}
}

var (
	ErrBadVersion    = errors.New("missing or unsupported protocol version")
	ErrBadKind       = errors.New("unexpected envelope kind")
	ErrNoRequestID   = errors.New("empty request id")
	ErrBadHookName   = errors.New("malformed hook event name")
	ErrNoPayload     = errors.New("missing payload object")
	ErrNotJSONObject = errors.New("payload is not a JSON object")
)

// Validate checks the envelope at the server boundary. Malformed envelopes
// are rejected here and never reach the dispatch pipeline.
func (e *RequestEnvelope) Validate() error {
	if e.V != ProtocolVersion {
		return fmt.Errorf("%w: %d", ErrBadVersion, e.V)
	}
	if e.Kind != KindHookEvent {
		return fmt.Errorf("%w: %q", ErrBadKind, e.Kind)
	}
	if e.RequestID == "" {
		return ErrNoRequestID
	}
	if e.HookEventName == "" {
		return ErrBadHookName
	}
	if len(e.Payload) == 0 {
		return ErrNoPayload
	}
	// Payload must be an object, not a scalar or array.
	for _, c := range e.Payload {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return nil
		default:
			return ErrNotJSONObject
		}
	}
	return ErrNoPayload
}

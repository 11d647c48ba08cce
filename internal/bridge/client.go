package bridge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/vburojevic/hookd/internal/domain"
)

// Forwarder exit codes. Anything that goes wrong inside the forwarder exits
// ExitPassthrough: a slow or absent pipeline must never stall the host.
const (
	ExitPassthrough = 0
	ExitBlock       = 2
)

// DefaultTimeout bounds the whole round trip, dial included.
const DefaultTimeout = 400 * time.Millisecond

// ForwardOptions configures one forwarder invocation. The host invokes the
// forwarder once per hook; each invocation is an independent connection
// with no shared state.
type ForwardOptions struct {
	Hook       string // hook name; sniffed from the input when empty
	SocketPath string
	Timeout    time.Duration
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer

	// DialFunc overrides the socket dial, for tests.
	DialFunc func(path string, timeout time.Duration) (net.Conn, error)
}

// ForwardResult reports what the forwarder did, for the caller to turn into
// a process exit.
type ForwardResult struct {
	ExitCode int
	Action   string
}

func dialUnix(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}

// Forward reads one hook document from stdin, round trips it to the local
// server, and applies the reply. Every failure mode (empty input, socket
// absent, timeout, malformed reply) degrades to passthrough.
func Forward(opts ForwardOptions) ForwardResult {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	dial := opts.DialFunc
	if dial == nil {
		dial = dialUnix
	}

	input, err := io.ReadAll(opts.Stdin)
	if err != nil || len(input) == 0 || !gjson.ValidBytes(input) {
		return ForwardResult{ExitCode: ExitPassthrough, Action: domain.ActionPassthrough}
	}

	hook := opts.Hook
	if hook == "" {
		hook = gjson.GetBytes(input, "hook_event_name").String()
	}
	env := domain.RequestEnvelope{
		V:             domain.ProtocolVersion,
		Kind:          domain.KindHookEvent,
		RequestID:     uuid.NewString(),
		TS:            time.Now().UnixMilli(),
		SessionID:     gjson.GetBytes(input, "session_id").String(),
		HookEventName: domain.HookName(hook),
		Payload:       json.RawMessage(input),
	}
	line, err := json.Marshal(env)
	if err != nil {
		return ForwardResult{ExitCode: ExitPassthrough, Action: domain.ActionPassthrough}
	}

	deadline := time.Now().Add(opts.Timeout)
	conn, err := dial(opts.SocketPath, opts.Timeout)
	if err != nil {
		return ForwardResult{ExitCode: ExitPassthrough, Action: domain.ActionPassthrough}
	}
	defer conn.Close()
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write(append(line, '\n')); err != nil {
		return ForwardResult{ExitCode: ExitPassthrough, Action: domain.ActionPassthrough}
	}
	replyLine, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return ForwardResult{ExitCode: ExitPassthrough, Action: domain.ActionPassthrough}
	}

	var reply domain.ReplyEnvelope
	if err := json.Unmarshal(replyLine, &reply); err != nil || reply.RequestID != env.RequestID {
		return ForwardResult{ExitCode: ExitPassthrough, Action: domain.ActionPassthrough}
	}

	switch reply.Payload.Action {
	case domain.ActionBlockWithStderr:
		fmt.Fprintln(opts.Stderr, reply.Payload.Stderr)
		return ForwardResult{ExitCode: ExitBlock, Action: domain.ActionBlockWithStderr}
	case domain.ActionJSONOutput:
		if len(reply.Payload.StdoutJSON) > 0 {
			opts.Stdout.Write(reply.Payload.StdoutJSON)
			io.WriteString(opts.Stdout, "\n")
		}
		return ForwardResult{ExitCode: ExitPassthrough, Action: domain.ActionJSONOutput}
	default:
		return ForwardResult{ExitCode: ExitPassthrough, Action: domain.ActionPassthrough}
	}
}

package cli

import (
	"os"
	"time"

	"github.com/vburojevic/hookd/internal/bridge"
)

// ForwardCmd is the hook-side bridge client. The host invokes it once per
// hook with the event document on stdin; it round trips to the server and
// exits 0 for passthrough/json_output, 2 for block_with_stderr. Any
// internal failure exits 0: the forwarder must never stall the host.
type ForwardCmd struct {
	Hook       string `help:"Hook event name (default: sniffed from input)"`
	Socket     string `short:"s" help:"Socket path (default: derived from project dir)"`
	ProjectDir string `short:"C" help:"Project directory the socket path is derived from (default: cwd)"`
	Timeout    string `help:"Round-trip timeout (default from config, 400ms)"`
}

// Run executes the forward command. It terminates the process with the
// reply's exit code.
func (c *ForwardCmd) Run(globals *Globals) error {
	socket := c.Socket
	if socket == "" {
		socket = globals.Config.Bridge.Socket
	}
	if socket == "" {
		dir := c.ProjectDir
		if dir == "" {
			dir = globals.Config.Bridge.ProjectDir
		}
		if dir == "" {
			if wd, err := os.Getwd(); err == nil {
				dir = wd
			}
		}
		socket = bridge.SocketPath(dir)
	}

	timeout := bridge.DefaultTimeout
	raw := c.Timeout
	if raw == "" {
		raw = globals.Config.Bridge.Timeout
	}
	if raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	res := bridge.Forward(bridge.ForwardOptions{
		Hook:       c.Hook,
		SocketPath: socket,
		Timeout:    timeout,
		Stdin:      os.Stdin,
		Stdout:     globals.Stdout,
		Stderr:     globals.Stderr,
	})
	os.Exit(res.ExitCode)
	return nil
}

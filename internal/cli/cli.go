// Package cli wires the hookd commands: the bridge server, the per-hook
// forwarder, and rule inspection.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/vburojevic/hookd/internal/config"
)

// CLI is the root kong command tree.
type CLI struct {
	Format  string `help:"Output format (auto, ndjson, text)" enum:"auto,ndjson,text" default:"${config_format}"`
	Verbose bool   `help:"Enable verbose debug logging"`

	Serve   ServeCmd   `cmd:"" help:"Run the hook pipeline server on the project socket"`
	Forward ForwardCmd `cmd:"" help:"Forward one hook from stdin to the server (installed as the host's hook command)"`
	Rules   RulesCmd   `cmd:"" help:"List configured rules"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// Globals carries shared flags and streams into command Run methods.
type Globals struct {
	Format  string
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
}

// NewGlobalsWithConfig builds Globals, letting CLI flags override config
// values.
func NewGlobalsWithConfig(c *CLI, cfg *config.Config) *Globals {
	g := &Globals{
		Format:  c.Format,
		Verbose: c.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}
	if !g.Verbose && cfg.Verbose {
		g.Verbose = true
	}
	if g.Format == "" {
		g.Format = cfg.Format
	}
	return g
}

// outputError normalizes error emission across commands so machine callers
// always get a parsable failure line.
func outputError(globals *Globals, code, message string) error {
	if globals != nil && globals.Format == "ndjson" {
		fmt.Fprintf(globals.Stdout, `{"type":"error","code":%q,"message":%q}`+"\n", code, message)
	} else if globals != nil {
		fmt.Fprintf(globals.Stderr, "Error [%s]: %s\n", code, message)
	}
	return fmt.Errorf("%s", message)
}

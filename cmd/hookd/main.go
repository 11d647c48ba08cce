package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/hookd/internal/cli"
	"github.com/vburojevic/hookd/internal/config"
)

const quickStart = `hookd - hook event pipeline for coding agents

Quick start:
  hookd serve                           Run the pipeline server (in your project dir)
  hookd forward --hook PreToolUse       Wire this as the host's hook command
  hookd rules                           List configured rules

For help:
  hookd --help                          All commands and flags
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Apply config defaults before parsing; CLI flags override them.
	vars := kong.Vars{
		"config_format": cfg.Format,
	}

	ctx := kong.Parse(&c,
		kong.Name("hookd"),
		kong.Description("hookd: receive coding-agent hook events, decide, and feed the record downstream"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}

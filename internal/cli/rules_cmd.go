package cli

import (
	"encoding/json"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/vburojevic/hookd/internal/rules"
)

// RulesCmd lists the configured rules: a table on TTYs, NDJSON otherwise.
type RulesCmd struct {
	File   string `help:"YAML rules file (default: ~/.hookd/rules.yaml)"`
	Action string `help:"Filter by action (deny, approve)" enum:"deny,approve," default:""`
}

// Run executes the rules command.
func (c *RulesCmd) Run(globals *Globals) error {
	file := c.File
	if file == "" {
		file = globals.Config.DefaultRulesFile()
	}
	store := rules.NewStore(nil)
	if err := store.LoadFile(file); err != nil {
		return outputError(globals, "RULES_LOAD", err.Error())
	}
	list := store.Snapshot()
	if c.Action != "" {
		list = lo.Filter(list, func(r rules.Rule, _ int) bool {
			return r.Action == rules.Action(c.Action)
		})
	}

	if c.useTable(globals) {
		table := tablewriter.NewWriter(globals.Stdout)
		table.Header("ID", "Tool", "Action", "Added by")
		for _, r := range list {
			table.Append([]string{r.ID, r.ToolName, string(r.Action), r.AddedBy})
		}
		return table.Render()
	}

	enc := json.NewEncoder(globals.Stdout)
	for _, r := range list {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

func (c *RulesCmd) useTable(globals *Globals) bool {
	switch globals.Format {
	case "text":
		return true
	case "ndjson":
		return false
	}
	// auto: table only when a human is looking
	if f, ok := globals.Stdout.(*os.File); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

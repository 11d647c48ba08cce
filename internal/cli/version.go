package cli

import "fmt"

// Build metadata, set via -ldflags at release time.
var (
	Version = "dev"
	Commit  = "none"
)

// VersionCmd prints version information.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "ndjson" {
		fmt.Fprintf(globals.Stdout, `{"type":"version","version":%q,"commit":%q}`+"\n", Version, Commit)
		return nil
	}
	fmt.Fprintf(globals.Stdout, "hookd %s (%s)\n", Version, Commit)
	return nil
}

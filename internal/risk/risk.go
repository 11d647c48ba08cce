// Package risk classifies tools and shell commands by potential blast
// radius. Classifiers are total: they never fail, they default
// conservatively.
package risk

// Tier is a coarse classification of potential irreversible effect.
type Tier int

const (
	TierRead Tier = iota
	TierModerate
	TierWrite
	TierDestructive
)

func (t Tier) String() string {
	switch t {
	case TierRead:
		return "READ"
	case TierModerate:
		return "MODERATE"
	case TierWrite:
		return "WRITE"
	case TierDestructive:
		return "DESTRUCTIVE"
	}
	return "MODERATE"
}

// RequiresConfirmation is the display policy per tier: READ auto-allows,
// everything above asks.
func (t Tier) RequiresConfirmation() bool {
	return t > TierRead
}

// toolTiers classifies the host's built-in tools and known namespaced
// actions. Bash is absent on purpose: shell commands are sub-classified by
// ClassifyBashCommand.
var toolTiers = map[string]Tier{
	// Read-only built-ins
	"Read":      TierRead,
	"Glob":      TierRead,
	"Grep":      TierRead,
	"WebFetch":  TierRead,
	"WebSearch": TierRead,
	"TaskList":  TierRead,
	"TaskGet":   TierRead,

	// Prompting and tracking tools change agent state, not the world
	"AskUserQuestion": TierModerate,
	"TaskCreate":      TierModerate,
	"TaskUpdate":      TierModerate,
	"Task":            TierModerate,
	"Skill":           TierModerate,
	"ExitPlanMode":    TierModerate,
	"EnterPlanMode":   TierModerate,

	// Mutating built-ins
	"Edit":         TierWrite,
	"Write":        TierWrite,
	"NotebookEdit": TierWrite,

	"KillShell": TierDestructive,

	// Namespaced filesystem server actions
	"mcp__filesystem__read_file":        TierRead,
	"mcp__filesystem__read_text_file":   TierRead,
	"mcp__filesystem__list_directory":   TierRead,
	"mcp__filesystem__directory_tree":   TierRead,
	"mcp__filesystem__search_files":     TierRead,
	"mcp__filesystem__get_file_info":    TierRead,
	"mcp__filesystem__write_file":       TierWrite,
	"mcp__filesystem__edit_file":        TierWrite,
	"mcp__filesystem__create_directory": TierWrite,
	"mcp__filesystem__move_file":        TierWrite,
	"mcp__filesystem__delete_file":      TierDestructive,
}

// ClassifyTool returns the risk tier for a tool name. Unrecognized tools
// default to MODERATE (fail-cautious, but not alarmist).
func ClassifyTool(name string) Tier {
	if t, ok := toolTiers[name]; ok {
		return t
	}
	return TierModerate
}

// IsSafeTool is the coarse gate deciding whether any prompt is needed at
// all. It shares toolTiers but is deliberately more conservative than
// ClassifyTool: an unrecognized tool is dangerous, not MODERATE. Bash is
// never safe at the name level; its commands go through
// ClassifyBashCommand.
func IsSafeTool(name string) bool {
	t, ok := toolTiers[name]
	if !ok {
		return false
	}
	return t == TierRead
}

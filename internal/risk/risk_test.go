package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyToolDefaults(t *testing.T) {
	// Known tools follow the table.
	assert.Equal(t, TierRead, ClassifyTool("Read"))
	assert.Equal(t, TierWrite, ClassifyTool("Edit"))
	assert.Equal(t, TierRead, ClassifyTool("mcp__filesystem__read_file"))
	assert.Equal(t, TierDestructive, ClassifyTool("mcp__filesystem__delete_file"))

	// The four-tier classifier defaults an unknown tool to MODERATE.
	assert.Equal(t, TierModerate, ClassifyTool("SomethingNew"))
}

func TestCoarseGateIsStricterThanTierDefault(t *testing.T) {
	// The coarse gate shares the tables but defaults to dangerous: a tool
	// absent from every table is MODERATE for the tier classifier yet not
	// safe for the gate.
	name := "SomethingNew"
	assert.Equal(t, TierModerate, ClassifyTool(name))
	assert.False(t, IsSafeTool(name))
}

func TestIsSafeTool(t *testing.T) {
	assert.True(t, IsSafeTool("Read"))
	assert.True(t, IsSafeTool("Glob"))
	assert.True(t, IsSafeTool("WebSearch"))

	// Anything above READ asks.
	assert.False(t, IsSafeTool("Edit"))
	assert.False(t, IsSafeTool("AskUserQuestion"))

	// Bash is never safe at the name level; its commands are classified
	// separately.
	assert.False(t, IsSafeTool("Bash"))
}

func TestTierDisplayPolicy(t *testing.T) {
	assert.False(t, TierRead.RequiresConfirmation())
	assert.True(t, TierModerate.RequiresConfirmation())
	assert.True(t, TierWrite.RequiresConfirmation())
	assert.True(t, TierDestructive.RequiresConfirmation())
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "READ", TierRead.String())
	assert.Equal(t, "MODERATE", TierModerate.String())
	assert.Equal(t, "WRITE", TierWrite.String())
	assert.Equal(t, "DESTRUCTIVE", TierDestructive.String())
}

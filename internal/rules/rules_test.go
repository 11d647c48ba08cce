package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleMatches(t *testing.T) {
	tests := []struct {
		pattern string
		tool    string
		want    bool
	}{
		{"Bash", "Bash", true},
		{"Bash", "Edit", false},
		{"*", "Anything", true},
		{"mcp__github__*", "mcp__github__create_issue", true},
		{"mcp__github__*", "mcp__gitlab__create_issue", false},
		{"mcp__github__*", "mcp__github__", true},
	}
	for _, tt := range tests {
		r := Rule{ToolName: tt.pattern}
		assert.Equal(t, tt.want, r.Matches(tt.tool), "pattern %q vs %q", tt.pattern, tt.tool)
	}
}

func TestDenyOutranksApprove(t *testing.T) {
	l := List{
		{ID: "r1", ToolName: "Bash", Action: ActionApprove, AddedBy: "user"},
		{ID: "r2", ToolName: "Bash", Action: ActionDeny, AddedBy: "policy"},
	}
	r, ok := l.Match("Bash")
	require.True(t, ok)
	assert.Equal(t, ActionDeny, r.Action)
	assert.Equal(t, "r2", r.ID)
}

func TestFirstMatchWinsWithinAction(t *testing.T) {
	l := List{
		{ID: "broad", ToolName: "*", Action: ActionApprove},
		{ID: "narrow", ToolName: "Bash", Action: ActionApprove},
	}
	r, ok := l.Match("Bash")
	require.True(t, ok)
	assert.Equal(t, "broad", r.ID)
}

func TestNoMatchMeansNoOpinion(t *testing.T) {
	l := List{{ID: "r1", ToolName: "Edit", Action: ActionDeny}}
	_, ok := l.Match("Bash")
	assert.False(t, ok)
}

func TestEmptyListHasNoOpinion(t *testing.T) {
	var l List
	_, ok := l.Match("Bash")
	assert.False(t, ok)
}

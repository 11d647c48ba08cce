// Package rules matches tool names against an ordered rule list. Deny
// always outranks approve; within an action, first match wins.
package rules

import (
	"strings"
)

// Action is what a matched rule does.
type Action string

const (
	ActionDeny    Action = "deny"
	ActionApprove Action = "approve"
)

// Rule binds a tool-name pattern to an action. Patterns are an exact name,
// the universal wildcard "*", or a server-level prefix wildcard
// ("prefix__*").
type Rule struct {
	ID       string `json:"id" yaml:"id"`
	ToolName string `json:"tool_name" yaml:"tool_name"`
	Action   Action `json:"action" yaml:"action"`
	AddedBy  string `json:"added_by" yaml:"added_by"`
}

// Matches reports whether the rule's pattern covers the tool name.
func (r Rule) Matches(toolName string) bool {
	switch {
	case r.ToolName == "*":
		return true
	case strings.HasSuffix(r.ToolName, "__*"):
		return strings.HasPrefix(toolName, strings.TrimSuffix(r.ToolName, "*"))
	default:
		return r.ToolName == toolName
	}
}

// List is an ordered rule collection.
type List []Rule

// Match returns the winning rule for a tool name, or false when no rule has
// an opinion. All deny rules are consulted before any approve rule.
func (l List) Match(toolName string) (Rule, bool) {
	for _, r := range l {
		if r.Action == ActionDeny && r.Matches(toolName) {
			return r, true
		}
	}
	for _, r := range l {
		if r.Action == ActionApprove && r.Matches(toolName) {
			return r, true
		}
	}
	return Rule{}, false
}

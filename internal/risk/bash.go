package risk

import (
	"path"
	"strings"
)

// segmentRule matches one command segment against a table entry.
type segmentRule struct {
	prog string   // program basename; "" matches any
	sub  string   // first non-flag argument, e.g. git subcommand
	flag []string // at least one of these flags must be present
}

func (r segmentRule) matches(prog string, args []string) bool {
	if r.prog != "" && prog != r.prog {
		return false
	}
	if r.sub != "" {
		if sub := firstArg(args); sub != r.sub {
			return false
		}
	}
	if len(r.flag) > 0 && !hasAnyFlag(args, r.flag) {
		return false
	}
	return true
}

// The four ordered tables. A segment is checked against DESTRUCTIVE first
// and the READ allow-list last; highest severity wins across segments.

var destructiveRules = []segmentRule{
	// A bare shell on the right side of a pipe executes whatever arrives.
	{prog: "sh"}, {prog: "bash"}, {prog: "zsh"}, {prog: "dash"}, {prog: "ksh"},
	{prog: "eval"}, {prog: "exec"}, {prog: "source"},
	{prog: "sudo"}, {prog: "doas"},
	{prog: "rm", flag: []string{"-r", "-rf", "-fr", "-f", "-Rf", "-fR", "--recursive", "--force"}},
	{prog: "dd"}, {prog: "mkfs"}, {prog: "fdisk"}, {prog: "parted"},
	{prog: "shred"}, {prog: "shutdown"}, {prog: "reboot"}, {prog: "halt"}, {prog: "poweroff"},
	{prog: "killall"}, {prog: "pkill"},
	{prog: "git", sub: "push", flag: []string{"-f", "--force", "--force-with-lease"}},
	{prog: "git", sub: "reset", flag: []string{"--hard"}},
	{prog: "git", sub: "clean"},
	{prog: "chmod", flag: []string{"-R", "--recursive"}},
	{prog: "chown", flag: []string{"-R", "--recursive"}},
	{prog: "truncate"},
	{prog: "docker", sub: "rm"}, {prog: "docker", sub: "rmi"}, {prog: "docker", sub: "system"},
	{prog: "kubectl", sub: "delete"},
}

var writeRules = []segmentRule{
	{prog: "rm"}, // without -r/-f it is still a deletion
	{prog: "mv"}, {prog: "cp"}, {prog: "ln"},
	{prog: "chmod"}, {prog: "chown"},
	{prog: "tee"}, {prog: "install"},
	{prog: "git", sub: "push"},
	{prog: "git", sub: "commit"},
	{prog: "git", sub: "merge"},
	{prog: "git", sub: "rebase"},
	{prog: "git", sub: "cherry-pick"},
	{prog: "git", sub: "revert"},
	{prog: "git", sub: "tag"},
	{prog: "git", sub: "stash"},
	{prog: "npm", sub: "publish"},
	{prog: "cargo", sub: "publish"},
	{prog: "docker", sub: "push"},
	{prog: "kubectl", sub: "apply"}, {prog: "kubectl", sub: "create"},
	{prog: "kubectl", sub: "patch"}, {prog: "kubectl", sub: "scale"},
	{prog: "kill"},
}

var moderateRules = []segmentRule{
	{prog: "mkdir"}, {prog: "touch"},
	{prog: "curl"}, {prog: "wget"},
	{prog: "git", sub: "pull"}, {prog: "git", sub: "fetch"},
	{prog: "git", sub: "clone"}, {prog: "git", sub: "checkout"},
	{prog: "git", sub: "switch"}, {prog: "git", sub: "add"}, {prog: "git", sub: "restore"},
	{prog: "npm"}, {prog: "npx"}, {prog: "yarn"}, {prog: "pnpm"}, {prog: "bun"},
	{prog: "pip"}, {prog: "pip3"}, {prog: "uv"}, {prog: "poetry"},
	{prog: "cargo"}, {prog: "go"}, {prog: "make"},
	{prog: "brew"}, {prog: "apt"}, {prog: "apt-get"}, {prog: "yum"}, {prog: "dnf"},
	{prog: "docker"}, {prog: "kubectl"},
	{prog: "python"}, {prog: "python3"}, {prog: "node"}, {prog: "ruby"}, {prog: "perl"},
}

// readPrograms is the allow-list of known side-effect-free programs.
var readPrograms = map[string]bool{
	"ls": true, "cat": true, "head": true, "tail": true, "less": true,
	"grep": true, "rg": true, "ag": true, "find": true, "fd": true,
	"pwd": true, "echo": true, "printf": true, "which": true, "whereis": true,
	"whoami": true, "id": true, "wc": true, "sort": true, "uniq": true,
	"cut": true, "tr": true, "basename": true, "dirname": true,
	"realpath": true, "readlink": true, "env": true, "printenv": true,
	"date": true, "cal": true, "uptime": true, "ps": true, "du": true,
	"df": true, "free": true, "stat": true, "file": true, "type": true,
	"uname": true, "hostname": true, "diff": true, "cmp": true, "tree": true,
	"md5sum": true, "shasum": true, "sha256sum": true, "jq": true, "yq": true,
	"strings": true, "od": true, "xxd": true, "true": true, "false": true,
	"sleep": true, "test": true, "man": true,
}

// readSubRules lists read-only subcommands of otherwise mutating programs.
var readSubRules = []segmentRule{
	{prog: "git", sub: "status"}, {prog: "git", sub: "log"},
	{prog: "git", sub: "diff"}, {prog: "git", sub: "show"},
	{prog: "git", sub: "branch"}, {prog: "git", sub: "remote"},
	{prog: "git", sub: "blame"}, {prog: "git", sub: "describe"},
	{prog: "git", sub: "rev-parse"}, {prog: "git", sub: "shortlog"},
	{prog: "git", sub: "ls-files"}, {prog: "git", sub: "config", flag: []string{"--get", "--list", "-l"}},
	{prog: "npm", sub: "ls"}, {prog: "npm", sub: "list"},
	{prog: "npm", sub: "view"}, {prog: "npm", sub: "outdated"},
	{prog: "go", sub: "version"}, {prog: "go", sub: "env"}, {prog: "go", sub: "list"},
	{prog: "cargo", sub: "tree"}, {prog: "cargo", sub: "metadata"},
	{prog: "docker", sub: "ps"}, {prog: "docker", sub: "images"},
	{prog: "docker", sub: "logs"}, {prog: "docker", sub: "inspect"},
	{prog: "kubectl", sub: "get"}, {prog: "kubectl", sub: "describe"},
	{prog: "kubectl", sub: "logs"},
	{prog: "brew", sub: "list"}, {prog: "brew", sub: "info"},
}

// ClassifyBashCommand classifies a shell command by its text. The command
// is split on pipe/and/or/semicolon into segments; each segment is matched
// against the four ordered tables and the highest severity across segments
// wins. A command composed entirely of allow-listed segments is READ; an
// unmatched segment, or an empty command, is MODERATE.
func ClassifyBashCommand(command string) Tier {
	segments := splitSegments(command)
	if len(segments) == 0 {
		return TierModerate
	}
	overall := TierRead
	for _, seg := range segments {
		if t := classifySegment(seg); t > overall {
			overall = t
		}
	}
	return overall
}

func classifySegment(seg string) Tier {
	prog, args := splitSegment(seg)
	if prog == "" {
		return TierModerate
	}
	for _, r := range destructiveRules {
		if r.matches(prog, args) {
			return TierDestructive
		}
	}
	for _, r := range writeRules {
		if r.matches(prog, args) {
			return TierWrite
		}
	}
	// Read-only subcommands outrank their program's MODERATE entry.
	for _, r := range readSubRules {
		if r.matches(prog, args) {
			return TierRead
		}
	}
	for _, r := range moderateRules {
		if r.matches(prog, args) {
			return TierModerate
		}
	}
	if readPrograms[prog] {
		return TierRead
	}
	return TierModerate
}

// splitSegments cuts a command chain on |, ||, &&, ;, & and newlines. No
// quote awareness: over-splitting errs toward higher severity, never lower.
func splitSegments(command string) []string {
	var segs []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			segs = append(segs, s)
		}
		cur.Reset()
	}
	for i := 0; i < len(command); i++ {
		switch command[i] {
		case '|', ';', '\n':
			flush()
			if command[i] == '|' && i+1 < len(command) && command[i+1] == '|' {
				i++
			}
		case '&':
			flush()
			if i+1 < len(command) && command[i+1] == '&' {
				i++
			}
		default:
			cur.WriteByte(command[i])
		}
	}
	flush()
	return segs
}

// splitSegment tokenizes a segment into program basename and args, skipping
// leading env assignments and transparent wrappers.
func splitSegment(seg string) (string, []string) {
	fields := strings.Fields(seg)
	i := 0
	for i < len(fields) {
		f := fields[i]
		switch {
		case !strings.HasPrefix(f, "-") && strings.Contains(f, "="):
			i++ // FOO=bar prefix
		case f == "command" || f == "builtin" || f == "time" || f == "nohup":
			i++
		default:
			prog := path.Base(f)
			return prog, fields[i+1:]
		}
	}
	return "", nil
}

func firstArg(args []string) string {
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			return a
		}
	}
	return ""
}

func hasAnyFlag(args, flags []string) bool {
	for _, a := range args {
		for _, f := range flags {
			if a == f {
				return true
			}
		}
	}
	return false
}

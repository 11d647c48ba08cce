// Package transcript summarizes host transcript files (JSONL) for feed
// enrichment. Parsing is tolerant: lines that are not valid JSON, or not of
// a recognized shape, are skipped rather than failing the summary.
package transcript

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// Summary is what enrichment attaches to a subagent-stop or session-end
// feed event.
type Summary struct {
	Messages int    `json:"messages"`
	ToolUses int    `json:"tool_uses"`
	Preview  string `json:"preview,omitempty"`
}

// maxLine bounds a single transcript line; assistant messages with inlined
// file contents get large.
const maxLine = 4 << 20

// Summarize reads a JSONL transcript and derives message/tool-use counts
// plus a preview of the final assistant text.
func Summarize(path string) (Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var s Summary
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 || !gjson.ValidBytes(line) {
			continue
		}
		typ := gjson.GetBytes(line, "type").String()
		if typ != "user" && typ != "assistant" {
			continue
		}
		s.Messages++
		content := gjson.GetBytes(line, "message.content")
		if !content.IsArray() {
			continue
		}
		var lastText string
		content.ForEach(func(_, item gjson.Result) bool {
			switch item.Get("type").String() {
			case "tool_use":
				s.ToolUses++
			case "text":
				lastText = item.Get("text").String()
			}
			return true
		})
		if typ == "assistant" && lastText != "" {
			s.Preview = preview(lastText)
		}
	}
	if err := sc.Err(); err != nil {
		return Summary{}, fmt.Errorf("read transcript: %w", err)
	}
	return s, nil
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 200 {
		text = text[:200] + "…"
	}
	return text
}

package agent

import (
	"fmt"
	"strings"
)

// TruncationMode specifies which part of oversized output is kept.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Default character limits per tool. Results are truncated before they
// re-enter history; the event stream always carries the full output.
var defaultCharLimits = map[string]int{
	"read_file":  50000,
	"shell":      30000,
	"grep":       20000,
	"glob":       20000,
	"list_dir":   20000,
	"edit_file":  10000,
	"write_file": 1000,
}

var defaultTruncationModes = map[string]TruncationMode{
	"read_file": TruncateHeadTail,
	"shell":     TruncateHeadTail,
	"grep":      TruncateTail,
	"glob":      TruncateTail,
	"list_dir":  TruncateTail,
}

// Line limits applied after character truncation.
var defaultLineLimits = map[string]int{
	"shell": 256,
	"grep":  200,
	"glob":  500,
}

// TruncateOutput applies character-based truncation.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}
	removed := len(output) - maxChars

	if mode == TruncateTail {
		return fmt.Sprintf("[Output truncated: first %d characters removed. The full output is available in the event stream.]\n\n", removed) +
			output[len(output)-maxChars:]
	}

	half := maxChars / 2
	return output[:half] +
		fmt.Sprintf("\n\n[Output truncated: %d characters removed from the middle. Re-run the tool with narrower parameters to see specific parts.]\n\n", removed) +
		output[len(output)-half:]
}

// TruncateLines applies line-based truncation with a head/tail split.
func TruncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}
	head := maxLines / 2
	tail := maxLines - head
	omitted := len(lines) - head - tail
	return strings.Join(lines[:head], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tail:], "\n")
}

// TruncateToolOutput runs the full pipeline for a tool: character truncation
// first (handles pathological sizes), then line truncation for readability.
// Caller-supplied limits override the defaults per tool name.
func TruncateToolOutput(output, toolName string, charLimits, lineLimits map[string]int) string {
	maxChars, ok := charLimits[toolName]
	if !ok {
		maxChars, ok = defaultCharLimits[toolName]
		if !ok {
			maxChars = 30000
		}
	}

	mode, ok := defaultTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}

	result := TruncateOutput(output, maxChars, mode)

	maxLines := 0
	if lineLimits != nil {
		maxLines = lineLimits[toolName]
	}
	if maxLines == 0 {
		maxLines = defaultLineLimits[toolName]
	}
	if maxLines > 0 {
		result = TruncateLines(result, maxLines)
	}
	return result
}

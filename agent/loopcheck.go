package agent

import (
	"crypto/sha256"
	"fmt"

	"github.com/tinkerhq/tinker/llm"
)

// callSignature is a deterministic fingerprint of one tool call.
func callSignature(call llm.ToolCall) string {
	h := sha256.Sum256([]byte(call.ArgumentsJSON))
	return fmt.Sprintf("%s:%x", call.Name, h[:8])
}

// recentCallSignatures collects signatures of the most recent tool calls in
// the history, in chronological order.
func recentCallSignatures(history []llm.Message, count int) []string {
	var sigs []string
	for i := len(history) - 1; i >= 0 && len(sigs) < count; i-- {
		m := history[i]
		if m.Role != llm.RoleAssistant {
			continue
		}
		for j := len(m.ToolCalls) - 1; j >= 0 && len(sigs) < count; j-- {
			sigs = append(sigs, callSignature(m.ToolCalls[j]))
		}
	}
	for i, j := 0, len(sigs)-1; i < j; i, j = i+1, j-1 {
		sigs[i], sigs[j] = sigs[j], sigs[i]
	}
	return sigs
}

// DetectLoop reports whether the last windowSize tool calls follow a
// repeating pattern of length 1, 2, or 3.
func DetectLoop(history []llm.Message, windowSize int) bool {
	sigs := recentCallSignatures(history, windowSize)
	if len(sigs) < windowSize {
		return false
	}

	for patternLen := 1; patternLen <= 3; patternLen++ {
		if windowSize%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		match := true
		for i := patternLen; i < windowSize && match; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					match = false
					break
				}
			}
		}
		if match {
			return true
		}
	}
	return false
}

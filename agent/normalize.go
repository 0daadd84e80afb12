package agent

import (
	"fmt"
	"strings"

	"github.com/tinkerhq/tinker/llm"
)

// BuildMessages produces the message array a provider's chat endpoint
// accepts. The system prompt is always prepended as the first message. For
// providers that support native tool calling the history passes through
// verbatim; for the rest, tool-role messages and assistant tool calls are
// rewritten into plain text.
//
// The transformation is pure and order preserving: it never reorders
// messages, only rewrites individual entries.
func BuildMessages(systemPrompt string, history []llm.Message, supportsTools bool) []llm.Message {
	out := make([]llm.Message, 0, len(history)+2)
	out = append(out, llm.SystemMessage(systemPrompt))

	if supportsTools {
		return append(out, history...)
	}

	hasUser := false
	for _, m := range history {
		switch {
		case m.Role == llm.RoleTool:
			// The tool role is rejected by these providers; surface the
			// result as user-visible text keyed to the originating call.
			out = append(out, llm.UserMessage(fmt.Sprintf("[Tool Result: %s]\n%s", m.ToolCallID, m.Content)))
			hasUser = true
		case m.Role == llm.RoleAssistant && len(m.ToolCalls) > 0:
			var sb strings.Builder
			sb.WriteString(m.Content)
			for _, tc := range m.ToolCalls {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				fmt.Fprintf(&sb, "[Calling tool: %s(%s)]", tc.Name, tc.ArgumentsJSON)
			}
			out = append(out, llm.AssistantMessage(sb.String()))
		default:
			if m.Role == llm.RoleUser {
				hasUser = true
			}
			out = append(out, m)
		}
	}

	// Some providers reject a request with no user turn at all.
	if !hasUser {
		out = append(out, llm.UserMessage("Continue."))
	}
	return out
}

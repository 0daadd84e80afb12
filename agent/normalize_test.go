package agent

import (
	"strings"
	"testing"

	"github.com/tinkerhq/tinker/llm"
)

func TestBuildMessagesSystemFirst(t *testing.T) {
	history := []llm.Message{llm.UserMessage("hi")}

	for _, supportsTools := range []bool{true, false} {
		out := BuildMessages("be helpful", history, supportsTools)
		if out[0].Role != llm.RoleSystem || out[0].Content != "be helpful" {
			t.Errorf("supportsTools=%v: first message = %+v", supportsTools, out[0])
		}
	}
}

func TestBuildMessagesPassthroughWithTools(t *testing.T) {
	history := []llm.Message{
		llm.UserMessage("list files"),
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "list_dir", ArgumentsJSON: `{}`}}},
		llm.ToolMessage("c1", "a.go\nb.go"),
	}

	out := BuildMessages("sys", history, true)
	if len(out) != 4 {
		t.Fatalf("len = %d", len(out))
	}
	for i, m := range history {
		if out[i+1].Role != m.Role || out[i+1].Content != m.Content {
			t.Errorf("message %d rewritten: %+v", i, out[i+1])
		}
	}
	if out[2].ToolCalls == nil || out[3].ToolCallID != "c1" {
		t.Error("tool structure lost on passthrough")
	}
}

func TestBuildMessagesInlinesToolTraffic(t *testing.T) {
	history := []llm.Message{
		llm.UserMessage("count the files"),
		{
			Role:    llm.RoleAssistant,
			Content: "Checking.",
			ToolCalls: []llm.ToolCall{
				{ID: "c1", Name: "list_dir", ArgumentsJSON: `{"path":"."}`},
				{ID: "c2", Name: "glob", ArgumentsJSON: `{"pattern":"*.go"}`},
			},
		},
		llm.ToolMessage("c1", "a.go\nb.go"),
		llm.ToolMessage("c2", "a.go"),
		llm.AssistantMessage("Two files."),
	}

	out := BuildMessages("sys", history, false)
	if len(out) != 6 {
		t.Fatalf("len = %d, want 6", len(out))
	}
	for _, m := range out {
		if m.Role == llm.RoleTool || len(m.ToolCalls) > 0 {
			t.Errorf("tool structure leaked: %+v", m)
		}
	}

	asst := out[2]
	if asst.Role != llm.RoleAssistant {
		t.Fatalf("message 2 role = %s", asst.Role)
	}
	if !strings.Contains(asst.Content, "Checking.") ||
		!strings.Contains(asst.Content, `[Calling tool: list_dir({"path":"."})]`) ||
		!strings.Contains(asst.Content, `[Calling tool: glob({"pattern":"*.go"})]`) {
		t.Errorf("assistant content = %q", asst.Content)
	}

	res := out[3]
	if res.Role != llm.RoleUser || res.Content != "[Tool Result: c1]\na.go\nb.go" {
		t.Errorf("tool result = %+v", res)
	}
}

func TestBuildMessagesAppendsContinue(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "shell", ArgumentsJSON: `{}`}}},
		llm.ToolMessage("c1", "ok"),
	}

	out := BuildMessages("sys", history, false)
	last := out[len(out)-1]
	// A tool result rewritten as a user message already satisfies the
	// user-turn requirement.
	if last.Content == "Continue." {
		t.Errorf("unnecessary Continue. appended: %+v", out)
	}

	out = BuildMessages("sys", []llm.Message{llm.AssistantMessage("hello")}, false)
	last = out[len(out)-1]
	if last.Role != llm.RoleUser || last.Content != "Continue." {
		t.Errorf("missing synthetic user turn, last = %+v", last)
	}
}

func TestBuildMessagesEmptyHistory(t *testing.T) {
	out := BuildMessages("sys", nil, false)
	if len(out) != 2 || out[1].Content != "Continue." {
		t.Errorf("out = %+v", out)
	}
}

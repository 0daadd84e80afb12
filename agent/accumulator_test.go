package agent

import (
	"strings"
	"testing"
	"time"

	"github.com/tinkerhq/tinker/llm"
)

func finalDelta(status llm.StreamStatus, finish string) llm.StreamDelta {
	return llm.StreamDelta{Done: true, Status: status, FinishReason: finish}
}

func TestAccumulatorTextAndToolCalls(t *testing.T) {
	acc := NewStreamAccumulator(nil)
	acc.Add(llm.StreamDelta{Text: "Let me check"})
	acc.Add(llm.StreamDelta{Text: " that file."})
	acc.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{
		{Index: 0, ID: "call_abc", Name: "read_file", Arguments: `{"pa`},
	}})
	acc.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{
		{Index: 0, Arguments: `th":"main.go"}`},
	}})
	acc.Add(finalDelta(llm.StreamOK, "tool_calls"))

	turn, err := acc.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if turn.Text != "Let me check that file." {
		t.Errorf("text = %q", turn.Text)
	}
	if len(turn.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(turn.ToolCalls))
	}
	call := turn.ToolCalls[0]
	if call.ID != "call_abc" || call.Name != "read_file" {
		t.Errorf("call = %+v", call)
	}
	if call.ArgumentsJSON != `{"path":"main.go"}` {
		t.Errorf("arguments = %q", call.ArgumentsJSON)
	}
}

// The reduction must not depend on where the provider happened to split
// chunks: one fragment per character and one big fragment give the same turn.
func TestAccumulatorChunkBoundaryIndependence(t *testing.T) {
	args := `{"path":"a.go","offset":10}`

	coarse := NewStreamAccumulator(nil)
	coarse.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{
		{Index: 0, ID: "c1", Name: "read_file", Arguments: args},
	}})
	coarse.Add(finalDelta(llm.StreamOK, "tool_calls"))

	fine := NewStreamAccumulator(nil)
	fine.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{
		{Index: 0, ID: "c1", Name: "read_file"},
	}})
	for _, ch := range args {
		fine.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{
			{Index: 0, Arguments: string(ch)},
		}})
	}
	fine.Add(finalDelta(llm.StreamOK, "tool_calls"))

	a, err := coarse.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	b, err := fine.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if a.ToolCalls[0] != b.ToolCalls[0] {
		t.Errorf("coarse %+v != fine %+v", a.ToolCalls[0], b.ToolCalls[0])
	}
}

func TestAccumulatorFallbackID(t *testing.T) {
	acc := NewStreamAccumulator(nil)
	acc.now = func() time.Time { return time.UnixMilli(1700000000000) }

	acc.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{
		{Index: 2, Name: "shell", Arguments: `{"command":"ls"}`},
	}})
	acc.Add(finalDelta(llm.StreamOK, "tool_calls"))

	turn, err := acc.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if got := turn.ToolCalls[0].ID; got != "call_1700000000000_2" {
		t.Errorf("fallback id = %q", got)
	}
}

func TestAccumulatorNamelessCallDiscarded(t *testing.T) {
	acc := NewStreamAccumulator(nil)
	acc.Add(llm.StreamDelta{Text: "done"})
	acc.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{
		{Index: 0, Arguments: `{"x":1}`},
	}})
	acc.Add(finalDelta(llm.StreamOK, "stop"))

	turn, err := acc.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if len(turn.ToolCalls) != 0 {
		t.Errorf("nameless call survived: %+v", turn.ToolCalls)
	}
}

func TestAccumulatorMultipleCallsSortedByIndex(t *testing.T) {
	acc := NewStreamAccumulator(nil)
	acc.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{
		{Index: 1, ID: "b", Name: "grep", Arguments: `{}`},
	}})
	acc.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{
		{Index: 0, ID: "a", Name: "glob", Arguments: `{}`},
	}})
	acc.Add(finalDelta(llm.StreamOK, "tool_calls"))

	turn, err := acc.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if len(turn.ToolCalls) != 2 || turn.ToolCalls[0].ID != "a" || turn.ToolCalls[1].ID != "b" {
		t.Errorf("calls = %+v", turn.ToolCalls)
	}
}

func TestAccumulatorEmptyStream(t *testing.T) {
	tests := []struct {
		name    string
		finish  string
		wantErr bool
	}{
		{"stop with empty output is valid", "stop", false},
		{"length with empty output errors", "length", true},
		{"missing finish reason errors", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewStreamAccumulator(nil)
			acc.Add(finalDelta(llm.StreamOK, tt.finish))
			_, err := acc.Finalize()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if _, ok := err.(*llm.StreamError); !ok {
					t.Errorf("err type = %T, want *llm.StreamError", err)
				}
			}
		})
	}
}

func TestAccumulatorFailedStatus(t *testing.T) {
	acc := NewStreamAccumulator(nil)
	acc.Add(llm.StreamDelta{Text: "partial"})
	acc.Add(llm.StreamDelta{Done: true, Status: llm.StreamFailed})

	if _, err := acc.Finalize(); err == nil {
		t.Fatal("want error for failed stream")
	}
}

func TestAccumulatorTextForwarding(t *testing.T) {
	var got []string
	acc := NewStreamAccumulator(func(s string) { got = append(got, s) })
	acc.Add(llm.StreamDelta{Text: "a"})
	acc.Add(llm.StreamDelta{Text: "b"})
	acc.Add(llm.StreamDelta{ToolCalls: []llm.ToolCallDelta{{Index: 0, Name: "x"}}})
	acc.Add(llm.StreamDelta{Text: "c"})
	acc.Add(finalDelta(llm.StreamOK, "stop"))

	if strings.Join(got, "") != "abc" {
		t.Errorf("forwarded = %v", got)
	}
}

func TestAccumulatorUsageFromFinalDelta(t *testing.T) {
	acc := NewStreamAccumulator(nil)
	acc.Add(llm.StreamDelta{Text: "hi"})
	acc.Add(llm.StreamDelta{
		Done: true, Status: llm.StreamOK, FinishReason: "stop",
		Usage: &llm.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	})

	turn, err := acc.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if turn.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", turn.Usage)
	}
}

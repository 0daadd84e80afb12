package agent

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tinkerhq/tinker/llm"
)

// TurnResult is one complete assistant turn reduced from a stream.
type TurnResult struct {
	Text         string
	ToolCalls    []llm.ToolCall
	FinishReason string
	Usage        llm.Usage
}

// HasToolCalls reports whether the turn requested any tools.
func (t *TurnResult) HasToolCalls() bool {
	return len(t.ToolCalls) > 0
}

// StreamAccumulator reduces an incremental delta stream into one complete
// assistant turn. Tool-call fragments are correlated by the provider's
// fragment index: the name field is overwritten when present (providers send
// the full name once), while argument chunks are always concatenated because
// argument JSON streams character by character across many deltas.
type StreamAccumulator struct {
	text    strings.Builder
	calls   map[int]*llm.ToolCall
	indexes []int
	status  llm.StreamStatus
	finish  string
	usage   llm.Usage
	err     error
	onText  func(string)
	now     func() time.Time
}

// NewStreamAccumulator creates an accumulator. onText, when non-nil, is
// invoked synchronously for every text fragment in arrival order so the
// caller can render live output; fragments are never buffered, reordered,
// or dropped.
func NewStreamAccumulator(onText func(string)) *StreamAccumulator {
	return &StreamAccumulator{
		calls:  make(map[int]*llm.ToolCall),
		status: llm.StreamOK,
		onText: onText,
		now:    time.Now,
	}
}

// Add consumes one delta.
func (a *StreamAccumulator) Add(delta llm.StreamDelta) {
	if delta.Done {
		a.status = delta.Status
		a.finish = delta.FinishReason
		a.err = delta.Err
		if delta.Usage != nil {
			a.usage = *delta.Usage
		}
		return
	}
	if delta.Text != "" {
		a.text.WriteString(delta.Text)
		if a.onText != nil {
			a.onText(delta.Text)
		}
	}
	for _, frag := range delta.ToolCalls {
		a.addFragment(frag)
	}
}

func (a *StreamAccumulator) addFragment(frag llm.ToolCallDelta) {
	call, seen := a.calls[frag.Index]
	if !seen {
		// A request must never be left without an id even if the provider
		// never sends one.
		call = &llm.ToolCall{ID: fmt.Sprintf("call_%d_%d", a.now().UnixMilli(), frag.Index)}
		a.calls[frag.Index] = call
		a.indexes = append(a.indexes, frag.Index)
	}
	if frag.ID != "" {
		call.ID = frag.ID
	}
	if frag.Name != "" {
		call.Name = frag.Name
	}
	call.ArgumentsJSON += frag.Arguments
}

// Finalize validates the accumulated turn and returns it.
//
// Tool calls whose name never arrived are discarded: a malformed or empty
// fragment never becomes a callable invocation. A stream that produced no
// text and no tool calls is an error unless its finish reason is "stop"; a
// "stop" with empty output is a valid, if empty, completion.
func (a *StreamAccumulator) Finalize() (*TurnResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.status == llm.StreamFailed {
		return nil, &llm.StreamError{ClientError: llm.ClientError{Message: "stream terminated with error status"}}
	}

	sort.Ints(a.indexes)
	var calls []llm.ToolCall
	for _, idx := range a.indexes {
		if a.calls[idx].Name == "" {
			continue
		}
		calls = append(calls, *a.calls[idx])
	}

	text := a.text.String()
	if text == "" && len(calls) == 0 && a.finish != "stop" {
		return nil, &llm.StreamError{ClientError: llm.ClientError{
			Message: fmt.Sprintf("stream produced no output (finish reason %q)", a.finish),
		}}
	}

	return &TurnResult{
		Text:         text,
		ToolCalls:    calls,
		FinishReason: a.finish,
		Usage:        a.usage,
	}, nil
}

package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tinkerhq/tinker/llm"
)

// RejectedToolMessage is the tool-result content recorded when the user
// rejects a tool call. A rejection still produces a result message: a
// dangling tool call with no matching result would break the history
// invariant and most providers refuse the next turn without one.
const RejectedToolMessage = "Tool execution was rejected by user."

// Transport is the slice of the LLM client the loop depends on. *llm.Client
// satisfies it; tests substitute scripted doubles.
type Transport interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Completion, error)
	Stream(ctx context.Context, req llm.Request) (<-chan llm.StreamDelta, error)
}

// StepResult is the outcome of one request/response/tool-execution round.
type StepResult struct {
	Text         string
	ToolCalls    []llm.ToolCall
	HasToolCalls bool
	Usage        llm.Usage
}

// StepExecutor performs exactly one model call and its consequent tool
// executions. Tool calls within a step run strictly sequentially, in array
// order: a later tool's behavior may depend on an earlier tool's side
// effects.
type StepExecutor struct {
	Transport   Transport
	Registry    *ToolRegistry
	Env         ExecutionEnvironment
	Provider    llm.ProviderInfo
	Model       string
	Streaming   bool
	AutoApprove bool
	Callbacks   Callbacks
	Emitter     *EventEmitter
	Logger      *slog.Logger
	CharLimits  map[string]int
	LineLimits  map[string]int
}

func (e *StepExecutor) emit(kind EventKind, data map[string]interface{}) {
	if e.Emitter != nil {
		e.Emitter.Emit(kind, data)
	}
}

// Step builds the provider message array, invokes the model, appends the
// assistant turn to history, executes any requested tools, and appends their
// results. It returns the extended history alongside the step outcome.
// Transport errors propagate unchanged; retry policy belongs to the
// transport, not here.
func (e *StepExecutor) Step(ctx context.Context, systemPrompt string, history []llm.Message) ([]llm.Message, *StepResult, error) {
	req := llm.Request{
		Provider: e.Provider.ID,
		Model:    e.Model,
		Messages: BuildMessages(systemPrompt, history, e.Provider.SupportsTools),
	}
	if e.Provider.SupportsTools {
		req.Tools = e.Registry.Definitions()
	}

	if e.Logger != nil {
		e.Logger.Debug("step request", "provider", e.Provider.ID, "model", e.Model, "messages", len(req.Messages), "tools", len(req.Tools))
	}

	turn, err := e.invoke(ctx, req)
	if err != nil {
		return history, nil, err
	}

	history = append(history, llm.Message{
		Role:      llm.RoleAssistant,
		Content:   turn.Text,
		ToolCalls: turn.ToolCalls,
	})
	e.emit(EventAssistantText, map[string]interface{}{
		"text":       turn.Text,
		"tool_calls": len(turn.ToolCalls),
	})

	for _, call := range turn.ToolCalls {
		result := e.executeCall(ctx, call)
		history = append(history, llm.ToolMessage(call.ID, result))
		if e.Callbacks.OnToolResult != nil {
			e.Callbacks.OnToolResult(call.Name, result)
		}
	}

	return history, &StepResult{
		Text:         turn.Text,
		ToolCalls:    turn.ToolCalls,
		HasToolCalls: turn.HasToolCalls(),
		Usage:        turn.Usage,
	}, nil
}

// invoke calls the model, streaming or not per configuration, and reduces
// the response to one complete turn.
func (e *StepExecutor) invoke(ctx context.Context, req llm.Request) (*TurnResult, error) {
	if e.Streaming {
		deltas, err := e.Transport.Stream(ctx, req)
		if err != nil {
			return nil, err
		}
		acc := NewStreamAccumulator(e.Callbacks.OnToken)
		for delta := range deltas {
			acc.Add(delta)
		}
		return acc.Finalize()
	}

	comp, err := e.Transport.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	turn := &TurnResult{
		Text:         comp.Message.Content,
		ToolCalls:    comp.Message.ToolCalls,
		FinishReason: comp.FinishReason,
		Usage:        comp.Usage,
	}
	if turn.Text == "" && len(turn.ToolCalls) == 0 && turn.FinishReason != "stop" {
		return nil, &llm.StreamError{ClientError: llm.ClientError{
			Message: fmt.Sprintf("response produced no output (finish reason %q)", turn.FinishReason),
		}}
	}
	if e.Callbacks.OnToken != nil && turn.Text != "" {
		e.Callbacks.OnToken(turn.Text)
	}
	return turn, nil
}

// executeCall runs one tool call through approval, registry lookup,
// execution, and truncation, and returns the result content. Failures never
// abort the step; the failure text becomes the result so the model can react
// to it on the next round.
func (e *StepExecutor) executeCall(ctx context.Context, call llm.ToolCall) string {
	args := ParseArguments(call.ArgumentsJSON)

	e.emit(EventToolCallStart, map[string]interface{}{
		"tool_name": call.Name,
		"call_id":   call.ID,
	})

	approved := true
	if e.Callbacks.OnToolCall != nil {
		ok := e.Callbacks.OnToolCall(call.Name, args)
		if !e.AutoApprove {
			approved = ok
		}
	}
	if !approved {
		e.emit(EventToolRejected, map[string]interface{}{
			"tool_name": call.Name,
			"call_id":   call.ID,
		})
		return RejectedToolMessage
	}

	tool := e.Registry.Get(call.Name)
	if tool == nil {
		msg := fmt.Sprintf("Unknown tool: %s", call.Name)
		e.emit(EventToolCallEnd, map[string]interface{}{"call_id": call.ID, "error": msg})
		return msg
	}

	output, err := tool.Executor(ctx, args, e.Env)
	if err != nil {
		e.emit(EventToolCallEnd, map[string]interface{}{"call_id": call.ID, "error": err.Error()})
		return err.Error()
	}

	// The event stream carries the full output; history gets the truncated
	// version.
	e.emit(EventToolCallEnd, map[string]interface{}{"call_id": call.ID, "output": output})
	return TruncateToolOutput(output, call.Name, e.CharLimits, e.LineLimits)
}

// Package llm is the provider-agnostic transport layer. It defines the
// canonical conversation types, a provider/model catalog, a typed error
// taxonomy, a retry policy, and a single generic chat client that serves
// every OpenAI-compatible endpoint in the catalog.
package llm

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-initiated tool invocation. ArgumentsJSON holds the raw
// accumulated argument text and may be invalid JSON when the provider emitted
// malformed deltas; consumers must tolerate that rather than assume validity.
type ToolCall struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"argumentsJson"`
}

// Message is one turn in the canonical conversation history.
//
// ToolCalls is present only on assistant messages that requested tools.
// ToolCallID is present only on tool messages and must reference a
// ToolCalls[i].ID from the most recent preceding assistant message.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"toolCalls,omitempty"`
	ToolCallID string     `json:"toolCallId,omitempty"`
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage creates a user Message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage creates an assistant Message with text content.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolMessage creates a tool result Message linked to the call that
// produced it.
func ToolMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// ToolDefinition describes a tool for the model (serializable metadata only).
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"` // JSON Schema
}

// Usage tracks token consumption for one response.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		TotalTokens:      u.TotalTokens + other.TotalTokens,
	}
}

// Request is the input for both Complete and Stream.
type Request struct {
	Provider    string           `json:"provider,omitempty"`
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"maxTokens,omitempty"`
	Temperature *float32         `json:"temperature,omitempty"`
}

// Completion is a full non-streaming response.
type Completion struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finishReason"`
	Usage        Usage   `json:"usage"`
}

// StreamStatus is the typed terminal status of a streaming response. The
// transport always reports one of these on the final delta so callers never
// have to infer failure from an absence of output.
type StreamStatus string

const (
	StreamOK        StreamStatus = "ok"
	StreamFailed    StreamStatus = "error"
	StreamTruncated StreamStatus = "truncated"
)

// ToolCallDelta is a partial tool-call fragment from a streaming response,
// keyed by the provider's fragment index. The index is a correlation key,
// not an array position; providers may skip indices.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// StreamDelta is one event from a streaming response. Deltas with Done false
// carry incremental content; the single final delta has Done true and carries
// the terminal Status, the provider finish reason, usage totals when the
// provider reports them, and Err when Status is StreamFailed.
type StreamDelta struct {
	Text         string          `json:"text,omitempty"`
	ToolCalls    []ToolCallDelta `json:"toolCalls,omitempty"`
	Done         bool            `json:"done,omitempty"`
	Status       StreamStatus    `json:"status,omitempty"`
	FinishReason string          `json:"finishReason,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	Err          error           `json:"-"`
}

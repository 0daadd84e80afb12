// Package agent implements the agentic chat loop: a user message is turned
// into a bounded sequence of model calls, each of which may request tool
// invocations that are executed locally (subject to approval) and fed back
// to the model until it stops requesting tools or the step budget runs out.
//
// The pieces, leaves first:
//
//   - ToolRegistry maps tool names to JSON-schema declarations and executor
//     functions. Built-in tools, skill text, and MCP-discovered tools all go
//     through the same registry and are indistinguishable to the loop.
//   - StreamAccumulator reduces incremental response deltas (text fragments
//     and index-keyed tool-call fragments) into one complete assistant turn.
//   - BuildMessages normalizes the canonical history into what a specific
//     provider accepts, rewriting tool-role messages for providers that do
//     not support native tool calling.
//   - StepExecutor performs one model call plus its consequent sequential
//     tool executions.
//   - Loop drives repeated steps, enforces the step budget, fires lifecycle
//     callbacks, and tracks usage statistics.
//
// Collaborators are injected through the Loop constructor: the transport
// (llm.Client or a test double), the tool registry, the execution
// environment, and the callbacks. There is no package-level mutable state.
//
// A Loop instance is not safe for concurrent Chat calls; an internal mutex
// serializes turns so a second call queues behind the first.
package agent

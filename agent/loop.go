package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinkerhq/tinker/llm"
)

// Callbacks are the lifecycle hooks consumed by the presentation layer. All
// callbacks are optional and invoked synchronously from the loop goroutine.
// OnToolCall returns whether the call is approved; while it runs, nothing
// else executes, which makes it the loop's cooperative suspension point for
// interactive approval prompts.
type Callbacks struct {
	OnStart      func()
	OnToken      func(text string)
	OnToolCall   func(name string, args map[string]interface{}) bool
	OnToolResult func(name, result string)
	OnEnd        func()
	OnError      func(err error)
}

// Stats tracks monotonically increasing usage counters for a loop. They are
// mutated only by the loop and reset only by an explicit session load.
type Stats struct {
	Requests         int       `json:"requests"`
	ToolCalls        int       `json:"toolCalls"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
	StartTime        time.Time `json:"startTime"`
}

// Merge overwrites s with the fields present in other; zero-valued fields in
// other leave the current value untouched.
func (s *Stats) Merge(other Stats) {
	if other.Requests != 0 {
		s.Requests = other.Requests
	}
	if other.ToolCalls != 0 {
		s.ToolCalls = other.ToolCalls
	}
	if other.PromptTokens != 0 {
		s.PromptTokens = other.PromptTokens
	}
	if other.CompletionTokens != 0 {
		s.CompletionTokens = other.CompletionTokens
	}
	if other.TotalTokens != 0 {
		s.TotalTokens = other.TotalTokens
	}
	if !other.StartTime.IsZero() {
		s.StartTime = other.StartTime
	}
}

// Config configures a Loop.
type Config struct {
	Provider         string
	Model            string // empty selects the provider's default model
	MaxSteps         int    // 0 means unlimited, implemented as a large finite bound
	AutoApprove      bool   // yolo mode: tool calls run without an approval prompt
	Streaming        bool
	SkillsText       string
	UserInstructions string
	ToolCharLimits   map[string]int
	ToolLineLimits   map[string]int

	DisableLoopDetection bool
	LoopDetectionWindow  int // default 10
}

// unlimitedStepBound substitutes for MaxSteps == 0. A large finite bound,
// never literal infinity, so a misbehaving provider still terminates.
const unlimitedStepBound = 1000

// Loop drives repeated steps for one conversation. It owns the history
// exclusively for its lifetime; an internal mutex serializes Chat calls so
// concurrent callers queue rather than race.
type Loop struct {
	id        string
	transport Transport
	registry  *ToolRegistry
	env       ExecutionEnvironment
	provider  llm.ProviderInfo
	config    Config
	callbacks Callbacks
	emitter   *EventEmitter
	logger    *slog.Logger

	mu      sync.Mutex
	history []llm.Message
	stats   Stats
}

// New creates a Loop. All collaborators are injected; there are no global
// singletons behind it.
func New(transport Transport, registry *ToolRegistry, env ExecutionEnvironment, config Config, callbacks Callbacks, logger *slog.Logger) (*Loop, error) {
	provider := llm.GetProvider(config.Provider)
	if provider == nil {
		return nil, fmt.Errorf("unknown provider %q", config.Provider)
	}
	if config.Model == "" {
		config.Model = provider.DefaultModel
	}
	if config.LoopDetectionWindow <= 0 {
		config.LoopDetectionWindow = 10
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.NewString()
	return &Loop{
		id:        id,
		transport: transport,
		registry:  registry,
		env:       env,
		provider:  *provider,
		config:    config,
		callbacks: callbacks,
		emitter:   NewEventEmitter(id, 256),
		logger:    logger,
		stats:     Stats{StartTime: time.Now()},
	}, nil
}

// ID returns the loop identifier.
func (l *Loop) ID() string { return l.id }

// ProviderID returns the active provider id.
func (l *Loop) ProviderID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.provider.ID
}

// Model returns the active model id.
func (l *Loop) Model() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config.Model
}

// Events returns the observability event channel.
func (l *Loop) Events() <-chan Event { return l.emitter.Events() }

// History returns a copy of the conversation history.
func (l *Loop) History() []llm.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	h := make([]llm.Message, len(l.history))
	copy(h, l.history)
	return h
}

// Stats returns a snapshot of the usage counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Trim keeps only the most recent maxMessages history entries.
func (l *Loop) Trim(maxMessages int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if maxMessages >= 0 && len(l.history) > maxMessages {
		l.history = append([]llm.Message(nil), l.history[len(l.history)-maxMessages:]...)
	}
}

// Clear empties the conversation history.
func (l *Loop) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = nil
}

// Restore replaces the history wholesale, merges the given stats over the
// current ones, and switches provider and model. Used by session load.
func (l *Loop) Restore(providerID, model string, history []llm.Message, stats Stats) error {
	provider := llm.GetProvider(providerID)
	if provider == nil {
		return fmt.Errorf("unknown provider %q", providerID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.provider = *provider
	l.config.Provider = providerID
	if model != "" {
		l.config.Model = model
	}
	l.history = append([]llm.Message(nil), history...)
	l.stats.Merge(stats)
	return nil
}

// SetTransport swaps the transport, typically after Restore switched
// providers.
func (l *Loop) SetTransport(t Transport) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transport = t
}

// Close releases the event channel.
func (l *Loop) Close() {
	l.emitter.Close()
}

// Chat processes one user message through the agentic loop: repeated steps
// until the model stops requesting tools, a step produces nothing, or the
// step budget runs out. Budget exhaustion is a soft stop reported through
// the event stream and OnEnd, never OnError; transport errors go to OnError,
// and OnError and OnEnd are mutually exclusive for a turn.
func (l *Loop) Chat(ctx context.Context, userMessage string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, llm.UserMessage(userMessage))
	l.stats.Requests++
	l.emitter.Emit(EventUserInput, map[string]interface{}{"content": userMessage})

	maxSteps := l.config.MaxSteps
	if maxSteps <= 0 {
		maxSteps = unlimitedStepBound
	}

	exec := &StepExecutor{
		Transport:   l.transport,
		Registry:    l.registry,
		Env:         l.env,
		Provider:    l.provider,
		Model:       l.config.Model,
		Streaming:   l.config.Streaming,
		AutoApprove: l.config.AutoApprove,
		Callbacks:   l.callbacks,
		Emitter:     l.emitter,
		Logger:      l.logger,
		CharLimits:  l.config.ToolCharLimits,
		LineLimits:  l.config.ToolLineLimits,
	}

	projectDocs := DiscoverProjectDocs(l.env.WorkingDirectory())
	budgetHit := false

	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return l.fail(fmt.Errorf("chat cancelled: %w", err))
		}

		if step == 0 && l.callbacks.OnStart != nil {
			l.callbacks.OnStart()
		}
		l.emitter.Emit(EventStepStart, map[string]interface{}{"step": step})

		systemPrompt := BuildSystemPrompt(l.env, PromptInputs{
			Model:            l.config.Model,
			ProjectDocs:      projectDocs,
			SkillsText:       l.config.SkillsText,
			UserInstructions: l.config.UserInstructions,
			Tools:            l.registry.Definitions(),
		})

		history, result, err := exec.Step(ctx, systemPrompt, l.history)
		l.history = history
		if err != nil {
			return l.fail(err)
		}

		l.stats.ToolCalls += len(result.ToolCalls)
		l.stats.PromptTokens += result.Usage.PromptTokens
		l.stats.CompletionTokens += result.Usage.CompletionTokens
		l.stats.TotalTokens += result.Usage.TotalTokens

		// Done when the model stops asking for tools; an empty turn with no
		// tool calls is the same terminal state and avoids an infinite
		// empty cycle.
		if !result.HasToolCalls {
			break
		}

		if !l.config.DisableLoopDetection && DetectLoop(l.history, l.config.LoopDetectionWindow) {
			warning := fmt.Sprintf("Loop detected: the last %d tool calls follow a repeating pattern. Try a different approach.", l.config.LoopDetectionWindow)
			l.history = append(l.history, llm.UserMessage(warning))
			l.emitter.Emit(EventLoopDetected, map[string]interface{}{"message": warning})
			l.logger.Warn("tool call loop detected", "window", l.config.LoopDetectionWindow)
		}

		if step == maxSteps-1 {
			budgetHit = true
		}
	}

	if budgetHit {
		l.logger.Warn("step budget exhausted", "max_steps", maxSteps)
		l.emitter.Emit(EventStepLimit, map[string]interface{}{"max_steps": maxSteps})
	}

	if l.callbacks.OnEnd != nil {
		l.callbacks.OnEnd()
	}
	l.emitter.Emit(EventTurnEnd, nil)
	return nil
}

// fail reports a turn-aborting error exactly once.
func (l *Loop) fail(err error) error {
	l.logger.Error("chat turn failed", "error", err)
	l.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
	if l.callbacks.OnError != nil {
		l.callbacks.OnError(err)
	}
	return err
}

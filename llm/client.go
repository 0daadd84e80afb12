package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Client is the generic chat transport. One Client serves any provider in
// the table; it is constructed from a ProviderInfo rather than from
// provider-specific code paths.
type Client struct {
	provider ProviderInfo
	api      *openai.Client
	retry    RetryPolicy
	logger   *slog.Logger

	apiKey     string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey overrides the key read from the provider's environment variable.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = policy }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client for one provider. The API key is read from the
// provider's APIKeyEnv variable unless overridden; local providers with no
// APIKeyEnv need no key.
func NewClient(provider ProviderInfo, opts ...ClientOption) (*Client, error) {
	c := &Client{
		provider: provider,
		retry:    DefaultRetryPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	key := c.apiKey
	if key == "" && provider.APIKeyEnv != "" {
		key = os.Getenv(provider.APIKeyEnv)
		if key == "" {
			return nil, &AuthenticationError{ProviderError: ProviderError{
				ClientError: ClientError{Message: "missing API key: set " + provider.APIKeyEnv},
				Provider:    provider.ID,
			}}
		}
	}

	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = provider.BaseURL
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	c.api = openai.NewClientWithConfig(cfg)
	return c, nil
}

// Provider returns the provider this client talks to.
func (c *Client) Provider() ProviderInfo {
	return c.provider
}

// Complete sends a blocking request and returns the full response. Retryable
// failures are retried under the client's policy.
func (c *Client) Complete(ctx context.Context, req Request) (*Completion, error) {
	return Retry(ctx, c.retry, func(ctx context.Context) (*Completion, error) {
		return c.complete(ctx, req)
	})
}

func (c *Client) complete(ctx context.Context, req Request) (*Completion, error) {
	c.logger.Debug("chat completion", "provider", c.provider.ID, "model", req.Model, "messages", len(req.Messages))

	resp, err := c.api.CreateChatCompletion(ctx, c.wireRequest(req, false))
	if err != nil {
		return nil, c.wrapErr(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &StreamError{ClientError: ClientError{Message: "provider returned no choices"}}
	}

	choice := resp.Choices[0]
	msg := Message{Role: RoleAssistant, Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:            tc.ID,
			Name:          tc.Function.Name,
			ArgumentsJSON: tc.Function.Arguments,
		})
	}

	return &Completion{
		Message:      msg,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream sends a request and returns a channel of deltas. The channel always
// ends with exactly one terminal delta carrying a typed status; it is closed
// after that delta. Establishing the stream is retried under the client's
// policy; failures after the first byte are reported on the terminal delta.
func (c *Client) Stream(ctx context.Context, req Request) (<-chan StreamDelta, error) {
	stream, err := Retry(ctx, c.retry, func(ctx context.Context) (*openai.ChatCompletionStream, error) {
		s, err := c.api.CreateChatCompletionStream(ctx, c.wireRequest(req, true))
		if err != nil {
			return nil, c.wrapErr(err)
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamDelta, 32)
	go func() {
		defer close(ch)
		defer stream.Close()

		finish := ""
		var usage *Usage
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				ch <- StreamDelta{
					Done:         true,
					Status:       statusForFinish(finish),
					FinishReason: finish,
					Usage:        usage,
				}
				return
			}
			if err != nil {
				ch <- StreamDelta{Done: true, Status: StreamFailed, Err: c.wrapErr(err)}
				return
			}

			if resp.Usage != nil {
				usage = &Usage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				}
			}

			for _, choice := range resp.Choices {
				if choice.FinishReason != "" {
					finish = string(choice.FinishReason)
				}
				delta := StreamDelta{Text: choice.Delta.Content}
				for _, tc := range choice.Delta.ToolCalls {
					idx := 0
					if tc.Index != nil {
						idx = *tc.Index
					}
					delta.ToolCalls = append(delta.ToolCalls, ToolCallDelta{
						Index:     idx,
						ID:        tc.ID,
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					})
				}
				if delta.Text != "" || len(delta.ToolCalls) > 0 {
					ch <- delta
				}
			}
		}
	}()
	return ch, nil
}

// statusForFinish maps a provider finish reason to the typed terminal status.
func statusForFinish(finish string) StreamStatus {
	if finish == "length" {
		return StreamTruncated
	}
	return StreamOK
}

func (c *Client) wireRequest(req Request, stream bool) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  wireMessages(req.Messages),
		MaxTokens: req.MaxTokens,
		Stream:    stream,
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func wireMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		wm := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.ArgumentsJSON,
				},
			})
		}
		out = append(out, wm)
	}
	return out
}

// wrapErr converts SDK and network errors into the typed taxonomy.
func (c *Client) wrapErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return ErrorFromStatusCode(apiErr.HTTPStatusCode, apiErr.Message, c.provider.ID, nil)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ErrorFromStatusCode(reqErr.HTTPStatusCode, reqErr.Error(), c.provider.ID, nil)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AbortError{ClientError: ClientError{Message: "request cancelled", Cause: err}}
	}
	return &NetworkError{ClientError: ClientError{Message: "request failed", Cause: err}}
}
